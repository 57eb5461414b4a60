package sqlgraph

import (
	"context"
	"errors"
	"reflect"

	"github.com/syssam/orma"
	"github.com/syssam/orma/contrib/dataloader"
)

var errNoKeyColumn = errors.New("relationship key is not a column of the target")

// Loader fetches the rows of n's table whose column matches one of keys
// and maps them, usually with MapNode of the same Mapper so that
// relationships below n are queued too.
type Loader interface {
	Load(ctx context.Context, n *Node, column string, keys []any) ([]reflect.Value, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, n *Node, column string, keys []any) ([]reflect.Value, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, n *Node, column string, keys []any) ([]reflect.Value, error) {
	return f(ctx, n, column, keys)
}

// Resolve drains the pending fetches in the order they were queued,
// including fetches queued by the loader while mapping, and fills every
// waiting owner. Units of the same node are fetched together in batches
// of the configured size; with the default size each distinct key costs
// one query. The context is checked before each query.
func (m *Mapper) Resolve(ctx context.Context, loader Loader) error {
	for len(m.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		head := m.queue[0]
		var (
			batch []*unit
			rest  []*unit
		)
		for _, u := range m.queue {
			if u.node == head.node && u.column == head.column {
				batch = append(batch, u)
			} else {
				rest = append(rest, u)
			}
		}
		m.queue = rest
		keys := make([]any, len(batch))
		for i, u := range batch {
			keys[i] = u.key
		}
		target, ok := head.node.Table.Column(head.column)
		if !ok {
			return &orma.MappingError{Type: head.node.Table.Label(), Column: head.column, Err: errNoKeyColumn}
		}
		fetch := func(ctx context.Context, keys []any) ([]reflect.Value, error) {
			return loader.Load(ctx, head.node, head.column, keys)
		}
		keyOf := func(v reflect.Value) any {
			raw, err := target.Value(v.Elem(), m.tr)
			if err != nil {
				return nil
			}
			return normalize(raw)
		}
		groups, err := m.load(ctx, head.node, keys, fetch, keyOf)
		if err != nil {
			return err
		}
		for i, u := range batch {
			u.values, u.resolved = groups[i], true
			m.resolved = append(m.resolved, u)
		}
	}
	return m.assignAll()
}

// load fetches the values of keys for n. A collection gets every row
// sharing its key; a single-valued relationship gets at most one, and a
// key without a row leaves its owners unset.
func (m *Mapper) load(ctx context.Context, n *Node, keys []any, fetch dataloader.BatchFunc[any, reflect.Value], keyOf dataloader.KeyFunc[any, reflect.Value]) ([][]reflect.Value, error) {
	if n.Collection {
		return dataloader.LoadGroups(ctx, keys, m.batch, fetch, keyOf)
	}
	vs, errs := dataloader.Load(ctx, keys, m.batch, fetch, keyOf)
	if err := dataloader.FirstError(errs); err != nil {
		return nil, err
	}
	groups := make([][]reflect.Value, len(keys))
	for i, v := range vs {
		if errs[i] == nil {
			groups[i] = []reflect.Value{v}
		}
	}
	return groups, nil
}

// assignAll fills the owners of resolved units, latest first, so value
// typed relationships are copied only after everything below them is
// filled.
func (m *Mapper) assignAll() error {
	for i := len(m.resolved) - 1; i >= 0; i-- {
		u := m.resolved[i]
		for _, owner := range u.owners[u.filled:] {
			if err := assign(owner, u.node.Column, u.values); err != nil {
				return err
			}
		}
		u.filled = len(u.owners)
	}
	return nil
}

package sqlgraph

import (
	"context"
	"reflect"
	"strings"

	"github.com/syssam/orma"
	"github.com/syssam/orma/schema"
)

// Mapper turns result rows into instances of the tree's root type and
// collects the deferred relationships they reference. Resolve loads them.
// A Mapper is not safe for concurrent use.
type Mapper struct {
	tree  *Tree
	tr    schema.Translator
	stubs bool
	batch int

	queue    []*unit
	units    map[unitKey]*unit
	resolved []*unit
}

// unitKey identifies one pending fetch. The node is part of the key
// because it decides which relationships of the fetched rows are loaded.
type unitKey struct {
	node   *Node
	column string
	key    any
}

// unit is a pending fetch shared by every owner waiting on the same key.
type unit struct {
	unitKey
	owners   []reflect.Value
	filled   int // owners already assigned
	resolved bool
	values   []reflect.Value
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithTranslator sets the translator used for columns that set none.
func WithTranslator(tr schema.Translator) MapperOption {
	return func(m *Mapper) {
		m.tr = tr
	}
}

// WithStubs makes unregistered single relationships map to an instance
// holding only the key instead of nil.
func WithStubs(on bool) MapperOption {
	return func(m *Mapper) {
		m.stubs = on
	}
}

// WithBatchSize sets how many keys one secondary query may fetch.
func WithBatchSize(n int) MapperOption {
	return func(m *Mapper) {
		m.batch = n
	}
}

// NewMapper returns a mapper for t.
func NewMapper(t *Tree, opts ...MapperOption) *Mapper {
	m := &Mapper{
		tree:  t,
		tr:    schema.Default,
		batch: 1,
		units: make(map[unitKey]*unit),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.batch < 1 {
		m.batch = 1
	}
	return m
}

// Tree returns the mapped tree.
func (m *Mapper) Tree() *Tree { return m.tree }

// Pending returns the number of queued fetches.
func (m *Mapper) Pending() int { return len(m.queue) }

// Map reads every row of rows into a new instance of the root type and
// returns the pointers. Rows are closed when Map returns.
func (m *Mapper) Map(ctx context.Context, rows RowStream) ([]reflect.Value, error) {
	return m.mapRows(ctx, rows, m.tree.Root, m.tree.Children)
}

// MapNode maps rows of n's table, loading n's registered relationships.
// Rows are closed when MapNode returns.
func (m *Mapper) MapNode(ctx context.Context, rows RowStream, n *Node) ([]reflect.Value, error) {
	return m.mapRows(ctx, rows, n.Table, n.Children)
}

func (m *Mapper) mapRows(ctx context.Context, rows RowStream, t *schema.TableInfo, children []*Node) (_ []reflect.Value, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	r := newRow(rows)
	var out []reflect.Value
	for {
		ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		r.read()
		v := t.New()
		if err := m.fill(r, v.Elem(), t, "", children); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Records reads every row of rows into a Record.
func (m *Mapper) Records(ctx context.Context, rows RowStream) (_ []*Record, err error) {
	defer func() {
		if cerr := rows.Close(); err == nil {
			err = cerr
		}
	}()
	cols := rows.Columns()
	var out []*Record
	for {
		ok, err := rows.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rec := NewRecord()
		for i, c := range cols {
			rec.Set(c, rows.Value(i))
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// row is a snapshot of the current row indexed by lower-cased column name.
type row struct {
	rows  RowStream
	index map[string]int
	vals  []any
}

func newRow(rows RowStream) *row {
	cols := rows.Columns()
	r := &row{rows: rows, index: make(map[string]int, len(cols)), vals: make([]any, len(cols))}
	for i, c := range cols {
		if _, ok := r.index[strings.ToLower(c)]; !ok {
			r.index[strings.ToLower(c)] = i
		}
	}
	return r
}

func (r *row) read() {
	for i := range r.vals {
		r.vals[i] = r.rows.Value(i)
	}
}

// get returns the value of the named column and whether it was projected.
func (r *row) get(name string) (any, bool) {
	i, ok := r.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return r.vals[i], true
}

// fill maps the columns read under prefix into elem, an addressable
// instance of t.
func (m *Mapper) fill(r *row, elem reflect.Value, t *schema.TableInfo, prefix string, children []*Node) error {
	for _, c := range t.Natives() {
		raw, ok := r.get(columnAlias(prefix, c.Name))
		if !ok {
			continue
		}
		if err := c.Set(elem, raw, m.tr); err != nil {
			return &orma.MappingError{Type: t.Label(), Column: c.Name, Err: err}
		}
	}
	for _, c := range t.Foreigns() {
		n := findChild(children, c.Field)
		switch {
		case n != nil && n.Joined && !n.Collection:
			if err := m.join(r, elem, t, c, n); err != nil {
				return err
			}
		case n != nil:
			raw, _ := r.get(columnAlias(prefix, c.Foreign.LocalKey))
			if err := m.enqueue(n, normalize(raw), elem); err != nil {
				return err
			}
		case m.stubs && !c.Foreign.Collection:
			raw, _ := r.get(columnAlias(prefix, c.Foreign.LocalKey))
			if err := m.stub(elem, c, raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// join maps a joined relationship. Value fields are filled in place so
// relationships deferred below them reach the stored instance.
func (m *Mapper) join(r *row, owner reflect.Value, t *schema.TableInfo, c *schema.ColumnInfo, n *Node) error {
	if m.null(r, n) {
		return nil
	}
	if c.Type.Kind() != reflect.Pointer {
		if f := c.FieldOf(owner); f.IsValid() && f.CanSet() {
			return m.fill(r, f, n.Table, n.Prefix, n.Children)
		}
	}
	child := n.Table.New()
	if err := m.fill(r, child.Elem(), n.Table, n.Prefix, n.Children); err != nil {
		return err
	}
	if err := assign(owner, c, []reflect.Value{child}); err != nil {
		return &orma.MappingError{Type: t.Label(), Column: c.Field, Err: err}
	}
	return nil
}

// null reports whether every column of a joined node is NULL, which is a
// missing LEFT JOIN match.
func (m *Mapper) null(r *row, n *Node) bool {
	for _, name := range TableColumns(n.Table) {
		if v, ok := r.get(columnAlias(n.Prefix, name)); ok && v != nil {
			return false
		}
	}
	return true
}

// stub assigns an instance of the relationship target holding only the key.
func (m *Mapper) stub(owner reflect.Value, c *schema.ColumnInfo, raw any) error {
	if raw == nil {
		return nil
	}
	t, err := c.Foreign.Table()
	if err != nil {
		return err
	}
	name, err := c.Foreign.KeyColumn()
	if err != nil {
		return err
	}
	key, ok := t.Column(name)
	if !ok {
		return &orma.MappingError{Type: t.Label(), Column: name, Err: errNoKeyColumn}
	}
	v := t.New()
	if err := key.Set(v.Elem(), raw, m.tr); err != nil {
		return &orma.MappingError{Type: t.Label(), Column: name, Err: err}
	}
	return assign(owner, c, []reflect.Value{v})
}

// enqueue registers owner as waiting on the fetch of n for key. A key
// fetched before is not fetched again.
func (m *Mapper) enqueue(n *Node, key any, owner reflect.Value) error {
	if key == nil {
		return nil
	}
	column, err := n.KeyColumn()
	if err != nil {
		return err
	}
	k := unitKey{node: n, column: column, key: key}
	u, ok := m.units[k]
	if !ok {
		u = &unit{unitKey: k}
		m.units[k] = u
		m.queue = append(m.queue, u)
	}
	u.owners = append(u.owners, owner)
	return nil
}

// assign stores values into the relationship field of owner: all of them
// for a collection, the first one otherwise.
func assign(owner reflect.Value, c *schema.ColumnInfo, values []reflect.Value) error {
	ft := c.Type
	if c.Foreign.Collection {
		s := reflect.MakeSlice(ft, 0, len(values))
		for _, v := range values {
			if ft.Elem().Kind() == reflect.Pointer {
				s = reflect.Append(s, v)
			} else {
				s = reflect.Append(s, v.Elem())
			}
		}
		return c.SetValue(owner, s.Interface())
	}
	if len(values) == 0 {
		return nil
	}
	if ft.Kind() == reflect.Pointer {
		return c.SetValue(owner, values[0].Interface())
	}
	return c.SetValue(owner, values[0].Elem().Interface())
}

// Package dataloader provides generic helpers for loading related rows in
// batches.
//
// The foreign-key resolver in dialect/sql/sqlgraph collects the distinct
// keys of every pending relationship, fetches them with one IN query per
// chunk, and fans the results back out to the waiting owners:
//
//	customers, errs := dataloader.Load(ctx, keys, 100,
//	    func(ctx context.Context, ids []int) ([]*Customer, error) {
//	        return fetchCustomers(ctx, ids)
//	    },
//	    func(c *Customer) int { return c.ID },
//	)
//
// For one-to-many relationships, LoadGroups returns every row sharing a
// key instead:
//
//	orders, err := dataloader.LoadGroups(ctx, customerIDs, 100, fetchOrders,
//	    func(o *Order) int { return o.CustomerID })
package dataloader

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no matching value in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// BatchFunc loads the values for a batch of keys. The result may be in any
// order and may omit keys that have no value.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
// When several entities share a key the first one wins.
//
// The result slice always has the same length as keys.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		k := keyFn(v)
		if _, ok := lookup[k]; !ok {
			lookup[k] = v
		}
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function, preserving input order
// within each group.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped entities to match the order of requested keys.
// Returns a slice of slices where each inner slice contains entities for that key.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// Chunk splits keys into consecutive slices of at most size elements.
// A size below one yields a single chunk per key.
func Chunk[K any](keys []K, size int) [][]K {
	if size < 1 {
		size = 1
	}
	chunks := make([][]K, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		chunks = append(chunks, keys[start:end:end])
	}
	return chunks
}

// Load fetches the values for keys in chunks of size, calling fn once per
// chunk, and returns them ordered by keys. The context is checked before
// each chunk is fetched.
func Load[K comparable, V any](ctx context.Context, keys []K, size int, fn BatchFunc[K, V], keyFn KeyFunc[K, V]) ([]V, []error) {
	var values []V
	for _, chunk := range Chunk(keys, size) {
		if err := ctx.Err(); err != nil {
			return nil, fill(len(keys), err)
		}
		batch, err := fn(ctx, chunk)
		if err != nil {
			return nil, fill(len(keys), err)
		}
		values = append(values, batch...)
	}
	return OrderByKeys(keys, values, keyFn)
}

// LoadGroups is like Load for one-to-many relationships: every key maps to
// the (possibly empty) group of values sharing it.
func LoadGroups[K comparable, V any](ctx context.Context, keys []K, size int, fn BatchFunc[K, V], keyFn KeyFunc[K, V]) ([][]V, error) {
	var values []V
	for _, chunk := range Chunk(keys, size) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := fn(ctx, chunk)
		if err != nil {
			return nil, err
		}
		values = append(values, batch...)
	}
	return OrderGroupsByKeys(keys, GroupByKey(values, keyFn)), nil
}

// FirstError returns the first error in errs that is not ErrNotFound.
func FirstError(errs []error) error {
	for _, err := range errs {
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

func fill(n int, err error) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

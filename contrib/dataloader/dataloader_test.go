package dataloader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type customer struct {
	ID   int
	Name string
}

type order struct {
	ID         int
	CustomerID int
}

func customerID(c *customer) int { return c.ID }

func orderCustomer(o *order) int { return o.CustomerID }

func TestOrderByKeys(t *testing.T) {
	t.Parallel()

	t.Run("all keys found", func(t *testing.T) {
		t.Parallel()
		values := []*customer{{ID: 3, Name: "c"}, {ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

		result, errs := OrderByKeys([]int{1, 2, 3}, values, customerID)

		require.Len(t, result, 3)
		assert.Equal(t, "a", result[0].Name)
		assert.Equal(t, "b", result[1].Name)
		assert.Equal(t, "c", result[2].Name)
		assert.NoError(t, FirstError(errs))
		for _, err := range errs {
			assert.NoError(t, err)
		}
	})

	t.Run("duplicate keys keep first", func(t *testing.T) {
		t.Parallel()
		values := []*customer{{ID: 1, Name: "first"}, {ID: 1, Name: "second"}}

		result, errs := OrderByKeys([]int{1}, values, customerID)

		require.Len(t, result, 1)
		assert.Equal(t, "first", result[0].Name)
		assert.NoError(t, FirstError(errs))
	})

	t.Run("some keys missing", func(t *testing.T) {
		t.Parallel()
		values := []*customer{{ID: 1, Name: "a"}, {ID: 3, Name: "c"}}

		result, errs := OrderByKeys([]int{1, 2, 3, 4}, values, customerID)

		require.Len(t, result, 4)
		require.Len(t, errs, 4)
		assert.Nil(t, result[1])
		assert.Nil(t, result[3])
		assert.ErrorIs(t, errs[1], ErrNotFound)
		assert.ErrorIs(t, errs[3], ErrNotFound)
		assert.NoError(t, FirstError(errs), "not found is not a failure")
	})

	t.Run("duplicate keys", func(t *testing.T) {
		t.Parallel()
		result, _ := OrderByKeys([]int{7, 7}, []*customer{{ID: 7, Name: "x"}}, customerID)
		assert.Same(t, result[0], result[1])
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		result, errs := OrderByKeys([]int{}, []*customer{}, customerID)
		assert.Empty(t, result)
		assert.Empty(t, errs)
	})
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()

	orders := []*order{{1, 10}, {2, 10}, {3, 20}, {4, 10}}
	grouped := GroupByKey(orders, orderCustomer)

	require.Len(t, grouped[10], 3)
	require.Len(t, grouped[20], 1)
	assert.Equal(t, []int{1, 2, 4}, []int{grouped[10][0].ID, grouped[10][1].ID, grouped[10][2].ID})
	assert.Empty(t, GroupByKey([]*order{}, orderCustomer))
}

func TestOrderGroupsByKeys(t *testing.T) {
	t.Parallel()

	groups := map[int][]string{10: {"a", "b"}, 20: {"c"}}
	result := OrderGroupsByKeys([]int{20, 30, 10}, groups)

	require.Len(t, result, 3)
	assert.Equal(t, []string{"c"}, result[0])
	assert.Nil(t, result[1])
	assert.Equal(t, []string{"a", "b"}, result[2])
}

func TestChunk(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []int
		size int
		want [][]int
	}{
		{name: "empty", keys: nil, size: 3, want: [][]int{}},
		{name: "exact", keys: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", keys: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "larger than input", keys: []int{1, 2}, size: 10, want: [][]int{{1, 2}}},
		{name: "size below one", keys: []int{1, 2}, size: 0, want: [][]int{{1}, {2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.keys, tt.size))
		})
	}

	t.Run("chunks do not alias", func(t *testing.T) {
		chunks := Chunk([]int{1, 2, 3}, 2)
		chunks[0] = append(chunks[0], 99)
		assert.Equal(t, []int{3}, chunks[1])
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	db := map[int]*customer{1: {ID: 1, Name: "a"}, 2: {ID: 2, Name: "b"}, 3: {ID: 3, Name: "c"}}

	t.Run("one call per chunk", func(t *testing.T) {
		var calls [][]int
		fetch := func(_ context.Context, ids []int) ([]*customer, error) {
			calls = append(calls, ids)
			var out []*customer
			for i := len(ids) - 1; i >= 0; i-- {
				if c, ok := db[ids[i]]; ok {
					out = append(out, c)
				}
			}
			return out, nil
		}

		result, errs := Load(context.Background(), []int{3, 1, 9, 2}, 2, fetch, customerID)

		assert.Equal(t, [][]int{{3, 1}, {9, 2}}, calls)
		require.Len(t, result, 4)
		assert.Equal(t, "c", result[0].Name)
		assert.Equal(t, "a", result[1].Name)
		assert.Nil(t, result[2])
		assert.ErrorIs(t, errs[2], ErrNotFound)
		assert.Equal(t, "b", result[3].Name)
	})

	t.Run("fetch error", func(t *testing.T) {
		boom := errors.New("boom")
		fetch := func(context.Context, []int) ([]*customer, error) { return nil, boom }

		result, errs := Load(context.Background(), []int{1, 2}, 10, fetch, customerID)

		assert.Nil(t, result)
		assert.ErrorIs(t, FirstError(errs), boom)
	})

	t.Run("canceled before first chunk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		fetch := func(context.Context, []int) ([]*customer, error) {
			called = true
			return nil, nil
		}

		_, errs := Load(ctx, []int{1}, 1, fetch, customerID)

		assert.False(t, called)
		assert.ErrorIs(t, FirstError(errs), context.Canceled)
	})
}

func TestLoadGroups(t *testing.T) {
	t.Parallel()

	orders := []*order{{1, 10}, {2, 20}, {3, 10}}
	fetch := func(_ context.Context, ids []int) ([]*order, error) {
		var out []*order
		for _, o := range orders {
			for _, id := range ids {
				if o.CustomerID == id {
					out = append(out, o)
				}
			}
		}
		return out, nil
	}

	groups, err := LoadGroups(context.Background(), []int{10, 20, 30}, 1, fetch, orderCustomer)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
	assert.Empty(t, groups[2])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = LoadGroups(ctx, []int{10}, 1, fetch, orderCustomer)
	assert.ErrorIs(t, err, context.Canceled)
}

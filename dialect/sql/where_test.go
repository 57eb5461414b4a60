package sql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereBuild(t *testing.T) {
	w := NewWhere().
		EQ(C("a"), 1).
		OrCond(C("b"), OpGT, 2).
		Group(func(g *Where) { g.IsNull(C("c")).NotNull(C("d")) }).
		Group(func(*Where) {})
	require.Len(t, w.Conds, 3)
	assert.True(t, w.Conds[1].Or)
	assert.Equal(t, CondGroup, w.Conds[2].Kind)
	assert.True(t, w.HasOr())
	assert.False(t, NewWhere().EQ(C("a"), 1).HasOr())
	assert.True(t, (*Where)(nil).IsEmpty())
}

func TestWhereAnd(t *testing.T) {
	w := NewWhere().EQ(C("a"), 1)
	w.And(NewWhere().EQ(C("b"), 2).OrCond(C("c"), OpEQ, 3))
	require.Len(t, w.Conds, 2)
	assert.Equal(t, CondGroup, w.Conds[1].Kind)

	w2 := NewWhere().And(NewWhere().EQ(C("b"), 2))
	require.Len(t, w2.Conds, 1)
	assert.Equal(t, CondCompare, w2.Conds[0].Kind)
}

func TestWhereContains(t *testing.T) {
	w := NewWhere().Contains(C("Name"), "50%_off").StartsWith(C("Code"), `a\b`)
	require.Len(t, w.Conds, 2)
	assert.Equal(t, `%50\%\_off%`, w.Conds[0].Value)
	assert.True(t, w.Conds[0].Escape)
	assert.Equal(t, `a\\b%`, w.Conds[1].Value)
}

func TestWhereRewrite(t *testing.T) {
	w := NewWhere().
		EQ(C("a"), C("b")).
		Group(func(g *Where) { g.EQ(C("c"), 1) })
	out, err := w.Rewrite(func(c Column) (Column, error) {
		return c.Resolved("t", c.Name), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "t", out.Conds[0].Column.Table)
	assert.Equal(t, "t", out.Conds[0].Value.(Column).Table)
	assert.Equal(t, "t", out.Conds[1].Group.Conds[0].Column.Table)
	assert.Equal(t, "", w.Conds[0].Column.Table, "original tree is untouched")

	boom := errors.New("boom")
	_, err = w.Rewrite(func(Column) (Column, error) { return Column{}, boom })
	assert.ErrorIs(t, err, boom)
}

func TestQueryClone(t *testing.T) {
	q := NewQuery("Orders o").
		Select(C("o.Id")).
		AddWhere(func(w *Where) { w.EQ(C("o.Id"), 1) }).
		AddJoin(LeftJoin, MustName("Customers c"), func(w *Where) { w.EQ(C("c.Id"), C("o.CustomerId")) }).
		OrderBy(C("o.Id"), Desc).
		SetLimit(10).
		SetOffset(5)
	require.NoError(t, q.Err())

	c := q.Clone()
	*c.Limit = 1
	c.Where.EQ(C("o.Total"), 2)
	c.Joins[0].On.EQ(C("c.Active"), true)
	c.Columns[0] = C("o.Total")

	assert.Equal(t, 10, *q.Limit)
	assert.Len(t, q.Where.Conds, 1)
	assert.Len(t, q.Joins[0].On.Conds, 1)
	assert.Equal(t, "Id", q.Columns[0].Name)
}

func TestQueryErr(t *testing.T) {
	q := NewQuery("Orders; DROP")
	require.Error(t, q.Err())
}

func TestTypedFields(t *testing.T) {
	type pred func(*Where)
	name := StringField[pred]("Name")
	age := NumberField[pred, int]("Age")

	w := NewWhere()
	for _, p := range []pred{name.EQ("x"), name.In("a", "b"), age.Between(1, 9), age.GT(3), name.HasPrefix("J")} {
		p(w)
	}
	require.Len(t, w.Conds, 5)
	assert.Equal(t, OpIn, w.Conds[1].Op)
	assert.Equal(t, []any{"a", "b"}, w.Conds[1].Value)
	assert.Equal(t, [2]any{1, 9}, w.Conds[2].Value)
	assert.Equal(t, OpGT, w.Conds[3].Op)
	assert.Equal(t, "J%", w.Conds[4].Value)
}

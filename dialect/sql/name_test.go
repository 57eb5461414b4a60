package sql

import (
	"testing"

	"github.com/syssam/orma"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		in    string
		name  string
		alias string
	}{
		{"Customers", "Customers", ""},
		{"dbo.Customers", "dbo.Customers", ""},
		{"#temp", "#temp", ""},
		{"Customers c", "Customers", "c"},
		{"Customers AS c", "Customers", "c"},
		{"Customers as c", "Customers", "c"},
		{"c.*", "c.*", ""},
		{"*", "*", ""},
		{"  Orders   o  ", "Orders", "o"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n, err := ParseName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.name, n.Name)
			assert.Equal(t, tt.alias, n.Alias)
			assert.False(t, n.Unsafe())
		})
	}
}

func TestParseNameInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"Customers; DROP TABLE x",
		"Cust-omers",
		"a..b",
		"a.*.b",
		"t c d",
		"t AS c.d",
		"[Customers]",
		"t AS",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseName(in)
			require.Error(t, err)
			assert.True(t, orma.IsInvalidName(err))
		})
	}
}

func TestDbName(t *testing.T) {
	n := MustName("Customers c")
	assert.Equal(t, "c", n.Ref())
	assert.Equal(t, "Customers c", n.String())
	assert.Equal(t, "Customers", MustName("Customers").Ref())
	assert.True(t, MustName("c.*").IsWildcard())
	assert.False(t, n.IsWildcard())

	u := UnsafeName("dbo.[weird name]")
	assert.True(t, u.Unsafe())
	assert.Equal(t, "dbo.[weird name]", u.Name)

	assert.Panics(t, func() { MustName("1; --") })
}

func TestNewCollation(t *testing.T) {
	c, err := NewCollation("Latin1_General_CI_AI")
	require.NoError(t, err)
	assert.Equal(t, Collation("Latin1_General_CI_AI"), c)

	_, err = NewCollation("x y")
	require.Error(t, err)
	var ne *orma.InvalidNameError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "collation", ne.Kind)
}

func TestNewColumn(t *testing.T) {
	c, err := NewColumn("c.Name AS n")
	require.NoError(t, err)
	assert.Equal(t, "c", c.Table)
	assert.Equal(t, "Name", c.Name)
	assert.Equal(t, "n", c.Alias)

	c = C("dbo.Customers.Id")
	assert.Equal(t, "dbo.Customers", c.Table)
	assert.Equal(t, "Id", c.Name)

	assert.True(t, C("*").IsWildcard())
	assert.True(t, C("t.*").IsWildcard())
	assert.True(t, Star("t").IsWildcard())
	assert.False(t, C("t.*").Apply(FuncToUpper).IsWildcard())

	_, err = NewColumn("Name)--")
	assert.True(t, orma.IsInvalidName(err))
	assert.Panics(t, func() { Col("t", "a b") })
}

func TestColumnImmutable(t *testing.T) {
	base := C("Name").Apply(FuncToLower)
	a := base.Apply(FuncTrim)
	b := base.Apply(FuncLength)
	require.Len(t, base.Calls, 1)
	assert.Equal(t, FuncTrim, a.Calls[1].Func)
	assert.Equal(t, FuncLength, b.Calls[1].Func)
	assert.Equal(t, "x", base.As("x").Alias)
	assert.Equal(t, "", base.Alias)

	m := MemberColumn([]Member{{Name: "Customer"}, {Name: "Name", Column: "name"}}, Call{Func: FuncToUpper})
	assert.True(t, m.IsMember())
	assert.Equal(t, "Customer.Name", m.MemberPath())
	r := m.Resolved("Customer", "name")
	assert.False(t, r.IsMember())
	assert.Equal(t, "Customer.name.ToUpper()", r.String())

	s := StaticColumn(FuncNow)
	assert.True(t, s.IsStatic())
	assert.True(t, Literal(nil).IsLiteral())
}

func TestFunc(t *testing.T) {
	assert.Equal(t, "Substring", FuncSubstring.String())
	assert.True(t, FuncSubstring.Accepts(1))
	assert.True(t, FuncSubstring.Accepts(2))
	assert.False(t, FuncSubstring.Accepts(3))
	assert.True(t, FuncConcat.Accepts(5))
	assert.False(t, FuncConcat.Accepts(0))
	assert.True(t, FuncUtcNow.Static())
	assert.Equal(t, KindDate, FuncYear.Kind())
	assert.False(t, Func(999).Accepts(0))
	assert.Equal(t, "Func(999)", Func(999).String())
}

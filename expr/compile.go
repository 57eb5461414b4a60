package expr

import (
	"fmt"
	"reflect"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/schema"
)

// Compile resolves n against the struct type root and returns one column
// per value it produces. Member chains resolve field by field, following
// relationships into their target types; calls apply innermost-first.
//
// A construction yields one column per member, aliased by member name. A
// chain with calls is aliased by its last member name. A bare member chain
// has no alias.
func Compile(root reflect.Type, n Node) ([]sql.Column, error) {
	info, err := schema.Describe(root)
	if err != nil {
		return nil, err
	}
	c := &compiler{root: info}
	switch n := n.(type) {
	case *NewNode:
		if n == nil {
			return nil, invalid(nil, "empty expression")
		}
		if len(n.Members) == 0 {
			return nil, invalid(n, "construction has no members")
		}
		cols := make([]sql.Column, 0, len(n.Members))
		seen := make(map[string]bool, len(n.Members))
		for _, m := range n.Members {
			if seen[m.Name] {
				return nil, invalid(n, fmt.Sprintf("duplicate member %s", m.Name))
			}
			seen[m.Name] = true
			col, err := c.named(m)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		return cols, nil
	case Named:
		col, err := c.named(n)
		if err != nil {
			return nil, err
		}
		return []sql.Column{col}, nil
	default:
		col, err := c.column(n)
		if err != nil {
			return nil, err
		}
		return []sql.Column{col}, nil
	}
}

// MustCompile is like Compile but panics on error.
func MustCompile(root reflect.Type, n Node) []sql.Column {
	cols, err := Compile(root, n)
	if err != nil {
		panic(err)
	}
	return cols
}

type compiler struct {
	root *schema.TableInfo
}

func (c *compiler) named(n Named) (sql.Column, error) {
	if !sql.ValidAlias(n.Name) {
		return sql.Column{}, &orma.InvalidNameError{Kind: "alias", Name: n.Name}
	}
	col, err := c.column(n.Node)
	if err != nil {
		return sql.Column{}, err
	}
	return col.As(n.Name), nil
}

func (c *compiler) column(n Node) (sql.Column, error) {
	switch n := n.(type) {
	case nil:
		return sql.Column{}, invalid(nil, "empty expression")
	case *MemberNode:
		path, err := c.members(n)
		if err != nil {
			return sql.Column{}, err
		}
		return sql.MemberColumn(path), nil
	case *CallNode:
		return c.call(n)
	case *ConstNode:
		return sql.Literal(n.Value), nil
	case *NewNode, Named:
		return sql.Column{}, invalid(n, "constructions cannot be nested")
	default:
		return sql.Column{}, invalid(n, fmt.Sprintf("unsupported node %T: only member reads, calls and constants are allowed", n))
	}
}

// call flattens a call chain and builds the column for its innermost
// receiver.
func (c *compiler) call(n *CallNode) (sql.Column, error) {
	if n == nil {
		return sql.Column{}, invalid(nil, "empty expression")
	}
	var (
		chain []*CallNode
		base  Node
	)
	for cur := Node(n); ; {
		cn, ok := cur.(*CallNode)
		if !ok || cn == nil {
			base = cur
			break
		}
		chain = append(chain, cn)
		cur = cn.Receiver
	}
	calls := make([]sql.Call, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		call, err := c.callOf(chain[i], base == nil && i == len(chain)-1)
		if err != nil {
			return sql.Column{}, err
		}
		calls = append(calls, call)
	}
	switch b := base.(type) {
	case nil:
		return sql.StaticColumn(calls[0].Func, calls[1:]...).As(calls[0].Func.String()), nil
	case *MemberNode:
		path, err := c.members(b)
		if err != nil {
			return sql.Column{}, err
		}
		return sql.MemberColumn(path, calls...).As(b.Name), nil
	case *ConstNode:
		col := sql.Literal(b.Value)
		for _, call := range calls {
			col = col.Apply(call.Func, call.Args...)
		}
		return col, nil
	default:
		return sql.Column{}, invalid(n, fmt.Sprintf("unsupported call receiver %T", b))
	}
}

func (c *compiler) callOf(n *CallNode, static bool) (sql.Call, error) {
	switch {
	case n.Func.Kind() == 0:
		return sql.Call{}, invalid(n, fmt.Sprintf("unknown operation %s", n.Func))
	case static && !n.Func.Static():
		return sql.Call{}, invalid(n, fmt.Sprintf("%s requires a receiver", n.Func))
	case !static && n.Func.Static():
		return sql.Call{}, invalid(n, fmt.Sprintf("%s takes no receiver", n.Func))
	}
	call := sql.Call{Func: n.Func}
	for _, a := range n.Args {
		k, ok := a.(*ConstNode)
		if !ok {
			return sql.Call{}, invalid(n, "call arguments must be constants")
		}
		call.Args = append(call.Args, k.Value)
	}
	return call, nil
}

// members resolves a member chain segment by segment. A segment matches a
// Go field name or a mapped column name.
func (c *compiler) members(n *MemberNode) ([]sql.Member, error) {
	names := n.Path()
	if len(names) == 0 {
		return nil, invalid(nil, "empty member chain")
	}
	path := make([]sql.Member, 0, len(names))
	table, owner := c.root, c.root.Label()
	for _, name := range names {
		if table == nil {
			return nil, invalid(n, fmt.Sprintf("%s has no member %s", owner, name))
		}
		col, ok := table.Field(name)
		if !ok {
			col, ok = table.Column(name)
		}
		if !ok {
			return nil, invalid(n, fmt.Sprintf("%s has no member %s", table.Label(), name))
		}
		m := sql.Member{Name: col.Field, Type: col.Type, Index: col.Index}
		owner = col.Field
		if col.Native() {
			m.Column = col.Name
			table = nil
		} else {
			t, err := col.Foreign.Table()
			if err != nil {
				return nil, err
			}
			table = t
		}
		path = append(path, m)
	}
	return path, nil
}

func invalid(n Node, reason string) error {
	s := "<nil>"
	if n != nil {
		s = n.String()
	}
	return &orma.InvalidExpressionError{Expr: s, Reason: reason}
}

// Package expr is a small builder DSL for typed column expressions.
//
// An expression is a tree of nodes: member reads, translatable calls,
// constants and constructions of several named values. Compile resolves it
// against a Go struct type and returns the columns the clause model uses:
//
//	cols, err := expr.Compile(reflect.TypeFor[Order](), expr.New(
//	    expr.As("Number", expr.Field("Number")),
//	    expr.As("Customer", expr.Field("Customer.Name").Call(sql.FuncToUpper)),
//	    expr.As("Year", expr.Field("Created").Call(sql.FuncYear)),
//	))
//
// The compiler is dialect agnostic: it never renders SQL.
package expr

import (
	"fmt"
	"strings"

	"github.com/syssam/orma/dialect/sql"
)

// Node is an expression tree node. Compile accepts only the node types of
// this package.
type Node interface {
	String() string
}

// MemberNode reads a field of its parent, or of the root value when
// Parent is nil. Name is the Go field name or the mapped column name.
type MemberNode struct {
	Parent *MemberNode
	Name   string
}

// Field returns the member chain for a dotted path such as
// "Customer.Address.City".
func Field(path string) *MemberNode {
	var m *MemberNode
	for _, name := range strings.Split(path, ".") {
		m = &MemberNode{Parent: m, Name: name}
	}
	return m
}

// Field returns a read of name on m.
func (m *MemberNode) Field(name string) *MemberNode {
	return &MemberNode{Parent: m, Name: name}
}

// Call applies f to m.
func (m *MemberNode) Call(f sql.Func, args ...any) *CallNode {
	return Call(m, f, args...)
}

// Path returns the member names from the root.
func (m *MemberNode) Path() []string {
	var path []string
	for n := m; n != nil; n = n.Parent {
		path = append(path, n.Name)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (m *MemberNode) String() string {
	return strings.Join(m.Path(), ".")
}

// CallNode applies a translatable operation to Receiver. A nil Receiver
// denotes a static operation such as sql.FuncNow.
type CallNode struct {
	Receiver Node
	Func     sql.Func
	Args     []Node
}

// Call applies f to recv. Arguments that are not nodes become constants.
func Call(recv Node, f sql.Func, args ...any) *CallNode {
	c := &CallNode{Receiver: recv, Func: f, Args: make([]Node, len(args))}
	for i, a := range args {
		if n, ok := a.(Node); ok {
			c.Args[i] = n
		} else {
			c.Args[i] = Const(a)
		}
	}
	return c
}

// Static returns a receiver-less call.
func Static(f sql.Func, args ...any) *CallNode {
	return Call(nil, f, args...)
}

// Now is the current local time.
func Now() *CallNode { return Static(sql.FuncNow) }

// UtcNow is the current UTC time.
func UtcNow() *CallNode { return Static(sql.FuncUtcNow) }

// Today is the current date.
func Today() *CallNode { return Static(sql.FuncToday) }

// Call applies f to the result of c.
func (c *CallNode) Call(f sql.Func, args ...any) *CallNode {
	return Call(c, f, args...)
}

func (c *CallNode) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	call := c.Func.String() + "(" + strings.Join(args, ", ") + ")"
	if c.Receiver == nil {
		return call
	}
	return c.Receiver.String() + "." + call
}

// ConstNode is a constant value.
type ConstNode struct {
	Value any
}

// Const returns a constant node.
func Const(v any) *ConstNode {
	return &ConstNode{Value: v}
}

func (c *ConstNode) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(c.Value)
}

// Named is one member of a construction. On its own it compiles to a
// single aliased column.
type Named struct {
	Name string
	Node Node
}

// As names n.
func As(name string, n Node) Named {
	return Named{Name: name, Node: n}
}

func (n Named) String() string {
	return n.Name + " = " + n.Node.String()
}

// NewNode constructs a value from named members, one column each.
type NewNode struct {
	Members []Named
}

// New returns a construction of the named members, in order.
func New(members ...Named) *NewNode {
	return &NewNode{Members: members}
}

func (n *NewNode) String() string {
	parts := make([]string, len(n.Members))
	for i, m := range n.Members {
		parts[i] = m.String()
	}
	return "new { " + strings.Join(parts, ", ") + " }"
}

package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/schema"
)

// Node is one relationship hop of a Tree.
type Node struct {
	// Column is the relationship column on the parent table.
	Column *schema.ColumnInfo
	// Table is the target of the relationship.
	Table  *schema.TableInfo
	Parent *Node
	// Prefix starts the aliases of the node's projected columns, e.g.
	// Customer_Address_.
	Prefix string
	// Alias is the SQL alias of the joined table.
	Alias      string
	Collection bool
	// Joined reports whether the node is loaded by a LEFT JOIN of the
	// parent query rather than by a secondary query.
	Joined   bool
	Children []*Node

	path []string
}

// Path returns the dotted field path from the root, e.g. Customer.Address.
func (n *Node) Path() string { return strings.Join(n.path, ".") }

// KeyColumn returns the target column matched by the relationship key.
func (n *Node) KeyColumn() (string, error) {
	return n.Column.Foreign.KeyColumn()
}

// child returns the registered child for the relationship field.
func (n *Node) child(field string) *Node {
	return findChild(n.Children, field)
}

func findChild(nodes []*Node, field string) *Node {
	for _, c := range nodes {
		if c.Column.Field == field {
			return c
		}
	}
	return nil
}

// Tree is the set of relationships registered on a root table. Nodes are
// created on the first registration of a path and reused afterwards.
type Tree struct {
	Root     *schema.TableInfo
	Children []*Node

	nodes map[string]*Node
	order []*Node
}

// NewTree returns an empty tree rooted at t.
func NewTree(t *schema.TableInfo) *Tree {
	return &Tree{Root: t, nodes: make(map[string]*Node)}
}

// Add registers a relationship path for deferred loading and returns its
// last node. Segments may be dotted: Add("Customer.Address") and
// Add("Customer", "Address") are the same path.
func (t *Tree) Add(path ...string) (*Node, error) {
	return t.add(false, path)
}

// Join registers a relationship path loaded by LEFT JOINs of the root
// query. Every node on the path is joined; collections cannot be.
func (t *Tree) Join(path ...string) (*Node, error) {
	return t.add(true, path)
}

func (t *Tree) add(join bool, path []string) (*Node, error) {
	segs := segments(path)
	if len(segs) == 0 {
		return nil, &orma.InvalidOperationError{Op: "include", Reason: "empty relationship path"}
	}
	var (
		parent *Node
		table  = t.Root
		nodes  = make([]*Node, 0, len(segs))
	)
	for i, seg := range segs {
		key := strings.Join(segs[:i+1], ".")
		n, ok := t.nodes[key]
		if !ok {
			col, ok := table.Field(seg)
			if !ok {
				return nil, &orma.InvalidOperationError{Op: "include", Reason: fmt.Sprintf("%s has no member %s", table.Label(), seg)}
			}
			if col.Native() {
				return nil, &orma.InvalidOperationError{Op: "include", Reason: fmt.Sprintf("%s.%s is not a relationship", table.Label(), col.Field)}
			}
			target, err := col.Foreign.Table()
			if err != nil {
				return nil, err
			}
			n = t.newNode(parent, col, target)
		}
		if join && n.Collection {
			return nil, &orma.InvalidOperationError{Op: "join", Reason: fmt.Sprintf("collection %s cannot be joined", n.Path())}
		}
		nodes = append(nodes, n)
		parent, table = n, n.Table
	}
	if join {
		for _, n := range nodes {
			n.Joined = true
		}
	}
	return parent, nil
}

func (t *Tree) newNode(parent *Node, col *schema.ColumnInfo, target *schema.TableInfo) *Node {
	n := &Node{
		Column:     col,
		Table:      target,
		Parent:     parent,
		Collection: col.Foreign.Collection,
	}
	if parent != nil {
		n.path = append(append([]string(nil), parent.path...), col.Field)
		parent.Children = append(parent.Children, n)
	} else {
		n.path = []string{col.Field}
		t.Children = append(t.Children, n)
	}
	n.Prefix = strings.Join(n.path, "_") + "_"
	n.Alias = "fk_" + strings.Join(n.path, "_")
	t.nodes[n.Path()] = n
	t.order = append(t.order, n)
	return n
}

// AddAll registers every relationship reachable from the root for
// deferred loading, down to depth hops.
func (t *Tree) AddAll(depth int) error {
	var walk func(prefix []string, table *schema.TableInfo, depth int) error
	walk = func(prefix []string, table *schema.TableInfo, depth int) error {
		if depth <= 0 {
			return nil
		}
		for _, c := range table.Foreigns() {
			path := append(append([]string(nil), prefix...), c.Field)
			n, err := t.Add(path...)
			if err != nil {
				return err
			}
			if err := walk(path, n.Table, depth-1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nil, t.Root, depth)
}

// Node returns the node registered for the dotted path.
func (t *Tree) Node(path string) (*Node, bool) {
	n, ok := t.nodes[path]
	return n, ok
}

// Nodes returns the registered nodes, parents before children.
func (t *Tree) Nodes() []*Node {
	return append([]*Node(nil), t.order...)
}

// Len returns the number of registered nodes.
func (t *Tree) Len() int { return len(t.order) }

// Joins returns the LEFT JOIN clauses of the joined nodes below the root,
// whose table is referenced as ref.
func (t *Tree) Joins(ref string) []*sql.Join {
	return joins(t.Children, ref, nil)
}

// Joins returns the LEFT JOIN clauses of the joined descendants of n,
// with n's table referenced as ref.
func (n *Node) Joins(ref string) []*sql.Join {
	return joins(n.Children, ref, nil)
}

func joins(nodes []*Node, ref string, out []*sql.Join) []*sql.Join {
	for _, n := range nodes {
		if !n.Joined || n.Collection {
			continue
		}
		key, err := n.KeyColumn()
		if err != nil {
			continue
		}
		local := n.Column.Foreign.LocalKey
		on := sql.NewWhere().EQ(sql.Column{Table: n.Alias, Name: key}, sql.Column{Table: ref, Name: local})
		out = append(out, &sql.Join{
			Type:  sql.LeftJoin,
			Table: sql.DbName{Name: n.Table.Name, Alias: n.Alias},
			On:    on,
		})
		out = joins(n.Children, n.Alias, out)
	}
	return out
}

// Columns returns the aliased projection of every joined node:
// <alias>.<col> AS <prefix>c_<col>.
func (t *Tree) Columns() []sql.Column {
	return columns(t.Children, nil)
}

// Columns returns the aliased projection of the joined descendants of n.
func (n *Node) Columns() []sql.Column {
	return columns(n.Children, nil)
}

func columns(nodes []*Node, out []sql.Column) []sql.Column {
	for _, n := range nodes {
		if !n.Joined || n.Collection {
			continue
		}
		for _, name := range TableColumns(n.Table) {
			out = append(out, sql.Column{Table: n.Alias, Name: name, Alias: columnAlias(n.Prefix, name)})
		}
		out = columns(n.Children, out)
	}
	return out
}

// TableColumns returns the columns a query reads from t: every native
// column, then the local keys of single relationships that are not
// native columns themselves.
func TableColumns(t *schema.TableInfo) []string {
	natives := t.Natives()
	names := make([]string, 0, len(natives))
	seen := make(map[string]bool, len(natives))
	for _, c := range natives {
		names = append(names, c.Name)
		seen[strings.ToLower(c.Name)] = true
	}
	for _, c := range t.Foreigns() {
		k := c.Foreign.LocalKey
		if c.Foreign.Collection || k == "" || seen[strings.ToLower(k)] {
			continue
		}
		names = append(names, k)
		seen[strings.ToLower(k)] = true
	}
	return names
}

// Projection returns the columns of t qualified by ref.
func Projection(t *schema.TableInfo, ref string) []sql.Column {
	names := TableColumns(t)
	cols := make([]sql.Column, len(names))
	for i, name := range names {
		cols[i] = sql.Column{Table: ref, Name: name}
	}
	return cols
}

// columnAlias returns the result column name of a table column read
// under prefix.
func columnAlias(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "c_" + name
}

// Resolve points a member column at the table it reads: the root table
// (referenced as ref) for a single member, the alias of a joined node
// otherwise. Columns without a member path are returned unchanged.
func (t *Tree) Resolve(c sql.Column, ref string) (sql.Column, error) {
	if !c.IsMember() {
		return c, nil
	}
	last := c.Path[len(c.Path)-1]
	if last.Column == "" {
		return c, &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("member %s is a relationship, not a column", c.MemberPath())}
	}
	if len(c.Path) == 1 {
		return c.Resolved(ref, last.Column), nil
	}
	names := make([]string, len(c.Path)-1)
	for i, m := range c.Path[:len(c.Path)-1] {
		names[i] = m.Name
	}
	n, ok := t.nodes[strings.Join(names, ".")]
	if !ok || !n.Joined {
		return c, t.foreignMemberError(c, names)
	}
	return c.Resolved(n.Alias, last.Column), nil
}

// foreignMemberError names the first relationship of the path that is
// not joined.
func (t *Tree) foreignMemberError(c sql.Column, names []string) error {
	table := t.Root
	for i, name := range names {
		col, ok := table.Field(name)
		if !ok || col.Native() {
			break
		}
		target, err := col.Foreign.Table()
		if err != nil {
			return err
		}
		if n, ok := t.nodes[strings.Join(names[:i+1], ".")]; !ok || !n.Joined {
			return &orma.ForeignMemberError{Member: c.MemberPath(), Table: target.Name, Type: target.Label()}
		}
		table = target
	}
	return &orma.ForeignMemberError{Member: c.MemberPath(), Table: table.Name, Type: table.Label()}
}

// ResolveColumns applies Resolve to every column.
func (t *Tree) ResolveColumns(cols []sql.Column, ref string) ([]sql.Column, error) {
	out := make([]sql.Column, len(cols))
	for i, c := range cols {
		r, err := t.Resolve(c, ref)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// ResolveWhere applies Resolve to every column of w.
func (t *Tree) ResolveWhere(w *sql.Where, ref string) (*sql.Where, error) {
	return w.Rewrite(func(c sql.Column) (sql.Column, error) {
		return t.Resolve(c, ref)
	})
}

func segments(path []string) []string {
	var segs []string
	for _, p := range path {
		for _, s := range strings.Split(p, ".") {
			if s = strings.TrimSpace(s); s != "" {
				segs = append(segs, s)
			}
		}
	}
	return segs
}

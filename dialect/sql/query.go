package sql

import (
	"errors"

	"github.com/syssam/orma"
)

// JoinType is the kind of a join clause.
type JoinType string

// Join types.
const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
	RightJoin JoinType = "RIGHT JOIN"
	CrossJoin JoinType = "CROSS JOIN"
)

// Join is a join clause.
type Join struct {
	Type  JoinType
	Table DbName
	On    *Where
}

// Direction is the sort direction of an Order.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY term.
type Order struct {
	Column    Column
	Direction Direction
}

// SoftDelete names the columns of a soft-delete mapped table.
type SoftDelete struct {
	Column     string // boolean delete flag
	DateColumn string // optional deletion timestamp
}

// Cell is a column/value pair written by insert and update statements.
// A Value of type Expression or Column is rendered instead of bound.
type Cell struct {
	Name  string
	Value any
}

// Row is one record of a bulk write.
type Row []Cell

// Names returns the column names of the row in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Upsert describes an insert-or-update.
type Upsert struct {
	Keys   []string // conflict columns
	Update []string // columns overwritten on conflict; nil means every non-key insert column
	Insert []string // columns written on insert; nil means the columns of the first row
}

// Query is the clause container the grammars compile. It is plain data:
// the grammars never modify it.
type Query struct {
	Table    DbName
	Distinct bool
	Columns  []Column
	Joins    []*Join
	Where    *Where
	GroupBy  []Column
	Having   *Where
	Orders   []Order
	Limit    *int
	Offset   *int

	SoftDelete    *SoftDelete
	Trashed       orma.Trashed
	IgnoreTrashed bool

	errs []error
}

// NewQuery returns a query on the parsed table name. A parse error is
// recorded and reported by Err.
func NewQuery(table string) *Query {
	q := &Query{}
	n, err := ParseName(table)
	if err != nil {
		q.AddError(err)
	}
	q.Table = n
	return q
}

// From returns a query on an already validated name.
func From(table DbName) *Query {
	return &Query{Table: table}
}

// AddError records a construction error.
func (q *Query) AddError(err error) *Query {
	if err != nil {
		q.errs = append(q.errs, err)
	}
	return q
}

// Err returns the construction errors, joined.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}

// Select appends projected columns.
func (q *Query) Select(cols ...Column) *Query {
	q.Columns = append(q.Columns, cols...)
	return q
}

// SetDistinct toggles SELECT DISTINCT.
func (q *Query) SetDistinct(on bool) *Query {
	q.Distinct = on
	return q
}

// AddWhere adds conditions with AND, creating the tree if needed.
func (q *Query) AddWhere(fn func(*Where)) *Query {
	if q.Where == nil {
		q.Where = NewWhere()
	}
	fn(q.Where)
	return q
}

// AddJoin appends a join clause.
func (q *Query) AddJoin(t JoinType, table DbName, on func(*Where)) *Query {
	j := &Join{Type: t, Table: table, On: NewWhere()}
	if on != nil {
		on(j.On)
	}
	q.Joins = append(q.Joins, j)
	return q
}

// OrderBy appends an ORDER BY term.
func (q *Query) OrderBy(col Column, dir Direction) *Query {
	q.Orders = append(q.Orders, Order{Column: col, Direction: dir})
	return q
}

// SetLimit sets the row limit.
func (q *Query) SetLimit(n int) *Query {
	q.Limit = &n
	return q
}

// SetOffset sets the number of rows to skip.
func (q *Query) SetOffset(n int) *Query {
	q.Offset = &n
	return q
}

// Clone deep-copies the clause slices and trees.
func (q *Query) Clone() *Query {
	if q == nil {
		return nil
	}
	c := *q
	c.Columns = append([]Column(nil), q.Columns...)
	c.GroupBy = append([]Column(nil), q.GroupBy...)
	c.Orders = append([]Order(nil), q.Orders...)
	c.errs = append([]error(nil), q.errs...)
	c.Where = q.Where.Clone()
	c.Having = q.Having.Clone()
	c.Joins = make([]*Join, len(q.Joins))
	for i, j := range q.Joins {
		jc := *j
		jc.On = j.On.Clone()
		c.Joins[i] = &jc
	}
	if q.Limit != nil {
		n := *q.Limit
		c.Limit = &n
	}
	if q.Offset != nil {
		n := *q.Offset
		c.Offset = &n
	}
	if q.SoftDelete != nil {
		sd := *q.SoftDelete
		c.SoftDelete = &sd
	}
	return &c
}

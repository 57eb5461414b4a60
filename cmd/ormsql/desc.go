package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// queryDesc is the YAML form of a query:
//
//	statement: select
//	table: Customers c
//	columns: [c.Id, c.Name AS n]
//	joins:
//	  - {type: left, table: Orders o, on: [{column: o.CustomerId, ref: c.Id}]}
//	where:
//	  - {column: c.Country, value: PT}
//	  - {column: c.Name, op: contains, value: "50%", or: true}
//	order_by: [{column: c.Name, desc: true}]
//	limit: 10
type queryDesc struct {
	Statement  string          `yaml:"statement"`
	Table      string          `yaml:"table"`
	Distinct   bool            `yaml:"distinct"`
	Columns    []string        `yaml:"columns"`
	Joins      []joinDesc      `yaml:"joins"`
	Where      []condDesc      `yaml:"where"`
	GroupBy    []string        `yaml:"group_by"`
	Having     []condDesc      `yaml:"having"`
	OrderBy    []orderDesc     `yaml:"order_by"`
	Limit      *int            `yaml:"limit"`
	Offset     *int            `yaml:"offset"`
	Set        []cellDesc      `yaml:"set"`
	SoftDelete *softDeleteDesc `yaml:"soft_delete"`
	Trashed    *orma.Trashed   `yaml:"trashed"`
}

type joinDesc struct {
	Type  string     `yaml:"type"`
	Table string     `yaml:"table"`
	On    []condDesc `yaml:"on"`
}

// condDesc is one condition. Ref compares against another column instead
// of Value; Raw is emitted verbatim with Args bound.
type condDesc struct {
	Or     bool   `yaml:"or"`
	Not    bool   `yaml:"not"`
	Column string `yaml:"column"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value"`
	Ref    string `yaml:"ref"`
	Raw    string `yaml:"raw"`
	Args   []any  `yaml:"args"`
}

type orderDesc struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc"`
}

type cellDesc struct {
	Column string `yaml:"column"`
	Value  any    `yaml:"value"`
}

type softDeleteDesc struct {
	Column     string `yaml:"column"`
	DateColumn string `yaml:"date_column"`
}

var joinTypes = map[string]sql.JoinType{
	"":      sql.InnerJoin,
	"inner": sql.InnerJoin,
	"left":  sql.LeftJoin,
	"right": sql.RightJoin,
	"cross": sql.CrossJoin,
}

var ops = map[string]sql.Op{
	"":            sql.OpEQ,
	"=":           sql.OpEQ,
	"<>":          sql.OpNEQ,
	"!=":          sql.OpNEQ,
	"<":           sql.OpLT,
	"<=":          sql.OpLTE,
	">":           sql.OpGT,
	">=":          sql.OpGTE,
	"like":        sql.OpLike,
	"not like":    sql.OpNotLike,
	"in":          sql.OpIn,
	"not in":      sql.OpNotIn,
	"is null":     sql.OpIsNull,
	"is not null": sql.OpNotNull,
	"between":     sql.OpBetween,
	"not between": sql.OpNotBetween,
}

// decodeDesc reads one query description. Unknown keys are rejected.
func decodeDesc(r io.Reader) (*queryDesc, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var d queryDesc
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding query: %w", err)
	}
	if d.Table == "" {
		return nil, &orma.InvalidOperationError{Op: "compile", Reason: "query has no table"}
	}
	return &d, nil
}

// query builds the clause model. trashed is used when the description
// does not set one.
func (d *queryDesc) query(trashed orma.Trashed) (*sql.Query, error) {
	q := sql.NewQuery(d.Table).SetDistinct(d.Distinct)
	cols, err := sql.Columns(d.Columns...)
	if err != nil {
		return nil, err
	}
	q.Select(cols...)
	for _, j := range d.Joins {
		t, ok := joinTypes[strings.ToLower(j.Type)]
		if !ok {
			return nil, &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("unknown join type %q", j.Type)}
		}
		name, err := sql.ParseName(j.Table)
		if err != nil {
			return nil, err
		}
		on := sql.NewWhere()
		if err := addConds(on, j.On); err != nil {
			return nil, err
		}
		q.AddJoin(t, name, func(w *sql.Where) { w.Conds = on.Conds })
	}
	if len(d.Where) > 0 {
		q.Where = sql.NewWhere()
		if err := addConds(q.Where, d.Where); err != nil {
			return nil, err
		}
	}
	if q.GroupBy, err = sql.Columns(d.GroupBy...); err != nil {
		return nil, err
	}
	if len(d.Having) > 0 {
		q.Having = sql.NewWhere()
		if err := addConds(q.Having, d.Having); err != nil {
			return nil, err
		}
	}
	for _, o := range d.OrderBy {
		col, err := sql.NewColumn(o.Column)
		if err != nil {
			return nil, err
		}
		dir := sql.Asc
		if o.Desc {
			dir = sql.Desc
		}
		q.OrderBy(col, dir)
	}
	q.Limit, q.Offset = d.Limit, d.Offset
	if d.SoftDelete != nil {
		q.SoftDelete = &sql.SoftDelete{Column: d.SoftDelete.Column, DateColumn: d.SoftDelete.DateColumn}
	}
	q.Trashed = trashed
	if d.Trashed != nil {
		q.Trashed = *d.Trashed
	}
	return q, q.Err()
}

func (d *queryDesc) cells() []sql.Cell {
	cells := make([]sql.Cell, len(d.Set))
	for i, c := range d.Set {
		cells[i] = sql.Cell{Name: c.Column, Value: c.Value}
	}
	return cells
}

func addConds(w *sql.Where, conds []condDesc) error {
	for _, c := range conds {
		n := len(w.Conds)
		if err := c.add(w); err != nil {
			return err
		}
		w.Conds[n].Or = c.Or
		w.Conds[n].Not = c.Not
	}
	return nil
}

// add appends exactly one condition to w.
func (c condDesc) add(w *sql.Where) error {
	if c.Raw != "" {
		w.Raw(c.Raw, c.Args...)
		return nil
	}
	col, err := sql.NewColumn(c.Column)
	if err != nil {
		return err
	}
	v := c.Value
	if c.Ref != "" {
		if v, err = sql.NewColumn(c.Ref); err != nil {
			return err
		}
	}
	op := strings.ToLower(strings.Join(strings.Fields(c.Op), " "))
	switch op {
	case "contains", "starts_with", "ends_with":
		s, ok := v.(string)
		if !ok {
			return &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("%s on %s needs a string value", op, c.Column)}
		}
		switch op {
		case "contains":
			w.Contains(col, s)
		case "starts_with":
			w.StartsWith(col, s)
		default:
			w.EndsWith(col, s)
		}
		return nil
	}
	o, ok := ops[op]
	if !ok {
		return &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("unknown operator %q", c.Op)}
	}
	if o == sql.OpBetween || o == sql.OpNotBetween {
		r, ok := v.([]any)
		if !ok || len(r) != 2 {
			return &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("%s on %s needs two values", op, c.Column)}
		}
		v = [2]any{r[0], r[1]}
	}
	w.Cond(col, o, v)
	return nil
}

package sqlgrammar

import (
	"fmt"
	"slices"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

const (
	mergeTarget = "Target"
	mergeSource = "Source"
)

// upsertPlan is an Upsert with its column sets resolved.
type upsertPlan struct {
	keys, update, insert []string
}

func (g *Grammar) plan(u sql.Upsert, insert []string) (upsertPlan, error) {
	p := upsertPlan{keys: u.Keys, insert: insert}
	if len(p.keys) == 0 {
		return p, &orma.InvalidOperationError{Op: "upsert", Reason: "no key columns"}
	}
	for _, k := range p.keys {
		if !slices.Contains(insert, k) {
			return p, &orma.InvalidOperationError{Op: "upsert", Reason: fmt.Sprintf("key column %s is not inserted", k)}
		}
	}
	p.update = u.Update
	if p.update == nil {
		for _, c := range insert {
			if !slices.Contains(p.keys, c) {
				p.update = append(p.update, c)
			}
		}
	}
	for _, c := range append(slices.Clone(p.keys), p.update...) {
		if !sql.ValidName(c) || c == "*" {
			return p, &orma.InvalidNameError{Kind: "identifier", Name: c}
		}
	}
	return p, nil
}

// Upsert compiles an insert-or-update of rows keyed by u.Keys, batched like
// BulkInsert. Update columns default to every inserted column but the
// keys; an empty non-nil Update only inserts missing rows.
func (g *Grammar) Upsert(q *sql.Query, rows []sql.Row, u sql.Upsert) (*sql.Batch, error) {
	b := g.builder()
	if !b.valid(q) {
		return nil, b.Err()
	}
	if g.info.Upsert == UpsertMerge && !g.info.RowValuedUpsert {
		return nil, g.notSupported("upsert", "MERGE from a VALUES list requires table value constructors, use a source table")
	}
	cols, err := g.rowColumns("upsert", rows, u.Insert)
	if err != nil {
		return nil, err
	}
	p, err := g.plan(u, cols)
	if err != nil {
		return nil, err
	}
	var head, tail func(*builder)
	switch g.info.Upsert {
	case UpsertMerge:
		head = func(b *builder) {
			b.WriteString("MERGE INTO ").Table(q.Table).WriteString(" AS ").Ident(mergeTarget).WriteString(" USING (VALUES ")
		}
		tail = func(b *builder) {
			b.WriteString(") AS ").Ident(mergeSource).Pad().identList(p.insert)
			b.merge(p)
		}
	default:
		head = func(b *builder) {
			b.insertHead(q, p).WriteString(" VALUES ")
		}
		tail = func(b *builder) { b.conflict(p) }
	}
	return g.batch("upsert", rows, cols, head, tail)
}

// UpsertFrom compiles an insert-or-update reading its rows from src.
// u.Insert names the inserted columns; src projects them in the same
// order, or projects nothing to select them by name.
func (g *Grammar) UpsertFrom(q *sql.Query, src *sql.Query, u sql.Upsert) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) || !b.valid(src) {
		return b.Query()
	}
	if len(u.Insert) == 0 {
		return sql.Expression{}, &orma.InvalidOperationError{Op: "upsert", Reason: "no columns to insert"}
	}
	if !b.columnNames(u.Insert) {
		return b.Query()
	}
	p, err := g.plan(u, u.Insert)
	if err != nil {
		return sql.Expression{}, err
	}
	src = src.Clone()
	if len(src.Columns) == 0 && !plainTable(src) {
		for _, c := range p.insert {
			src.Columns = append(src.Columns, sql.Column{Name: c})
		}
	}
	switch g.info.Upsert {
	case UpsertMerge:
		b.WriteString("MERGE INTO ").Table(q.Table).WriteString(" AS ").Ident(mergeTarget).WriteString(" USING ")
		if plainTable(src) {
			b.Table(src.Table)
		} else {
			b.Wrap(func(b *builder) { b.Select(src) })
		}
		b.WriteString(" AS ").Ident(mergeSource).merge(p)
	default:
		if len(src.Columns) == 0 {
			for _, c := range p.insert {
				src.Columns = append(src.Columns, sql.Column{Name: c})
			}
		}
		if g.info.Upsert == UpsertOnConflict && g.visible(src).IsEmpty() {
			// INSERT ... SELECT ... ON CONFLICT needs a WHERE to parse on SQLite.
			src.AddWhere(func(w *sql.Where) { w.Raw("TRUE") })
		}
		b.insertHead(q, p).Pad().Select(src).conflict(p)
	}
	return b.Query()
}

// plainTable reports whether src selects a whole table unchanged.
func plainTable(src *sql.Query) bool {
	return len(src.Columns) == 0 && len(src.Joins) == 0 && src.Where.IsEmpty() && len(src.GroupBy) == 0 &&
		len(src.Orders) == 0 && src.Limit == nil && src.Offset == nil && !src.Distinct && src.SoftDelete == nil
}

func (b *builder) identList(cols []string) *builder {
	return b.Wrap(func(b *builder) {
		b.Join(len(cols), func(i int) { b.Ident(cols[i]) })
	})
}

func (b *builder) qualified(table, col string) *builder {
	return b.Ident(table).Byte('.').Ident(col)
}

// merge writes the ON and WHEN clauses of a MERGE statement.
func (b *builder) merge(p upsertPlan) *builder {
	b.WriteString(" ON ")
	for i, k := range p.keys {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.qualified(mergeTarget, k).WriteString(" = ").qualified(mergeSource, k)
	}
	if len(p.update) > 0 {
		b.WriteString(" WHEN MATCHED THEN UPDATE SET ").Join(len(p.update), func(i int) {
			b.qualified(mergeTarget, p.update[i]).WriteString(" = ").qualified(mergeSource, p.update[i])
		})
	}
	b.WriteString(" WHEN NOT MATCHED THEN INSERT ").identList(p.insert).WriteString(" VALUES ").Wrap(func(b *builder) {
		b.Join(len(p.insert), func(i int) { b.qualified(mergeSource, p.insert[i]) })
	})
	return b.Byte(';')
}

// insertHead writes INSERT INTO t (cols), or INSERT IGNORE when a
// duplicate-key upsert has nothing to update.
func (b *builder) insertHead(q *sql.Query, p upsertPlan) *builder {
	if b.g.info.Upsert == UpsertDuplicateKey && len(p.update) == 0 {
		b.WriteString("INSERT IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	return b.Table(q.Table).Pad().identList(p.insert)
}

// conflict writes the conflict clause of INSERT based upserts.
func (b *builder) conflict(p upsertPlan) *builder {
	switch b.g.info.Upsert {
	case UpsertDuplicateKey:
		if len(p.update) > 0 {
			b.WriteString(" ON DUPLICATE KEY UPDATE ").Join(len(p.update), func(i int) {
				b.Ident(p.update[i]).WriteString(" = VALUES(").Ident(p.update[i]).Byte(')')
			})
		}
	case UpsertOnConflict:
		b.WriteString(" ON CONFLICT ").identList(p.keys)
		if len(p.update) == 0 {
			return b.WriteString(" DO NOTHING")
		}
		b.WriteString(" DO UPDATE SET ").Join(len(p.update), func(i int) {
			b.Ident(p.update[i]).WriteString(" = excluded.").Ident(p.update[i])
		})
	}
	return b
}

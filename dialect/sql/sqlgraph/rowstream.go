package sqlgraph

import (
	"context"
	"fmt"

	"github.com/syssam/orma/dialect/sql"
)

// RowStream is a forward-only cursor over result rows.
type RowStream interface {
	// Columns returns the result column names.
	Columns() []string
	// Next advances to the next row. It fails with the context error when
	// ctx is done before the row is read.
	Next(ctx context.Context) (bool, error)
	// Value returns the i-th value of the current row.
	Value(i int) any
	Close() error
	Err() error
}

type scanRows struct {
	rows sql.ColumnScanner
	cols []string
	vals []any
	dest []any
}

// FromRows adapts database rows. The rows are closed by Close.
func FromRows(rows sql.ColumnScanner) (RowStream, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlgraph: columns: %w", err)
	}
	s := &scanRows{rows: rows, cols: cols, vals: make([]any, len(cols)), dest: make([]any, len(cols))}
	for i := range s.dest {
		s.dest[i] = &s.vals[i]
	}
	return s, nil
}

func (s *scanRows) Columns() []string { return s.cols }

func (s *scanRows) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !s.rows.Next() {
		return false, s.rows.Err()
	}
	clear(s.vals)
	if err := s.rows.Scan(s.dest...); err != nil {
		return false, fmt.Errorf("sqlgraph: scan: %w", err)
	}
	return true, nil
}

func (s *scanRows) Value(i int) any { return s.vals[i] }

func (s *scanRows) Close() error { return s.rows.Close() }

func (s *scanRows) Err() error { return s.rows.Err() }

// MemRows is an in-memory RowStream.
type MemRows struct {
	cols []string
	rows [][]any
	pos  int
}

// NewMemRows returns a stream over rows, each holding one value per column.
func NewMemRows(cols []string, rows ...[]any) *MemRows {
	return &MemRows{cols: cols, rows: rows, pos: -1}
}

// Columns returns the column names.
func (m *MemRows) Columns() []string { return m.cols }

// Next advances to the next row.
func (m *MemRows) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if m.pos+1 >= len(m.rows) {
		return false, nil
	}
	m.pos++
	return true, nil
}

// Value returns the i-th value of the current row, or nil past its end.
func (m *MemRows) Value(i int) any {
	row := m.rows[m.pos]
	if i >= len(row) {
		return nil
	}
	return row[i]
}

// Close is a no-op.
func (m *MemRows) Close() error { return nil }

// Err always returns nil.
func (m *MemRows) Err() error { return nil }

var (
	_ RowStream = (*scanRows)(nil)
	_ RowStream = (*MemRows)(nil)
)

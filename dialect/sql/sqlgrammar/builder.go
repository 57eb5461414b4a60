package sqlgrammar

import (
	"errors"
	"strings"

	"github.com/syssam/orma/dialect/sql"
)

// builder accumulates statement text and arguments. The first error is
// kept and every later write is still accepted, so emitters can write
// straight through and check once at the end.
type builder struct {
	g    *Grammar
	sb   strings.Builder
	args []any
	errs []error
}

func (g *Grammar) builder() *builder {
	return &builder{g: g}
}

// WriteString writes s verbatim.
func (b *builder) WriteString(s string) *builder {
	b.sb.WriteString(s)
	return b
}

// Byte writes c verbatim.
func (b *builder) Byte(c byte) *builder {
	b.sb.WriteByte(c)
	return b
}

// Pad writes a single space.
func (b *builder) Pad() *builder {
	return b.Byte(' ')
}

// Comma writes a list separator.
func (b *builder) Comma() *builder {
	return b.WriteString(", ")
}

// Ident writes a quoted, possibly dotted, identifier.
func (b *builder) Ident(name string) *builder {
	return b.WriteString(b.g.Quote(name))
}

// Name writes a table name with its alias.
func (b *builder) Name(n sql.DbName) *builder {
	if n.Unsafe() {
		return b.WriteString(n.Name)
	}
	b.Ident(n.Name)
	if n.Alias != "" {
		b.WriteString(" AS ").Ident(n.Alias)
	}
	return b
}

// Arg writes a placeholder bound to v. Expressions are spliced in and
// columns rendered in place.
func (b *builder) Arg(v any) *builder {
	switch v := v.(type) {
	case sql.Expression:
		return b.Expr(v)
	case *sql.Expression:
		if v == nil {
			return b.WriteString("NULL")
		}
		return b.Expr(*v)
	case sql.Column:
		return b.Column(v)
	}
	b.args = append(b.args, v)
	return b.Byte('?')
}

// Expr splices the flattened expression.
func (b *builder) Expr(e sql.Expression) *builder {
	e = e.Flatten()
	b.args = append(b.args, e.Args...)
	return b.WriteString(e.Text)
}

// Wrap writes the output of fn in parentheses.
func (b *builder) Wrap(fn func(*builder)) *builder {
	b.Byte('(')
	fn(b)
	return b.Byte(')')
}

// Join writes n items produced by fn separated by commas.
func (b *builder) Join(n int, fn func(i int)) *builder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.Comma()
		}
		fn(i)
	}
	return b
}

// AddError records err.
func (b *builder) AddError(err error) *builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the recorded errors.
func (b *builder) Err() error {
	if len(b.errs) == 1 {
		return b.errs[0]
	}
	return errors.Join(b.errs...)
}

// Sub returns an empty builder sharing the grammar.
func (b *builder) Sub() *builder {
	return b.g.builder()
}

// Append splices the text and arguments of another builder.
func (b *builder) Append(o *builder) *builder {
	b.sb.WriteString(o.sb.String())
	b.args = append(b.args, o.args...)
	b.errs = append(b.errs, o.errs...)
	return b
}

// Query returns the accumulated expression.
func (b *builder) Query() (sql.Expression, error) {
	if err := b.Err(); err != nil {
		return sql.Expression{}, err
	}
	return sql.Expression{Text: b.sb.String(), Args: b.args}, nil
}

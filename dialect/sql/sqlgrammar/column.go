package sqlgrammar

import (
	"fmt"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// Column writes c without its alias.
func (b *builder) Column(c sql.Column) *builder {
	e, err := b.g.column(c)
	if err != nil {
		return b.AddError(err)
	}
	b.Expr(e)
	if c.Collation != "" {
		b.WriteString(" COLLATE ")
		if b.g.info.QuoteCollation {
			b.Ident(string(c.Collation))
		} else {
			b.WriteString(string(c.Collation))
		}
	}
	return b
}

// Projection writes c with its alias.
func (b *builder) Projection(c sql.Column) *builder {
	b.Column(c)
	if c.Alias != "" {
		b.WriteString(" AS ").Ident(c.Alias)
	}
	return b
}

// Columns writes a comma separated projection list, or * when empty.
func (b *builder) Columns(cols []sql.Column) *builder {
	if len(cols) == 0 {
		return b.Byte('*')
	}
	return b.Join(len(cols), func(i int) { b.Projection(cols[i]) })
}

// column renders the value of c: its base followed by its calls, applied
// innermost-first.
func (g *Grammar) column(c sql.Column) (sql.Expression, error) {
	var (
		base  sql.Expression
		calls = c.Calls
		err   error
	)
	switch {
	case c.IsMember():
		return sql.Expression{}, &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("member column %s is not resolved", c.MemberPath())}
	case c.Raw != nil:
		base = *c.Raw
	case c.IsLiteral():
		base = sql.Expr("?", c.Literal)
	case c.Sub != nil:
		sub, err := g.Select(c.Sub)
		if err != nil {
			return sql.Expression{}, err
		}
		base = sql.Expr("(?)", sub)
	case c.IsStatic():
		if base, err = g.call(sql.Expression{}, calls[0]); err != nil {
			return sql.Expression{}, err
		}
		calls = calls[1:]
	case c.Name == "":
		return sql.Expression{}, &orma.InvalidOperationError{Op: "compile", Reason: "empty column"}
	case c.Table != "":
		base = sql.Expr(g.Quote(c.Table + "." + c.Name))
	default:
		base = sql.Expr(g.Quote(c.Name))
	}
	for _, call := range calls {
		if base, err = g.call(base, call); err != nil {
			return sql.Expression{}, err
		}
	}
	return base.Flatten(), nil
}

// Translator renders one operation of the method translation table.
type Translator func(FuncCall) sql.Expression

// FuncCall is the input of a Translator.
type FuncCall struct {
	// Recv is the rendered receiver, empty for static operations.
	Recv   sql.Expression
	Args   []any
	Legacy bool
}

// Arg returns the i-th argument, or def when absent.
func (c FuncCall) Arg(i int, def any) any {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return def
}

func (g *Grammar) call(recv sql.Expression, c sql.Call) (sql.Expression, error) {
	tr, ok := g.funcs[c.Func]
	if !ok {
		return sql.Expression{}, &orma.UnsupportedExpressionError{Method: c.Func.String(), Dialect: g.info.Name}
	}
	if !c.Func.Accepts(len(c.Args)) {
		return sql.Expression{}, &orma.UnsupportedExpressionError{Method: fmt.Sprintf("%s with %d arguments", c.Func, len(c.Args)), Dialect: g.info.Name}
	}
	return tr(FuncCall{Recv: recv, Args: c.Args, Legacy: g.info.Legacy}).Flatten(), nil
}

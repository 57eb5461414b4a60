package sql

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Expression is a parameterized SQL fragment: text with "?" placeholders
// and the ordered arguments bound to them. An argument that is itself an
// Expression is spliced into the parent by Flatten.
type Expression struct {
	Text string
	Args []any
}

// Expr returns a new expression.
func Expr(text string, args ...any) Expression {
	return Expression{Text: text, Args: args}
}

// IsEmpty reports whether the expression has no text.
func (e Expression) IsEmpty() bool { return e.Text == "" }

// Flatten replaces every placeholder bound to a nested Expression with the
// nested text and splices its arguments in place, recursively. Arguments
// without a matching placeholder are appended unchanged.
func (e Expression) Flatten() Expression {
	if !hasNested(e.Args) {
		return e
	}
	var (
		sb   strings.Builder
		args = make([]any, 0, len(e.Args))
		next int
	)
	sb.Grow(len(e.Text))
	scan(e.Text, func(s string, placeholder bool) {
		if !placeholder || next >= len(e.Args) {
			sb.WriteString(s)
			return
		}
		arg := e.Args[next]
		next++
		if inner, ok := nested(arg); ok {
			inner = inner.Flatten()
			sb.WriteString(inner.Text)
			args = append(args, inner.Args...)
			return
		}
		sb.WriteByte('?')
		args = append(args, arg)
	})
	args = append(args, e.Args[next:]...)
	return Expression{Text: sb.String(), Args: args}
}

// Placeholders counts the placeholders outside of quoted literals.
func (e Expression) Placeholders() int {
	n := 0
	scan(e.Text, func(_ string, placeholder bool) {
		if placeholder {
			n++
		}
	})
	return n
}

// PlaceholderStyle is the bind-variable syntax of a dialect.
type PlaceholderStyle int

// Placeholder styles.
const (
	PlaceholderQuestion PlaceholderStyle = iota // ?
	PlaceholderDollar                           // $1, $2, ...
)

// Rebind converts the placeholders to the given style. The expression is
// flattened first.
func (e Expression) Rebind(style PlaceholderStyle) Expression {
	e = e.Flatten()
	if style == PlaceholderQuestion {
		return e
	}
	var (
		sb strings.Builder
		n  int
	)
	scan(e.Text, func(s string, placeholder bool) {
		if !placeholder {
			sb.WriteString(s)
			return
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	})
	return Expression{Text: sb.String(), Args: e.Args}
}

// String renders the expression with argument values inlined. The result
// is for logs and tests only; never execute it.
func (e Expression) String() string {
	e = e.Flatten()
	var (
		sb   strings.Builder
		next int
	)
	scan(e.Text, func(s string, placeholder bool) {
		if !placeholder || next >= len(e.Args) {
			sb.WriteString(s)
			return
		}
		sb.WriteString(formatValue(e.Args[next]))
		next++
	})
	return sb.String()
}

// scan splits text into runs and single placeholders, skipping quoted
// string literals.
func scan(text string, fn func(s string, placeholder bool)) {
	start, quoted := 0, false
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			if start < i {
				fn(text[start:i], false)
			}
			fn("?", true)
			start = i + 1
		}
	}
	if start < len(text) {
		fn(text[start:], false)
	}
}

func nested(arg any) (Expression, bool) {
	switch v := arg.(type) {
	case Expression:
		return v, true
	case *Expression:
		if v != nil {
			return *v, true
		}
	}
	return Expression{}, false
}

func hasNested(args []any) bool {
	for _, a := range args {
		if _, ok := nested(a); ok {
			return true
		}
	}
	return false
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + escapeStringValue(v) + "'"
	case []byte:
		return "0x" + hex.EncodeToString(v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case fmt.Stringer:
		return "'" + escapeStringValue(v.String()) + "'"
	default:
		return fmt.Sprint(v)
	}
}

// escapeStringValue escapes a string value for display in SQL.
// It escapes both single quotes (by doubling) and backslashes.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// Batch is an ordered list of statements executed one after another.
type Batch struct {
	Expressions []Expression
}

// Add appends a statement.
func (b *Batch) Add(e Expression) {
	b.Expressions = append(b.Expressions, e)
}

// Len returns the number of statements.
func (b *Batch) Len() int { return len(b.Expressions) }

// Params returns the number of arguments across all statements.
func (b *Batch) Params() int {
	n := 0
	for _, e := range b.Expressions {
		n += len(e.Args)
	}
	return n
}

// Text joins the statement texts with the statement separator.
func (b *Batch) Text() string {
	texts := make([]string, len(b.Expressions))
	for i, e := range b.Expressions {
		texts[i] = e.Text
	}
	return strings.Join(texts, "; ")
}

// String joins the debug forms of all statements.
func (b *Batch) String() string {
	texts := make([]string, len(b.Expressions))
	for i, e := range b.Expressions {
		texts[i] = e.String()
	}
	return strings.Join(texts, "; ")
}

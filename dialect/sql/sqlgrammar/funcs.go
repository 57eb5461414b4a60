package sqlgrammar

import (
	"strings"

	"github.com/syssam/orma/dialect/sql"
)

// fn renders NAME(recv, args...) with every argument bound.
func fn(name string) Translator {
	return func(c FuncCall) sql.Expression {
		var (
			sb   strings.Builder
			args = make([]any, 0, len(c.Args)+1)
		)
		sb.WriteString(name)
		sb.WriteByte('(')
		if !c.Recv.IsEmpty() {
			sb.WriteByte('?')
			args = append(args, c.Recv)
		}
		for _, a := range c.Args {
			if len(args) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			args = append(args, a)
		}
		sb.WriteByte(')')
		return sql.Expression{Text: sb.String(), Args: args}
	}
}

// wrap renders text with its single placeholder bound to the receiver.
func wrap(text string) Translator {
	return func(c FuncCall) sql.Expression {
		return sql.Expr(text, c.Recv)
	}
}

// static renders text verbatim.
func static(text string) Translator {
	return func(FuncCall) sql.Expression {
		return sql.Expr(text)
	}
}

// substring renders NAME(recv, start + 1[, length]): operations count from
// zero while SQL counts from one.
func substring(name string) Translator {
	return func(c FuncCall) sql.Expression {
		if len(c.Args) == 2 {
			return sql.Expr(name+"(?, ? + 1, ?)", c.Recv, c.Args[0], c.Args[1])
		}
		return sql.Expr(name+"(?, ? + 1)", c.Recv, c.Args[0])
	}
}

// round renders ROUND(recv, digits) with digits defaulting to zero.
func round(c FuncCall) sql.Expression {
	return sql.Expr("ROUND(?, ?)", c.Recv, c.Arg(0, 0))
}

// toString renders withFormat when a format is given, plain otherwise.
func toString(withFormat, plain string) Translator {
	return func(c FuncCall) sql.Expression {
		if len(c.Args) == 1 {
			return sql.Expr(withFormat, c.Recv, c.Args[0])
		}
		return sql.Expr(plain, c.Recv)
	}
}

// common are the operations spelled the same by every dialect.
func common() map[sql.Func]Translator {
	return map[sql.Func]Translator{
		sql.FuncToUpper:   fn("UPPER"),
		sql.FuncToLower:   fn("LOWER"),
		sql.FuncTrimStart: fn("LTRIM"),
		sql.FuncTrimEnd:   fn("RTRIM"),
		sql.FuncReplace:   fn("REPLACE"),
		sql.FuncAbs:       fn("ABS"),
		sql.FuncRound:     round,
	}
}

func merge(base, over map[sql.Func]Translator) map[sql.Func]Translator {
	for f, tr := range over {
		base[f] = tr
	}
	return base
}

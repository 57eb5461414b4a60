package sqlgrammar

import (
	"strings"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

func init() {
	Register(&Dialect{
		Info: Info{
			Name:            dialect.SQLite,
			Placeholder:     sql.PlaceholderQuestion,
			Quote:           doubleQuote,
			MaxParams:       999,
			Pagination:      PaginateLimitOffset,
			UnboundedLimit:  "-1",
			Upsert:          UpsertOnConflict,
			RowValuedUpsert: true,
			Returning:       ReturningClause,
			LikeEscape:      ` ESCAPE '\'`,
			DefaultValues:   "DEFAULT VALUES",
			True:            "1",
			False:           "0",
		},
		Funcs: sqliteFuncs,
	})
}

// strftimeInt extracts a numeric date part.
func strftimeInt(format string) Translator {
	return wrap("CAST(strftime('" + format + "', ?) AS INTEGER)")
}

// Floor and Ceiling need the math extension and are left out.
var sqliteFuncs = merge(common(), map[sql.Func]Translator{
	sql.FuncTrim:      fn("TRIM"),
	sql.FuncLength:    fn("LENGTH"),
	sql.FuncSubstring: substring("SUBSTR"),
	sql.FuncConcat: func(c FuncCall) sql.Expression {
		args := append([]any{c.Recv}, c.Args...)
		return sql.Expr("("+strings.Repeat("? || ", len(c.Args))+"?)", args...)
	},
	sql.FuncYear:      strftimeInt("%Y"),
	sql.FuncMonth:     strftimeInt("%m"),
	sql.FuncDay:       strftimeInt("%d"),
	sql.FuncHour:      strftimeInt("%H"),
	sql.FuncMinute:    strftimeInt("%M"),
	sql.FuncSecond:    strftimeInt("%S"),
	sql.FuncDayOfWeek: strftimeInt("%w"),
	sql.FuncDayOfYear: strftimeInt("%j"),
	sql.FuncDate:      fn("DATE"),
	sql.FuncTimeOfDay: fn("TIME"),
	sql.FuncToString: func(c FuncCall) sql.Expression {
		if len(c.Args) == 1 {
			return sql.Expr("strftime(?, ?)", c.Args[0], c.Recv)
		}
		return sql.Expr("CAST(? AS TEXT)", c.Recv)
	},
	sql.FuncNow:    static("datetime('now', 'localtime')"),
	sql.FuncUtcNow: static("datetime('now')"),
	sql.FuncToday:  static("date('now', 'localtime')"),
})

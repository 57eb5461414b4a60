package sqlgrammar

import (
	"github.com/lib/pq"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

func init() {
	Register(&Dialect{
		Info: Info{
			Name:            dialect.Postgres,
			Placeholder:     sql.PlaceholderDollar,
			Quote:           pq.QuoteIdentifier,
			MaxParams:       65535,
			Pagination:      PaginateLimitOffset,
			Upsert:          UpsertOnConflict,
			RowValuedUpsert: true,
			Returning:       ReturningClause,
			LikeEscape:      ` ESCAPE '\'`,
			DefaultValues:   "DEFAULT VALUES",
			True:            "TRUE",
			False:           "FALSE",
			QuoteCollation:  true,
		},
		Funcs: postgresFuncs,
	})
}

var postgresFuncs = merge(common(), map[sql.Func]Translator{
	sql.FuncTrim:      fn("BTRIM"),
	sql.FuncLength:    fn("LENGTH"),
	sql.FuncSubstring: substring("SUBSTR"),
	sql.FuncConcat:    fn("CONCAT"),
	sql.FuncYear:      wrap("EXTRACT(YEAR FROM ?)"),
	sql.FuncMonth:     wrap("EXTRACT(MONTH FROM ?)"),
	sql.FuncDay:       wrap("EXTRACT(DAY FROM ?)"),
	sql.FuncHour:      wrap("EXTRACT(HOUR FROM ?)"),
	sql.FuncMinute:    wrap("EXTRACT(MINUTE FROM ?)"),
	sql.FuncSecond:    wrap("EXTRACT(SECOND FROM ?)"),
	sql.FuncDayOfWeek: wrap("EXTRACT(DOW FROM ?)"),
	sql.FuncDayOfYear: wrap("EXTRACT(DOY FROM ?)"),
	sql.FuncDate:      wrap("CAST(? AS DATE)"),
	sql.FuncTimeOfDay: wrap("CAST(? AS TIME)"),
	sql.FuncToString:  toString("TO_CHAR(?, ?)", "CAST(? AS TEXT)"),
	sql.FuncNow:       static("NOW()"),
	sql.FuncUtcNow:    static("(NOW() AT TIME ZONE 'UTC')"),
	sql.FuncToday:     static("CURRENT_DATE"),
	sql.FuncFloor:     fn("FLOOR"),
	sql.FuncCeiling:   fn("CEIL"),
})

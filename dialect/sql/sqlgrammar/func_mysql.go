package sqlgrammar

import (
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

func init() {
	Register(&Dialect{
		Info: Info{
			Name:            dialect.MySQL,
			Placeholder:     sql.PlaceholderQuestion,
			Quote:           backtick,
			MaxParams:       65535,
			MultiTableDML:   DMLJoinsInline,
			OrderedDML:      true,
			Pagination:      PaginateLimitOffset,
			UnboundedLimit:  "18446744073709551615",
			Upsert:          UpsertDuplicateKey,
			RowValuedUpsert: true,
			Returning:       ReturningLastInsertID,
			DefaultValues:   "() VALUES ()",
			True:            "1",
			False:           "0",
		},
		Funcs: mysqlFuncs,
	})
}

var mysqlFuncs = merge(common(), map[sql.Func]Translator{
	sql.FuncTrim:      fn("TRIM"),
	sql.FuncLength:    fn("CHAR_LENGTH"),
	sql.FuncSubstring: substring("SUBSTRING"),
	sql.FuncConcat:    fn("CONCAT"),
	sql.FuncYear:      fn("YEAR"),
	sql.FuncMonth:     fn("MONTH"),
	sql.FuncDay:       fn("DAY"),
	sql.FuncHour:      fn("HOUR"),
	sql.FuncMinute:    fn("MINUTE"),
	sql.FuncSecond:    fn("SECOND"),
	sql.FuncDayOfWeek: wrap("(DAYOFWEEK(?) - 1)"),
	sql.FuncDayOfYear: fn("DAYOFYEAR"),
	sql.FuncDate:      fn("DATE"),
	sql.FuncTimeOfDay: fn("TIME"),
	sql.FuncToString:  toString("DATE_FORMAT(?, ?)", "CAST(? AS CHAR)"),
	sql.FuncNow:       static("NOW()"),
	sql.FuncUtcNow:    static("UTC_TIMESTAMP()"),
	sql.FuncToday:     static("CURDATE()"),
	sql.FuncFloor:     fn("FLOOR"),
	sql.FuncCeiling:   fn("CEILING"),
})

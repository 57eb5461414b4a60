package sqlgrammar

import (
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

func init() {
	Register(&Dialect{
		Info: Info{
			Name:            dialect.SQLServer,
			Placeholder:     sql.PlaceholderQuestion,
			Quote:           bracket,
			MaxParams:       2100,
			MaxInsertRows:   1000,
			MultiTableDML:   DMLJoinsFrom,
			TopDML:          true,
			Pagination:      PaginateOffsetFetch,
			Upsert:          UpsertMerge,
			RowValuedUpsert: true,
			Returning:       ReturningOutput,
			LikeEscape:      ` ESCAPE '\'`,
			DefaultValues:   "DEFAULT VALUES",
			True:            "1",
			False:           "0",
			ExistsCase:      true,
		},
		Funcs: sqlServerFuncs,
		Legacy: func(i *Info) {
			i.Pagination = PaginateRowNumber
			i.RowValuedUpsert = false
		},
	})
}

var sqlServerFuncs = merge(common(), map[sql.Func]Translator{
	sql.FuncTrim: func(c FuncCall) sql.Expression {
		if c.Legacy {
			return sql.Expr("LTRIM(RTRIM(?))", c.Recv)
		}
		return sql.Expr("TRIM(?)", c.Recv)
	},
	sql.FuncLength: fn("LEN"),
	sql.FuncSubstring: func(c FuncCall) sql.Expression {
		if len(c.Args) == 2 {
			return sql.Expr("SUBSTRING(?, ? + 1, ?)", c.Recv, c.Args[0], c.Args[1])
		}
		return sql.Expr("SUBSTRING(?, ? + 1, LEN(?))", c.Recv, c.Args[0], c.Recv)
	},
	sql.FuncConcat:    fn("CONCAT"),
	sql.FuncYear:      wrap("DATEPART(year, ?)"),
	sql.FuncMonth:     wrap("DATEPART(month, ?)"),
	sql.FuncDay:       wrap("DATEPART(day, ?)"),
	sql.FuncHour:      wrap("DATEPART(hour, ?)"),
	sql.FuncMinute:    wrap("DATEPART(minute, ?)"),
	sql.FuncSecond:    wrap("DATEPART(second, ?)"),
	sql.FuncDayOfWeek: wrap("(DATEPART(weekday, ?) - 1)"),
	sql.FuncDayOfYear: wrap("DATEPART(dayofyear, ?)"),
	sql.FuncDate:      wrap("CAST(? AS DATE)"),
	sql.FuncTimeOfDay: wrap("CAST(? AS TIME)"),
	sql.FuncToString: func(c FuncCall) sql.Expression {
		switch {
		case len(c.Args) == 1:
			return sql.Expr("FORMAT(?, ?)", c.Recv, c.Args[0])
		case c.Legacy:
			return sql.Expr("CONVERT(NVARCHAR(MAX), ?)", c.Recv)
		default:
			return sql.Expr("CAST(? AS NVARCHAR(MAX))", c.Recv)
		}
	},
	sql.FuncNow:     static("GETDATE()"),
	sql.FuncUtcNow:  static("GETUTCDATE()"),
	sql.FuncToday:   static("CAST(GETDATE() AS DATE)"),
	sql.FuncFloor:   fn("FLOOR"),
	sql.FuncCeiling: fn("CEILING"),
})

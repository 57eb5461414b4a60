package sql

import "fmt"

// Func enumerates the operations that can be applied to a column and
// translated by every dialect.
type Func int

// Translatable operations.
const (
	FuncToUpper Func = iota + 1
	FuncToLower
	FuncTrim
	FuncTrimStart
	FuncTrimEnd
	FuncLength
	FuncSubstring
	FuncReplace
	FuncConcat
	FuncYear
	FuncMonth
	FuncDay
	FuncHour
	FuncMinute
	FuncSecond
	FuncDayOfWeek
	FuncDayOfYear
	FuncDate
	FuncTimeOfDay
	FuncToString
	FuncNow
	FuncUtcNow
	FuncToday
	FuncAbs
	FuncRound
	FuncFloor
	FuncCeiling
)

// FuncKind groups operations by the type of value they act on.
type FuncKind int

// Operation kinds.
const (
	KindString FuncKind = iota + 1
	KindDate
	KindNumeric
	KindStatic
)

// funcInfo describes the name and argument bounds of an operation. The
// receiver is not counted; max < 0 means variadic.
type funcInfo struct {
	name     string
	kind     FuncKind
	min, max int
}

var funcs = map[Func]funcInfo{
	FuncToUpper:   {"ToUpper", KindString, 0, 0},
	FuncToLower:   {"ToLower", KindString, 0, 0},
	FuncTrim:      {"Trim", KindString, 0, 0},
	FuncTrimStart: {"TrimStart", KindString, 0, 0},
	FuncTrimEnd:   {"TrimEnd", KindString, 0, 0},
	FuncLength:    {"Length", KindString, 0, 0},
	FuncSubstring: {"Substring", KindString, 1, 2},
	FuncReplace:   {"Replace", KindString, 2, 2},
	FuncConcat:    {"Concat", KindString, 1, -1},
	FuncYear:      {"Year", KindDate, 0, 0},
	FuncMonth:     {"Month", KindDate, 0, 0},
	FuncDay:       {"Day", KindDate, 0, 0},
	FuncHour:      {"Hour", KindDate, 0, 0},
	FuncMinute:    {"Minute", KindDate, 0, 0},
	FuncSecond:    {"Second", KindDate, 0, 0},
	FuncDayOfWeek: {"DayOfWeek", KindDate, 0, 0},
	FuncDayOfYear: {"DayOfYear", KindDate, 0, 0},
	FuncDate:      {"Date", KindDate, 0, 0},
	FuncTimeOfDay: {"TimeOfDay", KindDate, 0, 0},
	FuncToString:  {"ToString", KindString, 0, 1},
	FuncNow:       {"Now", KindStatic, 0, 0},
	FuncUtcNow:    {"UtcNow", KindStatic, 0, 0},
	FuncToday:     {"Today", KindStatic, 0, 0},
	FuncAbs:       {"Abs", KindNumeric, 0, 0},
	FuncRound:     {"Round", KindNumeric, 0, 1},
	FuncFloor:     {"Floor", KindNumeric, 0, 0},
	FuncCeiling:   {"Ceiling", KindNumeric, 0, 0},
}

// String returns the operation name.
func (f Func) String() string {
	if fi, ok := funcs[f]; ok {
		return fi.name
	}
	return fmt.Sprintf("Func(%d)", int(f))
}

// Kind returns the operation kind.
func (f Func) Kind() FuncKind { return funcs[f].kind }

// Static reports whether the operation takes no receiver (e.g. Now).
func (f Func) Static() bool { return funcs[f].kind == KindStatic }

// Arity returns the argument bounds. max is -1 for variadic operations.
func (f Func) Arity() (min, max int) {
	fi := funcs[f]
	return fi.min, fi.max
}

// Accepts reports whether n arguments are valid for the operation.
func (f Func) Accepts(n int) bool {
	fi, ok := funcs[f]
	if !ok {
		return false
	}
	return n >= fi.min && (fi.max < 0 || n <= fi.max)
}

// Call is one operation applied to a column, with constant arguments.
type Call struct {
	Func Func
	Args []any
}

// String returns the debug form, e.g. Substring(0, 3).
func (c Call) String() string {
	s := c.Func.String() + "("
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(a)
	}
	return s + ")"
}

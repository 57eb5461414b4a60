package sql

import "time"

// PredicateFunc is a constraint type for predicate functions.
// It allows generic field types to work with any predicate type that is
// based on func(*Where).
type PredicateFunc interface {
	~func(*Where)
}

// Number is the set of numeric column types.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// FieldEQ returns a predicate comparing the named column with v.
func FieldEQ(name string, v any) func(*Where) {
	return func(w *Where) { w.EQ(C(name), v) }
}

// FieldNEQ returns a predicate for "name <> v".
func FieldNEQ(name string, v any) func(*Where) {
	return func(w *Where) { w.NEQ(C(name), v) }
}

// FieldOp returns a predicate for "name op v".
func FieldOp(name string, op Op, v any) func(*Where) {
	return func(w *Where) { w.Cond(C(name), op, v) }
}

// FieldIn returns a predicate for "name IN (vs...)".
func FieldIn[T any](name string, vs ...T) func(*Where) {
	return func(w *Where) { w.In(C(name), anys(vs)...) }
}

// FieldNotIn returns a predicate for "name NOT IN (vs...)".
func FieldNotIn[T any](name string, vs ...T) func(*Where) {
	return func(w *Where) { w.NotIn(C(name), anys(vs)...) }
}

// FieldIsNull returns a predicate for "name IS NULL".
func FieldIsNull(name string) func(*Where) {
	return func(w *Where) { w.IsNull(C(name)) }
}

// FieldNotNull returns a predicate for "name IS NOT NULL".
func FieldNotNull(name string) func(*Where) {
	return func(w *Where) { w.NotNull(C(name)) }
}

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

// StringField is a generic string column that provides type-safe predicate methods.
// Field names are static and panic when invalid.
//
//	type CustomerPredicate func(*sql.Where)
//	var Email = sql.StringField[CustomerPredicate]("Email")
//	customers.Filter(Email.EQ("test@example.com"), Email.Contains("@gmail"))
//
// customers is a query.Query; Filter accepts any P built on func(*Where).
type StringField[P PredicateFunc] string

// Name returns the column name.
func (f StringField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the column equals the given value.
func (f StringField[P]) EQ(v string) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the column does not equal the given value.
func (f StringField[P]) NEQ(v string) P { return P(FieldNEQ(string(f), v)) }

// In returns a predicate that checks if the column value is in the given list.
func (f StringField[P]) In(vs ...string) P { return P(FieldIn(string(f), vs...)) }

// NotIn returns a predicate that checks if the column value is not in the given list.
func (f StringField[P]) NotIn(vs ...string) P { return P(FieldNotIn(string(f), vs...)) }

// GT returns a predicate for "column > v".
func (f StringField[P]) GT(v string) P { return P(FieldOp(string(f), OpGT, v)) }

// LT returns a predicate for "column < v".
func (f StringField[P]) LT(v string) P { return P(FieldOp(string(f), OpLT, v)) }

// Contains returns a predicate that checks if the column contains the given substring.
func (f StringField[P]) Contains(v string) P {
	return P(func(w *Where) { w.Contains(C(string(f)), v) })
}

// HasPrefix returns a predicate that checks if the column has the given prefix.
func (f StringField[P]) HasPrefix(v string) P {
	return P(func(w *Where) { w.StartsWith(C(string(f)), v) })
}

// HasSuffix returns a predicate that checks if the column has the given suffix.
func (f StringField[P]) HasSuffix(v string) P {
	return P(func(w *Where) { w.EndsWith(C(string(f)), v) })
}

// EqualFold returns a predicate comparing the lower-cased column with the
// lower-cased value.
func (f StringField[P]) EqualFold(v string) P {
	return P(func(w *Where) { w.EQ(C(string(f)).Apply(FuncToLower), Literal(v).Apply(FuncToLower)) })
}

// IsNull returns a predicate that checks if the column is NULL.
func (f StringField[P]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the column is not NULL.
func (f StringField[P]) NotNull() P { return P(FieldNotNull(string(f))) }

// NumberField is a generic numeric column.
type NumberField[P PredicateFunc, T Number] string

// Name returns the column name.
func (f NumberField[P, T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the column equals the given value.
func (f NumberField[P, T]) EQ(v T) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the column does not equal the given value.
func (f NumberField[P, T]) NEQ(v T) P { return P(FieldNEQ(string(f), v)) }

// In returns a predicate that checks if the column value is in the given list.
func (f NumberField[P, T]) In(vs ...T) P { return P(FieldIn(string(f), vs...)) }

// NotIn returns a predicate that checks if the column value is not in the given list.
func (f NumberField[P, T]) NotIn(vs ...T) P { return P(FieldNotIn(string(f), vs...)) }

// GT returns a predicate for "column > v".
func (f NumberField[P, T]) GT(v T) P { return P(FieldOp(string(f), OpGT, v)) }

// GTE returns a predicate for "column >= v".
func (f NumberField[P, T]) GTE(v T) P { return P(FieldOp(string(f), OpGTE, v)) }

// LT returns a predicate for "column < v".
func (f NumberField[P, T]) LT(v T) P { return P(FieldOp(string(f), OpLT, v)) }

// LTE returns a predicate for "column <= v".
func (f NumberField[P, T]) LTE(v T) P { return P(FieldOp(string(f), OpLTE, v)) }

// Between returns a predicate for "column BETWEEN lo AND hi".
func (f NumberField[P, T]) Between(lo, hi T) P {
	return P(func(w *Where) { w.Between(C(string(f)), lo, hi) })
}

// IsNull returns a predicate that checks if the column is NULL.
func (f NumberField[P, T]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the column is not NULL.
func (f NumberField[P, T]) NotNull() P { return P(FieldNotNull(string(f))) }

// BoolField is a generic boolean column.
type BoolField[P PredicateFunc] string

// Name returns the column name.
func (f BoolField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the column equals the given value.
func (f BoolField[P]) EQ(v bool) P { return P(FieldEQ(string(f), v)) }

// NEQ returns a predicate that checks if the column does not equal the given value.
func (f BoolField[P]) NEQ(v bool) P { return P(FieldNEQ(string(f), v)) }

// TimeField is a generic time column.
type TimeField[P PredicateFunc] string

// Name returns the column name.
func (f TimeField[P]) Name() string { return string(f) }

// EQ returns a predicate that checks if the column equals the given value.
func (f TimeField[P]) EQ(v time.Time) P { return P(FieldEQ(string(f), v)) }

// GT returns a predicate for "column > v".
func (f TimeField[P]) GT(v time.Time) P { return P(FieldOp(string(f), OpGT, v)) }

// GTE returns a predicate for "column >= v".
func (f TimeField[P]) GTE(v time.Time) P { return P(FieldOp(string(f), OpGTE, v)) }

// LT returns a predicate for "column < v".
func (f TimeField[P]) LT(v time.Time) P { return P(FieldOp(string(f), OpLT, v)) }

// LTE returns a predicate for "column <= v".
func (f TimeField[P]) LTE(v time.Time) P { return P(FieldOp(string(f), OpLTE, v)) }

// Between returns a predicate for "column BETWEEN lo AND hi".
func (f TimeField[P]) Between(lo, hi time.Time) P {
	return P(func(w *Where) { w.Between(C(string(f)), lo, hi) })
}

// IsNull returns a predicate that checks if the column is NULL.
func (f TimeField[P]) IsNull() P { return P(FieldIsNull(string(f))) }

// NotNull returns a predicate that checks if the column is not NULL.
func (f TimeField[P]) NotNull() P { return P(FieldNotNull(string(f))) }

package schema

import "github.com/go-openapi/inflect"

// Naming derives table and column names from Go identifiers.
type Naming int

// Naming strategies.
const (
	// AsIs keeps Go names unchanged: Order, CustomerID.
	AsIs Naming = iota
	// Snake converts to snake case: order, customer_id.
	Snake
	// PluralSnake is Snake with plural table names: orders, customer_id.
	PluralSnake
)

// Table returns the table name for a type name.
func (n Naming) Table(typeName string) string {
	switch n {
	case Snake:
		return inflect.Underscore(typeName)
	case PluralSnake:
		return inflect.Pluralize(inflect.Underscore(typeName))
	default:
		return typeName
	}
}

// Column returns the column name for a field name.
func (n Naming) Column(field string) string {
	if n == AsIs {
		return field
	}
	return inflect.Underscore(field)
}

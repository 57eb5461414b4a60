package orma

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("orma: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("orma: entity not singular")

	// ErrInvalidName is matched by every InvalidNameError.
	ErrInvalidName = errors.New("orma: invalid name")

	// ErrNotSupported is matched by every NotSupportedError.
	ErrNotSupported = errors.New("orma: not supported")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("orma: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("orma: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError is returned by Query.Only when more than one row
// matches. Seen counts the rows read before giving up, not every match.
type NotSingularError struct {
	Entity string
	Seen   int
}

func (e *NotSingularError) Error() string {
	return fmt.Sprintf("orma: %s not singular (read %d rows, want 1)", e.Entity, e.Seen)
}

func (e *NotSingularError) Is(err error) bool { return err == ErrNotSingular }

// IsNotSingular reports whether err is, or wraps, a NotSingularError.
func IsNotSingular(err error) bool {
	return errors.Is(err, ErrNotSingular)
}

// InvalidNameError is returned when an identifier, alias or collation
// does not match the restrictive name grammar.
type InvalidNameError struct {
	Kind string // "identifier", "alias" or "collation"
	Name string
}

// Error returns the error string.
func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("orma: invalid %s %q", e.Kind, e.Name)
}

// Is reports whether the target error is ErrInvalidName.
func (e *InvalidNameError) Is(err error) bool {
	return err == ErrInvalidName
}

// IsInvalidName returns true if the error is an InvalidNameError.
func IsInvalidName(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidName)
}

// InvalidExpressionError is returned by the expression compiler for any
// construct other than field reads, method calls and constants.
type InvalidExpressionError struct {
	Expr   string
	Reason string
}

// Error returns the error string.
func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("orma: invalid expression %s: %s", e.Expr, e.Reason)
}

// IsInvalidExpression returns true if the error is an InvalidExpressionError.
func IsInvalidExpression(err error) bool {
	var e *InvalidExpressionError
	return errors.As(err, &e)
}

// UnsupportedExpressionError is returned when a method call has no
// translation in the target dialect.
type UnsupportedExpressionError struct {
	Method  string
	Dialect string
}

// Error returns the error string.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("orma: method %s is not supported by the %s dialect", e.Method, e.Dialect)
}

// IsUnsupportedExpression returns true if the error is an UnsupportedExpressionError.
func IsUnsupportedExpression(err error) bool {
	var e *UnsupportedExpressionError
	return errors.As(err, &e)
}

// NotSupportedError is returned when a statement shape cannot be expressed
// in the target dialect (e.g. ordered delete on SQLite).
type NotSupportedError struct {
	Op      string
	Dialect string
	Reason  string
}

// Error returns the error string.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("orma: %s is not supported by the %s dialect: %s", e.Op, e.Dialect, e.Reason)
}

// Is reports whether the target error is ErrNotSupported.
func (e *NotSupportedError) Is(err error) bool {
	return err == ErrNotSupported
}

// IsNotSupported returns true if the error is a NotSupportedError.
func IsNotSupported(err error) bool {
	return err != nil && errors.Is(err, ErrNotSupported)
}

// InvalidOperationError is returned when an operation is called with
// arguments that make it meaningless, such as an update without columns.
type InvalidOperationError struct {
	Op     string
	Reason string
}

// Error returns the error string.
func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("orma: invalid %s: %s", e.Op, e.Reason)
}

// IsInvalidOperation returns true if the error is an InvalidOperationError.
func IsInvalidOperation(err error) bool {
	var e *InvalidOperationError
	return errors.As(err, &e)
}

// ForeignMemberError is returned when a query references a member of a
// relationship that was never registered with Include or Join.
type ForeignMemberError struct {
	Member string // Member path, e.g. "Customer.Name"
	Table  string // Table of the relationship target
	Type   string // Go type of the relationship target
}

// Error returns the error string.
func (e *ForeignMemberError) Error() string {
	return fmt.Sprintf("orma: member %q: no include configured for the '%s' table or for the '%s' type", e.Member, e.Table, e.Type)
}

// IsForeignMember returns true if the error is a ForeignMemberError.
func IsForeignMember(err error) bool {
	var e *ForeignMemberError
	return errors.As(err, &e)
}

// MappingError is returned when a row cannot be mapped into the target type.
type MappingError struct {
	Type   string
	Column string
	Err    error
}

// Error returns the error string.
func (e *MappingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("orma: mapping column %q into %s: %v", e.Column, e.Type, e.Err)
	}
	return fmt.Sprintf("orma: mapping into %s: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *MappingError) Unwrap() error {
	return e.Err
}

// IsMappingError returns true if the error is a MappingError.
func IsMappingError(err error) bool {
	var e *MappingError
	return errors.As(err, &e)
}

// IsCanceled reports whether the error resulted from a canceled or expired
// context observed at a cancellation checkpoint.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("orma: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "count", "exist")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("orma: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("orma: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("orma: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// AggregateError represents multiple errors collected while building a query.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "orma: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("orma: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}

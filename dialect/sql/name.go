package sql

import (
	"regexp"
	"strings"

	"github.com/syssam/orma"
)

var (
	// identRe matches dotted identifiers with an optional temp-table marker
	// and an optional trailing wildcard segment.
	identRe = regexp.MustCompile(`^#?[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*(\.\*)?$`)
	aliasRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// DbName is a validated database identifier with an optional alias.
type DbName struct {
	Name   string
	Alias  string
	unsafe bool
}

// ParseName parses "name", "name alias" or "name AS alias".
func ParseName(s string) (DbName, error) {
	parts := strings.Fields(s)
	var n DbName
	switch {
	case len(parts) == 1:
		n.Name = parts[0]
	case len(parts) == 2:
		n.Name, n.Alias = parts[0], parts[1]
	case len(parts) == 3 && strings.EqualFold(parts[1], "as"):
		n.Name, n.Alias = parts[0], parts[2]
	default:
		return DbName{}, &orma.InvalidNameError{Kind: "identifier", Name: s}
	}
	if !ValidName(n.Name) {
		return DbName{}, &orma.InvalidNameError{Kind: "identifier", Name: n.Name}
	}
	if n.Alias != "" && !ValidAlias(n.Alias) {
		return DbName{}, &orma.InvalidNameError{Kind: "alias", Name: n.Alias}
	}
	return n, nil
}

// MustName is like ParseName but panics on invalid input. Use it for
// names known at compile time.
func MustName(s string) DbName {
	n, err := ParseName(s)
	if err != nil {
		panic(err)
	}
	return n
}

// UnsafeName returns a name that is emitted verbatim, without validation
// or quoting.
func UnsafeName(s string) DbName {
	return DbName{Name: s, unsafe: true}
}

// ValidName reports whether s is a valid (possibly dotted) identifier.
func ValidName(s string) bool {
	return s == "*" || identRe.MatchString(s)
}

// ValidAlias reports whether s is a valid alias.
func ValidAlias(s string) bool {
	return aliasRe.MatchString(s)
}

// As returns a copy of the name with the given alias.
func (n DbName) As(alias string) DbName {
	n.Alias = alias
	return n
}

// Unsafe reports whether the name bypasses validation.
func (n DbName) Unsafe() bool { return n.unsafe }

// IsZero reports whether the name is empty.
func (n DbName) IsZero() bool { return n.Name == "" }

// Ref returns the name other clauses use to qualify columns: the alias if
// present, the name otherwise.
func (n DbName) Ref() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// IsWildcard reports whether the name selects all columns.
func (n DbName) IsWildcard() bool {
	return n.Name == "*" || strings.HasSuffix(n.Name, ".*")
}

// String returns the unquoted debug form.
func (n DbName) String() string {
	if n.Alias != "" {
		return n.Name + " " + n.Alias
	}
	return n.Name
}

// Collation is a validated collation name.
type Collation string

// NewCollation validates a collation name.
func NewCollation(name string) (Collation, error) {
	if !aliasRe.MatchString(name) {
		return "", &orma.InvalidNameError{Kind: "collation", Name: name}
	}
	return Collation(name), nil
}

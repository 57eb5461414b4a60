// Package sqlgrammar compiles the clause model of dialect/sql into
// parameterized SQL for a given dialect.
//
// A Grammar is a set of pure functions: every method reads the query it is
// given and returns a new sql.Expression (or sql.Batch) without keeping any
// state between calls, so one Grammar may be shared freely.
//
//	g, err := sqlgrammar.New(dialect.SQLServer)
//	if err != nil {
//	    return err
//	}
//	q := sql.NewQuery("T").SetLimit(8).SetOffset(0).OrderBy(sql.C("Id"), sql.Asc)
//	e, err := g.Select(q)
//	// SELECT * FROM [T] ORDER BY [Id] ASC OFFSET 0 ROWS FETCH NEXT 8 ROWS ONLY
//
// Expressions always use "?" placeholders. Callers executing them on a
// dialect with another placeholder style rebind them first:
//
//	e = e.Rebind(g.Info().Placeholder)
package sqlgrammar

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// Pagination is the strategy used to render limit and offset.
type Pagination int

// Pagination strategies.
const (
	// PaginateLimitOffset renders LIMIT m OFFSET n.
	PaginateLimitOffset Pagination = iota
	// PaginateOffsetFetch renders OFFSET n ROWS FETCH NEXT m ROWS ONLY, or
	// TOP(m) when there is no offset.
	PaginateOffsetFetch
	// PaginateRowNumber filters a ROW_NUMBER() column in an outer query.
	PaginateRowNumber
)

// UpsertStyle is the native insert-or-update construct of a dialect.
type UpsertStyle int

// Upsert styles.
const (
	UpsertOnConflict UpsertStyle = iota // INSERT ... ON CONFLICT
	UpsertDuplicateKey                  // INSERT ... ON DUPLICATE KEY UPDATE
	UpsertMerge                         // MERGE ... USING
)

// ReturningStyle is how generated keys are read back after an insert.
type ReturningStyle int

// Returning styles.
const (
	ReturningClause       ReturningStyle = iota // ... RETURNING pk
	ReturningOutput                             // ... OUTPUT INSERTED.pk ...
	ReturningLastInsertID                       // driver reported, no SQL
)

// DMLJoins is the multi-table form of UPDATE and DELETE.
type DMLJoins int

// Multi-table DML forms.
const (
	// NoDMLJoins rejects UPDATE and DELETE with joins.
	NoDMLJoins DMLJoins = iota
	// DMLJoinsFrom renders UPDATE ref SET ... FROM table JOIN ...
	DMLJoinsFrom
	// DMLJoinsInline renders UPDATE table JOIN ... SET ...
	DMLJoinsInline
)

// Info describes the capabilities of a dialect.
type Info struct {
	Name        string
	Placeholder sql.PlaceholderStyle
	// Quote quotes one identifier segment.
	Quote func(string) string
	// MaxParams is the largest number of parameters in one statement.
	MaxParams int
	// MaxInsertRows bounds the rows of one INSERT ... VALUES, 0 if unbounded.
	MaxInsertRows int
	// MultiTableDML is how UPDATE and DELETE accept joins.
	MultiTableDML DMLJoins
	// OrderedDML reports whether UPDATE and DELETE accept ORDER BY and LIMIT.
	OrderedDML bool
	// TopDML reports whether UPDATE and DELETE accept TOP(n).
	TopDML     bool
	Pagination Pagination
	// UnboundedLimit is the LIMIT written when only an offset is set. Empty
	// means OFFSET may stand alone.
	UnboundedLimit string
	Upsert         UpsertStyle
	// RowValuedUpsert reports whether an upsert may take its rows from a
	// VALUES list rather than a source table.
	RowValuedUpsert bool
	Returning       ReturningStyle
	// DefaultValues completes an INSERT without columns.
	DefaultValues string
	// LikeEscape is appended to LIKE patterns built with sql.EscapeLike.
	LikeEscape string
	// True and False are the boolean literals of the soft-delete flag.
	True, False string
	// QuoteCollation reports whether collation names are identifiers.
	QuoteCollation bool
	// ExistsCase wraps EXISTS in a CASE expression to select it.
	ExistsCase bool
	// Legacy enables the compatibility mode of older server versions.
	Legacy bool
}

// Dialect is a registered grammar definition.
type Dialect struct {
	Info  Info
	Funcs map[sql.Func]Translator
	// Legacy adjusts the capabilities for legacy mode. Nil means the
	// dialect has no legacy mode.
	Legacy func(*Info)
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// Register installs d under its name, replacing any previous definition.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Info.Name)] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// List returns the registered dialect names, sorted.
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures a Grammar.
type Option func(*options)

type options struct {
	legacy    bool
	maxParams int
}

// WithLegacyPagination enables legacy mode: ROW_NUMBER() pagination and
// the older function forms on SQL Server. Other dialects ignore it.
func WithLegacyPagination(on bool) Option {
	return func(o *options) { o.legacy = on }
}

// WithMaxParams overrides the per-statement parameter limit.
func WithMaxParams(n int) Option {
	return func(o *options) { o.maxParams = n }
}

// FromConfig returns the options matching cfg.
func FromConfig(cfg orma.Config) []Option {
	return []Option{WithLegacyPagination(cfg.LegacyPagination), WithMaxParams(cfg.MaxParams)}
}

// Grammar compiles clause models for one dialect.
type Grammar struct {
	info  Info
	funcs map[sql.Func]Translator
}

// New returns the grammar of the named dialect.
func New(name string, opts ...Option) (*Grammar, error) {
	d, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("dialect/sql/sqlgrammar: unknown dialect %q", name)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	info := d.Info
	if o.legacy && d.Legacy != nil {
		info.Legacy = true
		d.Legacy(&info)
	}
	if o.maxParams > 0 {
		info.MaxParams = o.maxParams
	}
	return &Grammar{info: info, funcs: d.Funcs}, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, opts ...Option) *Grammar {
	g, err := New(name, opts...)
	if err != nil {
		panic(err)
	}
	return g
}

// Info returns the dialect capabilities.
func (g *Grammar) Info() Info { return g.info }

// Dialect returns the dialect name.
func (g *Grammar) Dialect() string { return g.info.Name }

// Quote quotes a possibly dotted identifier. Wildcard segments stay bare.
func (g *Grammar) Quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = g.info.Quote(p)
		}
	}
	return strings.Join(parts, ".")
}

func (g *Grammar) notSupported(op, reason string) error {
	return &orma.NotSupportedError{Op: op, Dialect: g.info.Name, Reason: reason}
}

func bracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

func backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

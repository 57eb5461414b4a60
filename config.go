package orma

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Trashed controls the visibility of soft-deleted rows.
type Trashed int

// Visibility values for soft-deleted rows.
const (
	TrashedExcept Trashed = iota // only rows that are not deleted (default)
	TrashedOnly                  // only deleted rows
	TrashedWith                  // every row
)

// String implements fmt.Stringer.
func (t Trashed) String() string {
	switch t {
	case TrashedExcept:
		return "except"
	case TrashedOnly:
		return "only"
	case TrashedWith:
		return "with"
	default:
		return fmt.Sprintf("Trashed(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Trashed) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so the value can be
// loaded from configuration files and environment variables.
func (t *Trashed) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "except":
		*t = TrashedExcept
	case "only":
		*t = TrashedOnly
	case "with":
		*t = TrashedWith
	default:
		return fmt.Errorf("orma: unknown trashed visibility %q", b)
	}
	return nil
}

// Config holds the translation and mapping settings shared by every query
// built for one database.
type Config struct {
	// Dialect is one of the dialect package names.
	Dialect string `koanf:"dialect"`
	// LegacyPagination selects ROW_NUMBER based paging on SQL Server
	// versions that lack OFFSET/FETCH.
	LegacyPagination bool `koanf:"legacy_pagination"`
	// MaxParams overrides the dialect's parameter limit for batching.
	MaxParams int `koanf:"max_params"`
	// CreateForeignIfNoDepth fills unregistered single relationships with
	// a stub holding only the key.
	CreateForeignIfNoDepth bool `koanf:"create_foreign_if_no_depth"`
	// ForeignDepth registers every relationship of the root type as a
	// deferred load, recursively up to this depth.
	ForeignDepth int `koanf:"foreign_depth"`
	// ForeignBatchSize groups up to this many keys into one IN query
	// during the resolution pass. Values below 2 fetch one key at a time.
	ForeignBatchSize int `koanf:"foreign_batch_size"`
	// Trashed is the default soft-delete visibility.
	Trashed Trashed `koanf:"trashed"`

	// Logger receives statement logs at debug level.
	Logger *slog.Logger `koanf:"-"`
	// Now returns the timestamp written into timestamp columns.
	Now func() time.Time `koanf:"-"`
}

// Option configures a Config.
type Option func(*Config)

// NewConfig returns a Config for the dialect with the given options applied.
func NewConfig(dialect string, opts ...Option) Config {
	c := Config{Dialect: dialect}
	for _, opt := range opts {
		opt(&c)
	}
	return c.WithDefaults()
}

// WithDefaults fills unset fields.
func (c Config) WithDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
	return c
}

// WithLegacyPagination toggles ROW_NUMBER based pagination.
func WithLegacyPagination(on bool) Option {
	return func(c *Config) { c.LegacyPagination = on }
}

// WithMaxParams overrides the parameter limit used for batching.
func WithMaxParams(n int) Option {
	return func(c *Config) { c.MaxParams = n }
}

// WithForeignStubs enables key-only stubs for unregistered relationships.
func WithForeignStubs(on bool) Option {
	return func(c *Config) { c.CreateForeignIfNoDepth = on }
}

// WithForeignDepth registers relationships automatically up to depth.
func WithForeignDepth(depth int) Option {
	return func(c *Config) { c.ForeignDepth = depth }
}

// WithForeignBatchSize sets how many keys one secondary query may load.
func WithForeignBatchSize(n int) Option {
	return func(c *Config) { c.ForeignBatchSize = n }
}

// WithTrashed sets the default soft-delete visibility.
func WithTrashed(t Trashed) Option {
	return func(c *Config) { c.Trashed = t }
}

// WithLogger sets the statement logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

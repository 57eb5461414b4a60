package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

// driverNames are the database/sql drivers registered per dialect, the
// default first. go-mssqldb accepts "?" placeholders only under its
// "mssql" name.
var driverNames = map[string][]string{
	dialect.MySQL:     {"mysql"},
	dialect.Postgres:  {"postgres", "pgx"},
	dialect.SQLite:    {"sqlite"},
	dialect.SQLServer: {"mssql"},
}

// DriverName returns the database/sql driver used for d.
func (d Database) DriverName() (string, error) {
	names, ok := driverNames[d.Dialect]
	if !ok {
		return "", &orma.InvalidOperationError{Op: "open", Reason: fmt.Sprintf("unknown dialect %q", d.Dialect)}
	}
	if d.Driver == "" {
		return names[0], nil
	}
	if !slices.Contains(names, d.Driver) {
		return "", &orma.InvalidOperationError{Op: "open", Reason: fmt.Sprintf("driver %q does not serve the %s dialect", d.Driver, d.Dialect)}
	}
	return d.Driver, nil
}

// Open connects to the configured database and checks the connection.
func (c *Config) Open(ctx context.Context) (*sql.Driver, error) {
	name, err := c.Database.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := c.Database.Source()
	if err != nil {
		return nil, err
	}
	drv, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", name, err)
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		drv.Close()
		return nil, fmt.Errorf("config: ping %s: %w", name, err)
	}
	return drv, nil
}

// Logger returns a text logger writing to stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	l, _ := c.Level()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// Orma returns the orma settings with the logger attached.
func (c *Config) Orma() orma.Config {
	cfg := c.ORM
	cfg.Logger = c.Logger()
	return cfg.WithDefaults()
}

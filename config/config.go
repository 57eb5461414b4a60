// Package config loads orma settings from defaults, a YAML file, ORMA_
// environment variables and command line flags, and opens the configured
// database.
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
)

// EnvPrefix is the prefix of the environment variables read by Load. A
// double underscore separates nested keys: ORMA_DATABASE__HOST.
const EnvPrefix = "ORMA_"

// Database holds the connection settings.
type Database struct {
	// Dialect is one of the dialect package names.
	Dialect string `koanf:"dialect"`
	// Driver selects among the drivers of the dialect, e.g. "pgx" instead
	// of lib/pq for Postgres.
	Driver string `koanf:"driver"`
	// DSN is used verbatim when set; the other fields are ignored.
	DSN      string            `koanf:"dsn"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Name     string            `koanf:"name"` // database name, or file path for SQLite
	Params   map[string]string `koanf:"params"`
}

// Config is the loaded configuration.
type Config struct {
	Database Database    `koanf:"database"`
	ORM      orma.Config `koanf:"orm"`
	LogLevel string      `koanf:"log_level"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"dialect":            "database.dialect",
	"driver":             "database.driver",
	"dsn":                "database.dsn",
	"legacy-pagination":  "orm.legacy_pagination",
	"max-params":         "orm.max_params",
	"foreign-depth":      "orm.foreign_depth",
	"foreign-batch-size": "orm.foreign_batch_size",
	"foreign-stubs":      "orm.create_foreign_if_no_depth",
	"trashed":            "orm.trashed",
	"log-level":          "log_level",
}

// Flags registers the flags Load reads on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("dialect", "", "SQL dialect: "+strings.Join(dialect.Names(), ", "))
	fs.String("driver", "", "database/sql driver, when the dialect has several")
	fs.String("dsn", "", "data source name")
	fs.Bool("legacy-pagination", false, "use ROW_NUMBER pagination on SQL Server")
	fs.Int("max-params", 0, "override the parameter limit of the dialect")
	fs.Int("foreign-depth", 0, "register relationships up to this depth")
	fs.Int("foreign-batch-size", 1, "keys loaded by one relationship query")
	fs.Bool("foreign-stubs", false, "fill unloaded relationships with key-only stubs")
	fs.String("trashed", "except", "soft-deleted rows: except, only or with")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
}

// Load reads the configuration. Precedence, highest first: flags that were
// set, environment variables, the file at path, defaults. path and flags
// may be empty.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]any{
		"database.dialect":       dialect.SQLite,
		"orm.foreign_batch_size": 1,
		"orm.trashed":            "except",
		"log_level":              "info",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("config: flags: %w", err)
		}
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills the ORM dialect from the database and validates both.
func (c *Config) normalize() error {
	c.Database.Dialect = sql.DialectOf(strings.ToLower(c.Database.Dialect))
	if !slices.Contains(dialect.Names(), c.Database.Dialect) {
		return &orma.InvalidOperationError{Op: "config", Reason: fmt.Sprintf("unknown dialect %q", c.Database.Dialect)}
	}
	if c.ORM.Dialect == "" {
		c.ORM.Dialect = c.Database.Dialect
	}
	if c.ORM.Dialect != c.Database.Dialect {
		return &orma.InvalidOperationError{Op: "config", Reason: fmt.Sprintf("orm dialect %q does not match database dialect %q", c.ORM.Dialect, c.Database.Dialect)}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("config: log level: %w", err)
	}
	return l, nil
}

// Source returns the data source name of d in the format of its driver.
func (d Database) Source() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}
	switch d.Dialect {
	case dialect.MySQL:
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = d.addr(3306)
		mc.DBName = d.Name
		mc.ParseTime = true
		if len(d.Params) > 0 {
			mc.Params = d.Params
		}
		return mc.FormatDSN(), nil
	case dialect.Postgres:
		return d.url("postgres", d.addr(5432), "/"+d.Name, nil), nil
	case dialect.SQLServer:
		return d.url("sqlserver", d.addr(1433), "", map[string]string{"database": d.Name}), nil
	case dialect.SQLite:
		name := d.Name
		if name == "" {
			name = ":memory:"
		}
		if len(d.Params) == 0 {
			return name, nil
		}
		return "file:" + name + "?" + query(d.Params, nil), nil
	default:
		return "", &orma.InvalidOperationError{Op: "dsn", Reason: fmt.Sprintf("unknown dialect %q", d.Dialect)}
	}
}

func (d Database) addr(port int) string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	if d.Port != 0 {
		port = d.Port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (d Database) url(scheme, host, path string, extra map[string]string) string {
	u := url.URL{Scheme: scheme, Host: host, Path: path}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	u.RawQuery = query(d.Params, extra)
	return u.String()
}

func query(params, extra map[string]string) string {
	v := url.Values{}
	for k, p := range params {
		v.Set(k, p)
	}
	for k, p := range extra {
		if p != "" {
			v.Set(k, p)
		}
	}
	return v.Encode()
}

package sql

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/syssam/orma/dialect"
)

type opKey struct{}

// WithOp labels ctx with the operation issuing statements on it, such as
// "select" or "load Customer" for a foreign-key batch. StatsDriver counts
// statements per label and DebugDriver logs it.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OpOf returns the operation label of ctx, or "".
func OpOf(ctx context.Context) string {
	op, _ := ctx.Value(opKey{}).(string)
	return op
}

// Stats is a snapshot of the statements run through a StatsDriver.
type Stats struct {
	Queries  int64
	Execs    int64
	Rows     int64 // rows read from query results
	Slow     int64
	Errors   int64
	Duration time.Duration
	Ops      map[string]int64 // statements per operation label
}

// String returns the one-line summary printed by ormsql run --stats.
func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "queries=%d execs=%d rows=%d slow=%d errors=%d duration=%s",
		s.Queries, s.Execs, s.Rows, s.Slow, s.Errors, s.Duration)
	if len(s.Ops) > 0 {
		sb.WriteString(" ops=[")
		for i, op := range slices.Sorted(maps.Keys(s.Ops)) {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%s:%d", op, s.Ops[op])
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// StatsDriver wraps a dialect.Driver and counts the statements, result
// rows and failures going through it. Statements of transactions started
// on it are not counted.
type StatsDriver struct {
	dialect.Driver
	slow time.Duration
	log  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.slow = d
	}
}

// WithSlowQueryLog logs slow statements as warnings to l.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		s.log = l
	}
}

// NewStatsDriver wraps drv with statement statistics.
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowQueryLog(logger))
//	orders, _ := query.New[Order](stats, cfg)
//	_, _ = orders.Include("Customer")
//	_, _ = orders.Get(ctx)
//	fmt.Println(stats.Stats()) // queries=2 ... ops=[load Customer:1 select:1]
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver: drv,
		slow:   100 * time.Millisecond,
		stats:  Stats{Ops: map[string]int64{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns a snapshot of the counters.
func (d *StatsDriver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Ops = maps.Clone(d.stats.Ops)
	return s
}

// Query executes a query and records it. Rows read from v are counted.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, time.Since(start), err, true)
	if r, ok := v.(*Rows); ok && err == nil && r.ColumnScanner != nil {
		r.ColumnScanner = &countedRows{ColumnScanner: r.ColumnScanner, d: d}
	}
	return err
}

// Exec executes a statement and records it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, time.Since(start), err, false)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, took time.Duration, err error, isQuery bool) {
	op := OpOf(ctx)
	d.mu.Lock()
	if isQuery {
		d.stats.Queries++
	} else {
		d.stats.Execs++
	}
	if op != "" {
		d.stats.Ops[op]++
	}
	d.stats.Duration += took
	if err != nil {
		d.stats.Errors++
	}
	slow := took > d.slow
	if slow {
		d.stats.Slow++
	}
	d.mu.Unlock()

	if slow && d.log != nil {
		argv, _ := argsOf(args)
		d.log.WarnContext(ctx, "slow query detected", "op", op, "duration", took, "query", query, "args", len(argv))
	}
}

type countedRows struct {
	ColumnScanner
	d *StatsDriver
}

func (r *countedRows) Next() bool {
	ok := r.ColumnScanner.Next()
	if ok {
		r.d.mu.Lock()
		r.d.stats.Rows++
		r.d.mu.Unlock()
	}
	return ok
}

// DebugDriver wraps a Driver and logs every statement at debug level.
type DebugDriver struct {
	dialect.Driver
	logger *slog.Logger
}

// DebugOption configures the DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger statements are written to.
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugDriver) {
		d.logger = l
	}
}

// NewDebugDriver wraps a Driver with debug logging.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "query", "op", OpOf(ctx), "sql", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}

func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "exec", "op", OpOf(ctx), "sql", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
)

// Package warehouse connects to the gold-schema analytics database and
// executes generated SQL against it.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querystudio/querystudio/internal/config"
)

const (
	DefaultSchema      = "gold"
	DefaultSampleLimit = 5
)

// DSN builds the Postgres connection URL for db with the session search path
// pinned to schema.
func DSN(db config.DBConfig, schema string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
		Host:   net.JoinHostPort(db.Host, db.Port),
		Path:   "/" + db.Database,
	}
	if schema != "" {
		u.RawQuery = url.Values{"search_path": []string{schema}}.Encode()
	}
	return u.String()
}

type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	// Unpooled drops idle connections so every execution dials a fresh one.
	Unpooled bool
}

func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("warehouse dsn is required")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverPostgres
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open warehouse db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.Unpooled {
		db.SetMaxIdleConns(0)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping warehouse db: %w", err)
	}
	return db, nil
}

// Warehouse pairs the pooled handle used for schema introspection with the
// sampler that executes generated SQL.
type Warehouse struct {
	db      *sql.DB
	schema  string
	sampler *Sampler
	closers []*sql.DB
}

// New wraps already opened handles. sampleDB may equal db.
func New(db, sampleDB *sql.DB, schema string) *Warehouse {
	if schema == "" {
		schema = DefaultSchema
	}
	w := &Warehouse{
		db:      db,
		schema:  schema,
		sampler: NewSampler(sampleDB, schema),
		closers: []*sql.DB{db},
	}
	if sampleDB != db {
		w.closers = append(w.closers, sampleDB)
	}
	return w
}

// Connect opens the warehouse described by cfg. Postgres gets a pooled handle
// for the agent and an unpooled one for samples. A DuckDB file holds a
// process-wide lock, so both roles share one handle.
func Connect(ctx context.Context, cfg config.Config) (*Warehouse, error) {
	switch cfg.Warehouse.Driver {
	case config.DriverDuckDB:
		db, err := Open(ctx, Config{
			Driver:       config.DriverDuckDB,
			DSN:          cfg.Warehouse.DuckDBPath,
			MaxOpenConns: cfg.Warehouse.MaxOpenConns,
		})
		if err != nil {
			return nil, err
		}
		return New(db, db, DefaultSchema), nil
	case config.DriverPostgres, "":
		dsn := DSN(cfg.DB, DefaultSchema)
		db, err := Open(ctx, Config{
			Driver:          config.DriverPostgres,
			DSN:             dsn,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		sampleDB, err := Open(ctx, Config{Driver: config.DriverPostgres, DSN: dsn, Unpooled: true})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return New(db, sampleDB, DefaultSchema), nil
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}

func (w *Warehouse) Schema() string {
	return w.schema
}

func (w *Warehouse) Sampler() *Sampler {
	return w.sampler
}

func (w *Warehouse) DB() *sql.DB {
	return w.db
}

func (w *Warehouse) Ping(ctx context.Context) error {
	return w.db.PingContext(ctx)
}

func (w *Warehouse) Close() error {
	var firstErr error
	for _, db := range w.closers {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// withSchema runs fn on a dedicated connection whose search path is the
// warehouse schema.
func withSchema(ctx context.Context, db *sql.DB, schema string, fn func(*sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "SET search_path = "+quoteLiteral(schema)); err != nil {
		return fmt.Errorf("set search path: %w", err)
	}
	return fn(conn)
}

func quoteLiteral(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

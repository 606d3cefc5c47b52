// Package sqldb implementa la variante de tabla ordenada del record store
// sobre database/sql. Un mismo código sirve a PostgreSQL (driver pgx) y SQLite
// (driver modernc); solo cambia el dialecto de placeholders.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dropDatabas3/hellocms/internal/domain/repository"
	"github.com/dropDatabas3/hellocms/internal/store"
	"github.com/dropDatabas3/hellocms/migrations"
)

func init() {
	store.RegisterAdapter(&sqlAdapter{name: "postgres", driver: "pgx", dialect: dialectPostgres})
	store.RegisterAdapter(&sqlAdapter{name: "sqlite", driver: "sqlite", dialect: dialectSQLite})
}

// MaxListLimit máximo de records por página en la variante SQL.
const MaxListLimit = 100

type dialect int

const (
	dialectPostgres dialect = iota + 1
	dialectSQLite
)

// rebind convierte placeholders '?' al formato del dialecto.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlAdapter implementa store.Adapter para un driver database/sql.
type sqlAdapter struct {
	name    string
	driver  string
	dialect dialect
}

func (a *sqlAdapter) Name() string { return a.name }

func (a *sqlAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%s: DSN required", a.name)
	}

	db, err := sql.Open(a.driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", a.name, err)
	}

	if a.dialect == dialectSQLite {
		// SQLite admite un solo writer; con :memory: además cada conexión es otra DB.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		} else {
			db.SetMaxOpenConns(10)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		} else {
			db.SetMaxIdleConns(2)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping failed: %w", a.name, err)
	}

	if a.dialect == dialectSQLite {
		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("%s: %q: %w", a.name, pragma, err)
			}
		}
	}

	return newConnection(a.name, db, a.dialect), nil
}

// Connection es una conexión activa a la base SQL.
type Connection struct {
	name    string
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newConnection(name string, db *sql.DB, d dialect) *Connection {
	return &Connection{
		name:    name,
		db:      db,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *Connection) Close() error { return c.db.Close() }

// DB expone el pool para herramientas (métricas, CLI).
func (c *Connection) DB() *sql.DB { return c.db }

// ─── Repositorios ───

func (c *Connection) Records() repository.RecordRepository   { return &recordRepo{c: c} }
func (c *Connection) Users() repository.UserRepository       { return &userRepo{c: c} }
func (c *Connection) Sessions() repository.SessionRepository { return &sessionRepo{c: c} }

// Migrate aplica las migraciones embebidas del dialecto.
func (c *Connection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	driver := "sqlite"
	if c.dialect == dialectPostgres {
		driver = "postgres"
	}
	m := store.NewMigrator(migrations.FS, migrations.Dir(driver))
	return m.Run(ctx, c.db, driver)
}

func (c *Connection) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c *Connection) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c *Connection) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

var (
	_ store.AdapterConnection = (*Connection)(nil)
	_ store.Migratable        = (*Connection)(nil)
)

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names the SQL dialect behind a DB.
type Driver string

const (
	SQLite   Driver = "sqlite"
	Postgres Driver = "postgres"
)

// sqlName is the database/sql driver name registered for d.
func (d Driver) sqlName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Querier is implemented by both DB and Tx so repository code can run
// inside or outside an atomic scope.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
	QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DB wraps the sql.DB for connection management
type DB struct {
	conn   *sql.DB
	driver Driver
}

var _ Querier = (*DB)(nil)
var _ Querier = (*Tx)(nil)

// New creates a new DB connection
func New(ctx context.Context, driver Driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = SQLite
	}
	if driver != SQLite && driver != Postgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if driver == SQLite {
		dsn = withForeignKeys(dsn)
	}

	conn, err := sql.Open(driver.sqlName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if driver == SQLite {
		// sqlite serializes writers; one connection keeps in-memory databases alive too.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &DB{conn: conn, driver: driver}, nil
}

// withForeignKeys turns on foreign key enforcement for every sqlite connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// SQLitePath returns the file behind a sqlite DSN, without the file: scheme
// and query options. In-memory DSNs yield "".
func SQLitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return p
}

// Backup writes a consistent copy of a sqlite database to dst.
func (db *DB) Backup(ctx context.Context, dst string) error {
	if db.driver != SQLite {
		return fmt.Errorf("backup: unsupported for %s, use the server's native tooling", db.driver)
	}
	if _, err := db.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// Close closes the DB connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Driver reports the dialect of the connection.
func (db *DB) Driver() Driver {
	return db.driver
}

// Exec executes a query
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, Rebind(db.driver, query), args...)
}

// QueryRow executes a query that is expected to return at most one row
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, Rebind(db.driver, query), args...)
}

// QueryRows executes a query that returns rows
func (db *DB) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, Rebind(db.driver, query), args...)
}

// Tx is a transaction bound to the dialect of the DB that opened it.
type Tx struct {
	tx     *sql.Tx
	driver Driver
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, Rebind(t.driver, query), args...)
}

func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rebind(t.driver, query), args...)
}

func (t *Tx) QueryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, Rebind(t.driver, query), args...)
}

// WithTx runs fn inside one transaction. The transaction commits only when fn
// returns nil; any error, panic or context cancellation rolls it back.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{tx: sqlTx, driver: db.driver}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rebind rewrites ? placeholders to $n for postgres. Placeholders inside
// single-quoted literals are left alone.
func Rebind(driver Driver, query string) string {
	if driver != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// WithReadTx runs fn in a read-only transaction so multi-statement reads see
// one snapshot. Postgres gets REPEATABLE READ; sqlite already serializes on
// its single connection.
func (db *DB) WithReadTx(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if db.driver == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	sqlTx, err := db.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin read tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{tx: sqlTx, driver: db.driver}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

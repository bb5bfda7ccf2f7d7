package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"walley/internal/models"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement of the store. DB runs them on the pool, Tx
// inside a single database transaction.
type queries struct {
	q        querier
	postgres bool
}

// rebind rewrites ? placeholders into $n for postgres.
func (s queries) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
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

func (s queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

// DB wraps a sql.DB connection.
type DB struct {
	queries
	conn   *sql.DB
	driver string
}

// Tx is a unit of work. Every write made through it commits or rolls back together.
type Tx struct {
	queries
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	return Open(DriverSQLite, path)
}

// Open opens a database connection for driver and runs migrations.
func Open(driver, dsn string) (*DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	memory := false
	if driver == DriverSQLite {
		dsn, memory = sqliteDSN(dsn)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	switch {
	case memory:
		// Each connection to :memory: gets its own database.
		conn.SetMaxOpenConns(1)
	case driver == DriverSQLite:
		conn.SetMaxOpenConns(sqlitePoolSize)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{
		queries: queries{q: conn, postgres: driver == DriverPostgres},
		conn:    conn,
		driver:  driver,
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

const sqlitePoolSize = 8

// sqliteFileParams make file databases safe for a small pool: readers do not
// block on the writer, and a writer waits for the lock instead of failing.
// Each entry is the prefix that marks it as already set, then the value.
var sqliteFileParams = [][2]string{
	{"_pragma=busy_timeout(", "5000)"},
	{"_pragma=journal_mode(", "WAL)"},
	{"_txlock=", "immediate"},
}

// sqliteDSN reports whether dsn names an in-memory database and, for files,
// appends the connection parameters not already present.
func sqliteDSN(dsn string) (string, bool) {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") ||
		strings.Contains(dsn, "mode=memory") {
		return dsn, true
	}

	for _, param := range sqliteFileParams {
		if strings.Contains(dsn, param[0]) {
			continue
		}
		sep := "&"
		if !strings.Contains(dsn, "?") {
			sep = "?"
		}
		dsn += sep + param[0] + param[1]
	}
	return dsn, false
}

func (db *DB) migrate() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.postgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id ` + idColumn + `,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			savings BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id ` + idColumn + `,
			user_email TEXT NOT NULL,
			amount BIGINT NOT NULL,
			category TEXT NOT NULL,
			notes TEXT,
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_email_date ON transactions (user_email, date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the name of the driver the database was opened with.
func (db *DB) Driver() string {
	return db.driver
}

// InTx runs fn inside a database transaction. The transaction is committed
// when fn returns nil and rolled back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Infra("begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(&Tx{queries: queries{q: sqlTx, postgres: db.postgres}}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return models.Infra("commit transaction", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return models.Infra("ping", db.conn.PingContext(ctx))
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

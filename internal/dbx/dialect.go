package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported storage backend as it appears in configuration.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var ErrUnknownDialect = errors.New("unsupported storage driver")

var sqlOpen = sql.Open

// ParseDialect validates a configured storage driver name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(name); d {
	case SQLite, Postgres:
		return d, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownDialect, name)
}

// DriverName is the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Open connects to dsn and verifies the connection. SQLite handles are held
// to a single connection so ":memory:" always refers to one database.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sqlOpen(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return db, nil
}

// Package migrations embeds the schema of the on-device secrets store, one
// directory per SQL dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

var gooseUpContext = goose.UpContext

// dialects maps a storage driver name to the goose dialect and the
// migration directory.
var dialects = map[string]struct {
	goose string
	dir   string
}{
	"sqlite":   {"sqlite3", "sqlite"},
	"postgres": {"postgres", "postgres"},
}

// Up applies all pending migrations for driver ("sqlite" or "postgres").
func Up(ctx context.Context, db *sql.DB, driver string) error {
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported storage driver %q", driver)
	}

	sub, err := fs.Sub(Migrations, d.dir)
	if err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(d.goose); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return gooseUpContext(ctx, db, ".")
}

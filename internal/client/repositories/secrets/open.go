package secrets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/client/migrations"
	"github.com/dmitrijs2005/gophrecords/internal/dbx"
)

// Open connects to the configured storage, applies migrations and returns
// the matching repository together with the underlying handle.
func Open(ctx context.Context, driver, dsn string) (Repository, *sql.DB, error) {
	d, err := dbx.ParseDialect(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := dbx.Open(ctx, d, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := migrations.Up(ctx, db, string(d)); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations failed: %w", err)
	}

	return repositoryFor(d, db), db, nil
}

func repositoryFor(d dbx.Dialect, db dbx.DBTX) Repository {
	if d == dbx.Postgres {
		return NewPostgresRepository(db)
	}
	return NewSQLiteRepository(db)
}

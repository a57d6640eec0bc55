package secrets

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestPostgres_Get(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT value FROM secrets WHERE name = \$1`).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v1")))

	v, err := repo.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Get_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT value FROM secrets`).
		WithArgs("k1").
		WillReturnError(sql.ErrNoRows)

	v, err := repo.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPostgres_Set(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+secrets.*VALUES\s*\(\$1,\s*\$2\).*ON CONFLICT \(name\)`).
		WithArgs("k1", []byte("v1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), "k1", []byte("v1")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Set_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO secrets`).
		WillReturnError(errors.New("db down"))

	err := repo.Set(context.Background(), "k1", []byte("v1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestPostgres_DeleteClearList(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM secrets WHERE name = \$1`).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT name, value FROM secrets`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("a", []byte("1")).
			AddRow("b", []byte("2")))
	mock.ExpectExec(`DELETE FROM secrets$`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Delete(ctx, "k1"))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

	require.NoError(t, repo.Clear(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

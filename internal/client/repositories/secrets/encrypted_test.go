package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophrecords/internal/common"
)

func TestEncryptedRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	inner := NewSQLiteRepository(setupDB(t))
	r := NewEncryptedRepository(inner)

	ok, err := r.Initialized(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Unlock(ctx, []byte("correct horse")))
	require.NoError(t, r.Set(ctx, "key_pair", []byte(`{"t":"apriv"}`)))

	v, err := r.Get(ctx, "key_pair")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"t":"apriv"}`), v)

	raw, err := inner.Get(ctx, "key_pair")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "apriv")

	missing, err := r.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"key_pair": []byte(`{"t":"apriv"}`)}, all)
}

func TestEncryptedRepository_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	inner := NewSQLiteRepository(setupDB(t))

	first := NewEncryptedRepository(inner)
	require.NoError(t, first.Unlock(ctx, []byte("right")))
	require.NoError(t, first.Set(ctx, "a", []byte("1")))

	second := NewEncryptedRepository(inner)
	require.ErrorIs(t, second.Unlock(ctx, []byte("wrong")), ErrWrongPassphrase)
	_, err := second.Get(ctx, "a")
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, second.Unlock(ctx, []byte("right")))
	v, err := second.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

// failingSetRepository fails the next write of one row.
type failingSetRepository struct {
	Repository
	name string
	fail bool
}

func (r *failingSetRepository) Set(ctx context.Context, name string, value []byte) error {
	if r.fail && name == r.name {
		r.fail = false
		return errors.New("disk full")
	}
	return r.Repository.Set(ctx, name, value)
}

func TestEncryptedRepository_InterruptedFirstUnlock(t *testing.T) {
	ctx := context.Background()
	inner := &failingSetRepository{Repository: NewSQLiteRepository(setupDB(t)), name: saltName, fail: true}

	require.Error(t, NewEncryptedRepository(inner).Unlock(ctx, []byte("first")))

	ok, err := NewEncryptedRepository(inner).Initialized(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// the half-written setup is replaced by the next passphrase
	require.NoError(t, NewEncryptedRepository(inner).Unlock(ctx, []byte("second")))

	again := NewEncryptedRepository(inner)
	require.ErrorIs(t, again.Unlock(ctx, []byte("first")), ErrWrongPassphrase)
	require.NoError(t, again.Unlock(ctx, []byte("second")))
}

func TestEncryptedRepository_ReservedNames(t *testing.T) {
	ctx := context.Background()
	r := NewEncryptedRepository(NewSQLiteRepository(setupDB(t)))
	require.NoError(t, r.Unlock(ctx, []byte("p")))

	require.ErrorIs(t, r.Set(ctx, saltName, []byte("x")), ErrReservedName)
	_, err := r.Get(ctx, verifierName)
	require.ErrorIs(t, err, ErrReservedName)
}

func TestEncryptedRepository_TamperedValue(t *testing.T) {
	ctx := context.Background()
	inner := NewSQLiteRepository(setupDB(t))
	r := NewEncryptedRepository(inner)
	require.NoError(t, r.Unlock(ctx, []byte("p")))
	require.NoError(t, r.Set(ctx, "a", []byte("1")))

	raw, err := inner.Get(ctx, "a")
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, inner.Set(ctx, "a", raw))

	_, err = r.Get(ctx, "a")
	require.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestEncryptedRepository_ClearLocks(t *testing.T) {
	ctx := context.Background()
	r := NewEncryptedRepository(NewSQLiteRepository(setupDB(t)))
	require.NoError(t, r.Unlock(ctx, []byte("p")))
	require.NoError(t, r.Clear(ctx))

	require.ErrorIs(t, r.Set(ctx, "a", []byte("1")), ErrLocked)
	ok, err := r.Initialized(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRekey(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	r := NewEncryptedRepository(NewSQLiteRepository(db))
	require.NoError(t, r.Unlock(ctx, []byte("old")))
	require.NoError(t, r.Set(ctx, "a", []byte("1")))
	require.NoError(t, r.Set(ctx, "b", []byte("2")))

	require.ErrorIs(t, Rekey(ctx, db, "sqlite", []byte("bad"), []byte("new")), ErrWrongPassphrase)
	require.NoError(t, Rekey(ctx, db, "sqlite", []byte("old"), []byte("new")))

	after := NewEncryptedRepository(NewSQLiteRepository(db))
	require.ErrorIs(t, after.Unlock(ctx, []byte("old")), ErrWrongPassphrase)
	require.NoError(t, after.Unlock(ctx, []byte("new")))

	all, err := after.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)
}

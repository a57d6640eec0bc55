package secrets

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/internal/dbx"
)

// Reserved rows holding the passphrase parameters. They are stored in clear.
const (
	reservedPrefix = "__"
	saltName       = reservedPrefix + "device_salt"
	verifierName   = reservedPrefix + "device_verifier"
	saltSize       = 16
)

var (
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrLocked          = errors.New("secret store is locked")
	ErrReservedName    = errors.New("reserved secret name")
)

// EncryptedRepository seals every value with AES-GCM under a key derived
// from the device passphrase (Argon2id). It must be unlocked before use.
type EncryptedRepository struct {
	inner Repository
	key   *cryptox.SymmetricKey
}

func NewEncryptedRepository(inner Repository) *EncryptedRepository {
	return &EncryptedRepository{inner: inner}
}

// Unlock derives the store key from passphrase. On first use it creates the
// salt and verifier; afterwards a passphrase that does not match the
// verifier yields ErrWrongPassphrase.
func (r *EncryptedRepository) Unlock(ctx context.Context, passphrase []byte) error {
	salt, err := r.inner.Get(ctx, saltName)
	if err != nil {
		return err
	}

	if salt == nil {
		salt = common.GenerateRandByteArray(saltSize)
		master := cryptox.DeriveMasterKey(passphrase, salt)
		// the salt marks the store initialized, so it is written last
		if err := r.inner.Set(ctx, verifierName, cryptox.MakeVerifier(master)); err != nil {
			return err
		}
		if err := r.inner.Set(ctx, saltName, salt); err != nil {
			return err
		}
		r.key = storeKey(master)
		return nil
	}

	master := cryptox.DeriveMasterKey(passphrase, salt)
	verifier, err := r.inner.Get(ctx, verifierName)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifier, cryptox.MakeVerifier(master)) != 1 {
		return ErrWrongPassphrase
	}
	r.key = storeKey(master)
	return nil
}

// Initialized reports whether a passphrase has been set up.
func (r *EncryptedRepository) Initialized(ctx context.Context) (bool, error) {
	salt, err := r.inner.Get(ctx, saltName)
	if err != nil {
		return false, err
	}
	return salt != nil, nil
}

func storeKey(master []byte) *cryptox.SymmetricKey {
	return &cryptox.SymmetricKey{
		Algorithm: cryptox.AlgorithmAESGCM,
		Key:       master,
		Version:   cryptox.KeyVersion,
		KeySize:   len(master) * 8,
	}
}

func checkName(name string) error {
	if strings.HasPrefix(name, reservedPrefix) {
		return fmt.Errorf("%w: %s", ErrReservedName, name)
	}
	return nil
}

func (r *EncryptedRepository) Get(ctx context.Context, name string) ([]byte, error) {
	if r.key == nil {
		return nil, ErrLocked
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	sealed, err := r.inner.Get(ctx, name)
	if err != nil || sealed == nil {
		return nil, err
	}
	return cryptox.Decrypt(*r.key, sealed)
}

func (r *EncryptedRepository) Set(ctx context.Context, name string, value []byte) error {
	if r.key == nil {
		return ErrLocked
	}
	if err := checkName(name); err != nil {
		return err
	}
	sealed, err := cryptox.Encrypt(*r.key, value)
	if err != nil {
		return err
	}
	return r.inner.Set(ctx, name, sealed)
}

func (r *EncryptedRepository) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return r.inner.Delete(ctx, name)
}

// List returns every secret decrypted, without the reserved rows.
func (r *EncryptedRepository) List(ctx context.Context) (map[string][]byte, error) {
	if r.key == nil {
		return nil, ErrLocked
	}
	all, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(all))
	for name, sealed := range all {
		if strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		plain, err := cryptox.Decrypt(*r.key, sealed)
		if err != nil {
			return nil, fmt.Errorf("secret %s: %w", name, err)
		}
		out[name] = plain
	}
	return out, nil
}

// Clear wipes the store including the passphrase parameters and locks it.
func (r *EncryptedRepository) Clear(ctx context.Context) error {
	if err := r.inner.Clear(ctx); err != nil {
		return err
	}
	r.key = nil
	return nil
}

// Rekey re-encrypts every secret under newPass inside one transaction.
func Rekey(ctx context.Context, db *sql.DB, driver string, oldPass, newPass []byte) error {
	d, err := dbx.ParseDialect(driver)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inner := repositoryFor(d, tx)

		current := NewEncryptedRepository(inner)
		if err := current.Unlock(ctx, oldPass); err != nil {
			return err
		}
		plain, err := current.List(ctx)
		if err != nil {
			return err
		}
		if err := current.Clear(ctx); err != nil {
			return err
		}

		next := NewEncryptedRepository(inner)
		if err := next.Unlock(ctx, newPass); err != nil {
			return err
		}
		for name, value := range plain {
			if err := next.Set(ctx, name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

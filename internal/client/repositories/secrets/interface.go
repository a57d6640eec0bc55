// Package secrets stores the device's key material in a SQL table. Values
// are opaque bytes; EncryptedRepository seals them under a passphrase
// derived key before they reach the database.
package secrets

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}

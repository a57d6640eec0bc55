package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// WrappedKey is the base64 ciphertext of a serialized ExchangeKey. It is
// opaque to the transport.
type WrappedKey string

// WrapKey serializes target as an ExchangeKey of type t and seals it under
// underKey.
func WrapKey(underKey SymmetricKey, target SymmetricKey, t KeyType) (WrappedKey, error) {
	plain, err := json.Marshal(ExportSymmetricKey(target, t))
	if err != nil {
		return "", common.Wrap(common.ErrKeyEncryptionFailed, err)
	}

	sealed, err := Encrypt(underKey, plain)
	if err != nil {
		return "", common.Wrap(common.ErrKeyEncryptionFailed, err)
	}

	return WrappedKey(base64.StdEncoding.EncodeToString(sealed)), nil
}

// UnwrapKey opens a WrappedKey produced by WrapKey.
func UnwrapKey(underKey SymmetricKey, w WrappedKey) (SymmetricKey, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(w))
	if err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}

	plain, err := Decrypt(underKey, sealed)
	if err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}

	return parseExchangeKey(plain)
}

// WrapKeyAsymmetric seals target for the holder of pub using RSA-OAEP/SHA-256.
// The platform uses this path to hand out a freshly rotated common key.
func WrapKeyAsymmetric(pub *rsa.PublicKey, target SymmetricKey, t KeyType) (WrappedKey, error) {
	plain, err := json.Marshal(ExportSymmetricKey(target, t))
	if err != nil {
		return "", common.Wrap(common.ErrKeyEncryptionFailed, err)
	}

	sealed, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plain, nil)
	if err != nil {
		return "", common.Wrap(common.ErrKeyEncryptionFailed, err)
	}

	return WrappedKey(base64.StdEncoding.EncodeToString(sealed)), nil
}

// UnwrapKeyAsymmetric opens a WrappedKey produced by WrapKeyAsymmetric.
func UnwrapKeyAsymmetric(kp *KeyPair, w WrappedKey) (SymmetricKey, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(w))
	if err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}

	plain, err := rsa.DecryptOAEP(sha256.New(), nil, kp.Private, sealed, nil)
	if err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}

	return parseExchangeKey(plain)
}

func parseExchangeKey(plain []byte) (SymmetricKey, error) {
	var ek ExchangeKey
	if err := json.Unmarshal(plain, &ek); err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	return ImportSymmetricKey(ek)
}

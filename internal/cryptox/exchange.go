package cryptox

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// KeyVersion is the only ExchangeKey version this build reads or writes.
const KeyVersion = 1

// KeyType identifies the role of a key inside an ExchangeKey.
type KeyType string

const (
	KeyTypeCommon     KeyType = "ck"
	KeyTypeData       KeyType = "dk"
	KeyTypeAttachment KeyType = "ak"
	KeyTypeTag        KeyType = "tek"
	KeyTypePrivate    KeyType = "apriv"
	KeyTypePublic     KeyType = "apub"
)

// IsAsymmetric reports whether t carries RSA material.
func (t KeyType) IsAsymmetric() bool {
	return t == KeyTypePrivate || t == KeyTypePublic
}

// ExchangeKey is the serializable envelope a key takes whenever it leaves the
// process. Key material is standard base64.
type ExchangeKey struct {
	Type         KeyType `json:"t"`
	PrivateKey   string  `json:"priv,omitempty"`
	PublicKey    string  `json:"pub,omitempty"`
	SymmetricKey string  `json:"sym,omitempty"`
	Version      int     `json:"v"`
}

// ExportSymmetricKey wraps key material into an ExchangeKey of type t.
func ExportSymmetricKey(key SymmetricKey, t KeyType) ExchangeKey {
	return ExchangeKey{
		Type:         t,
		SymmetricKey: base64.StdEncoding.EncodeToString(key.Key),
		Version:      KeyVersion,
	}
}

// ImportSymmetricKey validates an ExchangeKey and returns the symmetric key it
// carries. The tag encryption key is the only one bound to AES-CBC.
func ImportSymmetricKey(ek ExchangeKey) (SymmetricKey, error) {
	if ek.Version != KeyVersion {
		return SymmetricKey{}, &common.KeyVersionError{Version: ek.Version}
	}
	if ek.Type.IsAsymmetric() {
		return SymmetricKey{}, fmt.Errorf("%w: can't decrypt asymmetric to symmetric key", common.ErrKeyDecryptionFailed)
	}
	if ek.SymmetricKey == "" {
		return SymmetricKey{}, fmt.Errorf("%w: missing symmetric material", common.ErrKeyDecryptionFailed)
	}

	raw, err := base64.StdEncoding.DecodeString(ek.SymmetricKey)
	if err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}

	alg := AlgorithmAESGCM
	if ek.Type == KeyTypeTag {
		alg = AlgorithmAESCBC
	}

	return SymmetricKey{Algorithm: alg, Key: raw, Version: ek.Version, KeySize: len(raw) * 8}, nil
}

// ExportKeyPair serializes kp as PKCS#8 private and PKIX public material.
func ExportKeyPair(kp *KeyPair) (ExchangeKey, error) {
	priv, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return ExchangeKey{}, common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	pub, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return ExchangeKey{}, common.Wrap(common.ErrKeyEncryptionFailed, err)
	}

	return ExchangeKey{
		Type:       KeyTypePrivate,
		PrivateKey: base64.StdEncoding.EncodeToString(priv),
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		Version:    KeyVersion,
	}, nil
}

// ImportKeyPair reverses ExportKeyPair.
func ImportKeyPair(ek ExchangeKey) (*KeyPair, error) {
	if ek.Version != KeyVersion {
		return nil, &common.KeyVersionError{Version: ek.Version}
	}
	if ek.Type != KeyTypePrivate {
		return nil, fmt.Errorf("%w: expected key type %q, got %q", common.ErrKeyDecryptionFailed, KeyTypePrivate, ek.Type)
	}

	raw, err := base64.StdEncoding.DecodeString(ek.PrivateKey)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(raw)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key", common.ErrKeyDecryptionFailed)
	}

	return &KeyPair{
		Algorithm: AlgorithmRSAOAEP,
		Private:   priv,
		Public:    &priv.PublicKey,
		Version:   ek.Version,
		KeySize:   priv.N.BitLen(),
	}, nil
}

// PublicKeyString returns the PKIX base64 form of kp's public key, the format
// the platform expects when registering a device.
func (kp *KeyPair) PublicKeyString() (string, error) {
	pub, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return "", common.Wrap(common.ErrKeyEncryptionFailed, err)
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// ParsePublicKey reverses PublicKeyString.
func ParsePublicKey(s string) (*rsa.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	parsed, err := x509.ParsePKIXPublicKey(raw)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyDecryptionFailed, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", common.ErrKeyDecryptionFailed)
	}
	return pub, nil
}

package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// Algorithm names the cipher/mode/padding triple a key is used with.
type Algorithm string

const (
	// AlgorithmAESGCM is used for record bodies, attachments and key wrapping.
	AlgorithmAESGCM Algorithm = "AES/GCM/NoPadding"
	// AlgorithmAESCBC is used by the tag encryption key only.
	AlgorithmAESCBC Algorithm = "AES/CBC/PKCS7Padding"
	// AlgorithmRSAOAEP is used by the account key pair that receives common keys.
	AlgorithmRSAOAEP Algorithm = "RSA/NONE/OAEPWithSHA-256AndMGF1Padding"
)

const (
	// KeySize256 is the bit size of every symmetric key the platform issues.
	KeySize256 = 256
	// KeySize2048 is the bit size of account key pairs.
	KeySize2048 = 2048
)

// SymmetricKey is raw AES key material plus the metadata needed to use it.
type SymmetricKey struct {
	Algorithm Algorithm
	Key       []byte
	Version   int
	KeySize   int
}

// KeyPair is an RSA account key pair.
type KeyPair struct {
	Algorithm Algorithm
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	Version   int
	KeySize   int
}

// GenerateSymmetricKey returns a fresh random AES key of size bits.
func GenerateSymmetricKey(algorithm Algorithm, size int) (SymmetricKey, error) {
	if algorithm != AlgorithmAESGCM && algorithm != AlgorithmAESCBC {
		return SymmetricKey{}, fmt.Errorf("%w: unsupported algorithm %q", common.ErrKeyGenerationFailed, algorithm)
	}
	switch size {
	case 128, 192, 256:
	default:
		return SymmetricKey{}, fmt.Errorf("%w: unsupported key size %d", common.ErrKeyGenerationFailed, size)
	}

	key := make([]byte, size/8)
	if _, err := rand.Read(key); err != nil {
		return SymmetricKey{}, common.Wrap(common.ErrKeyGenerationFailed, err)
	}

	return SymmetricKey{Algorithm: algorithm, Key: key, Version: KeyVersion, KeySize: size}, nil
}

// GenerateKeyPair returns a fresh RSA key pair of size bits.
func GenerateKeyPair(algorithm Algorithm, size int) (*KeyPair, error) {
	if algorithm != AlgorithmRSAOAEP {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", common.ErrKeyGenerationFailed, algorithm)
	}

	priv, err := rsa.GenerateKey(rand.Reader, size)
	if err != nil {
		return nil, common.Wrap(common.ErrKeyGenerationFailed, err)
	}

	return &KeyPair{
		Algorithm: algorithm,
		Private:   priv,
		Public:    &priv.PublicKey,
		Version:   KeyVersion,
		KeySize:   size,
	}, nil
}

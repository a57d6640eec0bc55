// Package cryptox implements the key hierarchy primitives: AES-GCM sealing of
// record bodies and attachments, the deterministic tag cipher, RSA delivery of
// common keys, ExchangeKey (de)serialization and key wrapping.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM nonce length prepended to every ciphertext.
const NonceSize = 12

var errBadPadding = errors.New("invalid padding")

// MakeVerifier returns a digest that proves knowledge of masterKey without
// revealing it.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey stretches a passphrase into a 32-byte key with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// Encrypt seals plaintext under key and returns nonce || ciphertext || tag.
//
// A new random 12-byte nonce is generated for every call, so encrypting the
// same plaintext twice yields different output. Keys tagged AlgorithmAESCBC
// get a random 16-byte IV instead.
func Encrypt(key SymmetricKey, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, common.Wrap(common.ErrEncryptionFailed, err)
	}

	if key.Algorithm == AlgorithmAESCBC {
		iv := make([]byte, aes.BlockSize)
		if _, err := rand.Read(iv); err != nil {
			return nil, common.Wrap(common.ErrEncryptionFailed, err)
		}
		return append(iv, cbcEncrypt(block, iv, plaintext)...), nil
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.Wrap(common.ErrEncryptionFailed, err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, common.Wrap(common.ErrEncryptionFailed, err)
	}

	// Seal appends to nonce, so the result is nonce + ciphertext.
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt reverses Encrypt. Any authentication failure is reported as
// ErrDecryptionFailed and no plaintext is returned.
func Decrypt(key SymmetricKey, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, common.Wrap(common.ErrDecryptionFailed, err)
	}

	if key.Algorithm == AlgorithmAESCBC {
		if len(data) < aes.BlockSize {
			return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryptionFailed)
		}
		out, err := cbcDecrypt(block, data[:aes.BlockSize], data[aes.BlockSize:])
		if err != nil {
			return nil, common.Wrap(common.ErrDecryptionFailed, err)
		}
		return out, nil
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.Wrap(common.ErrDecryptionFailed, err)
	}

	if len(data) < NonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", common.ErrDecryptionFailed)
	}

	nonce, ciphertext := data[:NonceSize], data[NonceSize:]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.Wrap(common.ErrDecryptionFailed, err)
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// EncryptString encrypts s and returns the result as standard base64.
func EncryptString(key SymmetricKey, s string) (string, error) {
	out, err := Encrypt(key, []byte(s))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptString decodes base64 input produced by EncryptString and decrypts it.
func DecryptString(key SymmetricKey, s string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", common.Wrap(common.ErrDecryptionFailed, err)
	}
	out, err := Decrypt(key, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncryptDeterministic encrypts plaintext with AES-CBC under a fixed all-zero
// IV. Equal inputs always produce equal outputs, which is what lets the
// platform match tags without decrypting them. Only the tag codec may use it.
func EncryptDeterministic(key SymmetricKey, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, common.Wrap(common.ErrEncryptionFailed, err)
	}
	return cbcEncrypt(block, make([]byte, aes.BlockSize), plaintext), nil
}

// DecryptDeterministic reverses EncryptDeterministic.
func DecryptDeterministic(key SymmetricKey, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key.Key)
	if err != nil {
		return nil, common.Wrap(common.ErrDecryptionFailed, err)
	}
	out, err := cbcDecrypt(block, make([]byte, aes.BlockSize), ciphertext)
	if err != nil {
		return nil, common.Wrap(common.ErrDecryptionFailed, err)
	}
	return out, nil
}

func cbcEncrypt(block cipher.Block, iv, plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out
}

func cbcDecrypt(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, errBadPadding
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errBadPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errBadPadding
		}
	}
	return b[:len(b)-n], nil
}

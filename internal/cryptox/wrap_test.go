package cryptox

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/stretchr/testify/require"
)

func mustKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair(AlgorithmRSAOAEP, KeySize2048)
	require.NoError(t, err)
	return kp
}

func sealExchangeKey(t *testing.T, under SymmetricKey, ek ExchangeKey) WrappedKey {
	t.Helper()
	plain, err := json.Marshal(ek)
	require.NoError(t, err)
	sealed, err := Encrypt(under, plain)
	require.NoError(t, err)
	return WrappedKey(base64.StdEncoding.EncodeToString(sealed))
}

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	ck := mustKey(t, AlgorithmAESGCM)
	data := mustKey(t, AlgorithmAESGCM)

	w, err := WrapKey(ck, data, KeyTypeData)
	require.NoError(t, err)

	out, err := UnwrapKey(ck, w)
	require.NoError(t, err)
	require.Equal(t, data.Key, out.Key)
	require.Equal(t, AlgorithmAESGCM, out.Algorithm)
	require.Equal(t, KeySize256, out.KeySize)
}

func TestUnwrapKey_WrongKey(t *testing.T) {
	w, err := WrapKey(mustKey(t, AlgorithmAESGCM), mustKey(t, AlgorithmAESGCM), KeyTypeData)
	require.NoError(t, err)

	_, err = UnwrapKey(mustKey(t, AlgorithmAESGCM), w)
	require.ErrorIs(t, err, common.ErrKeyDecryptionFailed)
}

func TestUnwrapKey_RejectsOtherVersion(t *testing.T) {
	under := mustKey(t, AlgorithmAESGCM)
	ek := ExportSymmetricKey(mustKey(t, AlgorithmAESGCM), KeyTypeData)
	ek.Version = KeyVersion + 1

	_, err := UnwrapKey(under, sealExchangeKey(t, under, ek))
	require.ErrorIs(t, err, common.ErrInvalidKeyVersion)

	var kv *common.KeyVersionError
	require.ErrorAs(t, err, &kv)
	require.Equal(t, KeyVersion+1, kv.Version)
}

func TestUnwrapKey_RejectsAsymmetricType(t *testing.T) {
	under := mustKey(t, AlgorithmAESGCM)
	ek, err := ExportKeyPair(mustKeyPair(t))
	require.NoError(t, err)

	_, err = UnwrapKey(under, sealExchangeKey(t, under, ek))
	require.ErrorIs(t, err, common.ErrKeyDecryptionFailed)
}

func TestWrapUnwrapAsymmetric(t *testing.T) {
	kp := mustKeyPair(t)
	ck := mustKey(t, AlgorithmAESGCM)

	w, err := WrapKeyAsymmetric(kp.Public, ck, KeyTypeCommon)
	require.NoError(t, err)

	out, err := UnwrapKeyAsymmetric(kp, w)
	require.NoError(t, err)
	require.Equal(t, ck.Key, out.Key)

	_, err = UnwrapKeyAsymmetric(mustKeyPair(t), w)
	require.ErrorIs(t, err, common.ErrKeyDecryptionFailed)
}

func TestKeyPair_ExportImport(t *testing.T) {
	kp := mustKeyPair(t)
	ek, err := ExportKeyPair(kp)
	require.NoError(t, err)
	require.Equal(t, KeyTypePrivate, ek.Type)

	back, err := ImportKeyPair(ek)
	require.NoError(t, err)
	require.True(t, kp.Private.Equal(back.Private))
	require.Equal(t, KeySize2048, back.KeySize)

	pub, err := kp.PublicKeyString()
	require.NoError(t, err)
	require.Equal(t, ek.PublicKey, pub)

	ek.Version = 9
	_, err = ImportKeyPair(ek)
	require.ErrorIs(t, err, common.ErrInvalidKeyVersion)
}

func TestParsePublicKey(t *testing.T) {
	kp := mustKeyPair(t)
	s, err := kp.PublicKeyString()
	require.NoError(t, err)

	pub, err := ParsePublicKey(s)
	require.NoError(t, err)
	require.True(t, kp.Public.Equal(pub))

	_, err = ParsePublicKey("%%%")
	require.ErrorIs(t, err, common.ErrKeyDecryptionFailed)
	_, err = ParsePublicKey("AAAA")
	require.ErrorIs(t, err, common.ErrKeyDecryptionFailed)
}

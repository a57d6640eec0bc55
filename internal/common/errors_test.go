package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("x"), KindUnknown},
		{"decryption", ErrDecryptionFailed, KindCrypto},
		{"wrapped key version", fmt.Errorf("unwrap: %w", &KeyVersionError{Version: 2}), KindCrypto},
		{"id usage", IDUsageViolation("attachment id"), KindValidation},
		{"expected field", ExpectedFieldViolation("hash"), KindValidation},
		{"model version", ErrModelVersionNotSupported, KindValidation},
		{"file type", ErrUnsupportedFileType, KindRestriction},
		{"size", ErrMaxDataSizeViolation, KindRestriction},
		{"upload", UploadFailed(errors.New("s3 down")), KindTransfer},
		{"download", DownloadFailed(errors.New("s3 down")), KindTransfer},
		{"cancelled", Wrap(ErrCancelled, context.Canceled), KindCancellation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKeyVersionError(t *testing.T) {
	err := &KeyVersionError{Version: 7}
	require.ErrorIs(t, err, ErrInvalidKeyVersion)
	require.Contains(t, err.Error(), "7")

	var kv *KeyVersionError
	require.True(t, errors.As(fmt.Errorf("ctx: %w", err), &kv))
	require.Equal(t, 7, kv.Version)
}

func TestViolationError_Detail(t *testing.T) {
	err := IDUsageViolation("attachment a1 unknown")
	require.ErrorIs(t, err, ErrIDUsageViolation)
	require.NotErrorIs(t, err, ErrExpectedFieldViolation)
	require.Equal(t, "id usage violation: attachment a1 unknown", err.Error())
}

func TestTransferErrors_KeepCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := UploadFailed(cause)
	require.ErrorIs(t, err, ErrUploadFailed)
	require.ErrorIs(t, err, cause)

	require.Equal(t, ErrDecryptionFailed, Wrap(ErrDecryptionFailed, nil))
}

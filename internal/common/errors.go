// Package common defines shared constants and the error taxonomy used by the
// client, services and transport layers. Callers should use errors.Is to match
// these values; KindOf groups them into the five user-visible kinds.
package common

import (
	"errors"
	"fmt"
)

var (
	// Crypto errors.
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrKeyGenerationFailed = errors.New("key generation failed")
	ErrKeyFetchingFailed   = errors.New("key fetching failed")
	ErrKeyEncryptionFailed = errors.New("key encryption failed")
	ErrKeyDecryptionFailed = errors.New("key decryption failed")
	ErrInvalidKeyVersion   = errors.New("invalid key version")

	// Validation errors.
	ErrModelVersionNotSupported     = errors.New("model version not supported")
	ErrInvalidAttachmentPayloadHash = errors.New("attachment payload hash is invalid")
	ErrIDUsageViolation             = errors.New("id usage violation")
	ErrExpectedFieldViolation       = errors.New("expected field violation")

	// Restriction errors.
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrMaxDataSizeViolation = errors.New("max data size violation")

	// Transfer errors.
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")

	// ErrCancelled is returned by operations whose handle was cancelled
	// before completion.
	ErrCancelled = errors.New("operation cancelled")
)

// Kind is the coarse error category exposed to SDK users.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindCrypto       Kind = "crypto"
	KindValidation   Kind = "validation"
	KindRestriction  Kind = "restriction"
	KindTransfer     Kind = "transfer"
	KindCancellation Kind = "cancellation"
)

var kinds = []struct {
	kind Kind
	errs []error
}{
	{KindCancellation, []error{ErrCancelled}},
	{KindValidation, []error{ErrModelVersionNotSupported, ErrInvalidAttachmentPayloadHash, ErrIDUsageViolation, ErrExpectedFieldViolation}},
	{KindRestriction, []error{ErrUnsupportedFileType, ErrMaxDataSizeViolation}},
	{KindCrypto, []error{ErrEncryptionFailed, ErrDecryptionFailed, ErrKeyGenerationFailed, ErrKeyFetchingFailed,
		ErrKeyEncryptionFailed, ErrKeyDecryptionFailed, ErrInvalidKeyVersion}},
	{KindTransfer, []error{ErrUploadFailed, ErrDownloadFailed}},
}

// KindOf reports which taxonomy kind err belongs to.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindUnknown
}

// KeyVersionError reports an ExchangeKey whose version is not the one this
// build reads.
type KeyVersionError struct {
	Version int
}

func (e *KeyVersionError) Error() string {
	return fmt.Sprintf("%s: %d", ErrInvalidKeyVersion, e.Version)
}

func (e *KeyVersionError) Unwrap() error { return ErrInvalidKeyVersion }

// ViolationError carries a human readable detail for the validation kinds
// that need one (IdUsageViolation, ExpectedFieldViolation).
type ViolationError struct {
	Kind   error
	Detail string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ViolationError) Unwrap() error { return e.Kind }

// IDUsageViolation builds an ErrIDUsageViolation with detail.
func IDUsageViolation(detail string) error {
	return &ViolationError{Kind: ErrIDUsageViolation, Detail: detail}
}

// ExpectedFieldViolation builds an ErrExpectedFieldViolation with detail.
func ExpectedFieldViolation(detail string) error {
	return &ViolationError{Kind: ErrExpectedFieldViolation, Detail: detail}
}

// UploadFailed wraps a storage failure so both the kind and the cause match
// errors.Is.
func UploadFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrUploadFailed, cause)
}

// DownloadFailed wraps a storage failure so both the kind and the cause match
// errors.Is.
func DownloadFailed(cause error) error {
	return fmt.Errorf("%w: %w", ErrDownloadFailed, cause)
}

// Wrap tags cause with kind, keeping both reachable through errors.Is.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

package sdk

import (
	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/client/repositories/secrets"
	"github.com/dmitrijs2005/gophrecords/internal/common"
)

// Errors returned by the client. Match them with errors.Is.
var (
	ErrEncryptionFailed    = common.ErrEncryptionFailed
	ErrDecryptionFailed    = common.ErrDecryptionFailed
	ErrKeyGenerationFailed = common.ErrKeyGenerationFailed
	ErrKeyFetchingFailed   = common.ErrKeyFetchingFailed
	ErrKeyEncryptionFailed = common.ErrKeyEncryptionFailed
	ErrKeyDecryptionFailed = common.ErrKeyDecryptionFailed
	ErrInvalidKeyVersion   = common.ErrInvalidKeyVersion

	ErrModelVersionNotSupported     = common.ErrModelVersionNotSupported
	ErrInvalidAttachmentPayloadHash = common.ErrInvalidAttachmentPayloadHash
	ErrIDUsageViolation             = common.ErrIDUsageViolation
	ErrExpectedFieldViolation       = common.ErrExpectedFieldViolation

	ErrUnsupportedFileType  = common.ErrUnsupportedFileType
	ErrMaxDataSizeViolation = common.ErrMaxDataSizeViolation

	ErrUploadFailed   = common.ErrUploadFailed
	ErrDownloadFailed = common.ErrDownloadFailed

	ErrCancelled = common.ErrCancelled

	ErrUnauthorized    = client.ErrUnauthorized
	ErrUnavailable     = client.ErrUnavailable
	ErrNotFound        = client.ErrNotFound
	ErrInvalidConfig   = client.ErrInvalidConfig
	ErrWrongPassphrase = secrets.ErrWrongPassphrase
)

type (
	Kind            = common.Kind
	KeyVersionError = common.KeyVersionError
	ViolationError  = common.ViolationError
)

const (
	KindUnknown      = common.KindUnknown
	KindCrypto       = common.KindCrypto
	KindValidation   = common.KindValidation
	KindRestriction  = common.KindRestriction
	KindTransfer     = common.KindTransfer
	KindCancellation = common.KindCancellation
)

// KindOf classifies err into one of the error kinds.
func KindOf(err error) Kind {
	return common.KindOf(err)
}

package client

import (
	"context"

	"github.com/dmitrijs2005/gophrecords/internal/client/models"
)

// Client is the record transport. Authentication, retries and token refresh
// are handled by the implementation.
type Client interface {
	Close() error
	CreateRecord(ctx context.Context, userID string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error)
	UpdateRecord(ctx context.Context, userID string, rec *models.EncryptedRecord) (*models.EncryptedRecord, error)
	FetchRecord(ctx context.Context, userID, recordID string) (*models.EncryptedRecord, error)
	SearchRecords(ctx context.Context, userID string, q models.SearchQuery) (*models.SearchResult, error)
	CountRecords(ctx context.Context, userID string, tags []string) (int, error)
	DeleteRecord(ctx context.Context, userID, recordID string) error
	FetchCommonKey(ctx context.Context, userID, commonKeyID string) (*models.CommonKeyEnvelope, error)
	// FetchUserInfo registers publicKey as the device key and returns the
	// account key set, with the common key wrapped for that key.
	FetchUserInfo(ctx context.Context, publicKey string) (*models.UserInfo, error)
}

// BlobStore keeps encrypted attachment payloads. Ids are assigned by the
// store on upload.
type BlobStore interface {
	UploadBlob(ctx context.Context, userID string, data []byte) (string, error)
	DownloadBlob(ctx context.Context, userID, blobID string) ([]byte, error)
	DeleteBlob(ctx context.Context, userID, blobID string) error
}

// BlobURLIssuer hands out short-lived URLs for direct blob transfer.
type BlobURLIssuer interface {
	PresignUpload(ctx context.Context, userID string) (blobID string, url string, err error)
	PresignDownload(ctx context.Context, userID, blobID string) (string, error)
	DeleteBlob(ctx context.Context, userID, blobID string) error
}

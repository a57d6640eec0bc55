package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophrecords/internal/netx"
)

// PresignedBlobStore transfers blobs over presigned URLs handed out by the
// platform, so the device never holds bucket credentials.
type PresignedBlobStore struct {
	issuer BlobURLIssuer
}

func NewPresignedBlobStore(issuer BlobURLIssuer) *PresignedBlobStore {
	return &PresignedBlobStore{issuer: issuer}
}

func (s *PresignedBlobStore) UploadBlob(ctx context.Context, userID string, data []byte) (string, error) {
	id, url, err := s.issuer.PresignUpload(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := netx.UploadToPresignedURL(ctx, url, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBlobTransfer, err)
	}
	return id, nil
}

func (s *PresignedBlobStore) DownloadBlob(ctx context.Context, userID, blobID string) ([]byte, error) {
	url, err := s.issuer.PresignDownload(ctx, userID, blobID)
	if err != nil {
		return nil, err
	}
	data, err := netx.DownloadFromPresignedURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlobTransfer, err)
	}
	return data, nil
}

func (s *PresignedBlobStore) DeleteBlob(ctx context.Context, userID, blobID string) error {
	return s.issuer.DeleteBlob(ctx, userID, blobID)
}

package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/client/client"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// Downscaling parameters for image attachments.
const (
	PreviewSize   = 1000
	ThumbnailSize = 200
	JPEGQuality   = 80
)

// HashValidationCutoff is the creation date from which downloaded payloads
// must match their stored hash. Older attachments are accepted as-is.
var HashValidationCutoff = time.Date(2019, time.September, 15, 0, 0, 0, 0, time.UTC)

// ImageCodec downscales image payloads.
type ImageCodec interface {
	// IsResizable reports whether data is an image the codec can decode.
	IsResizable(data []byte) bool
	// Resize returns data scaled so its long edge is targetPx, encoded as
	// JPEG. It returns nil, nil when the image already fits.
	Resize(data []byte, targetPx int, quality int) ([]byte, error)
}

// UploadResult pairs an uploaded attachment with the blob ids of its
// [preview, thumbnail] variants. VariantIDs is nil when none were made.
type UploadResult struct {
	Attachment *fhir.Attachment
	VariantIDs []string
}

// AttachmentService moves attachment payloads to and from the blob store,
// encrypting them under the record's attachment key.
type AttachmentService struct {
	store  client.BlobStore
	codec  ImageCodec
	logger logging.Logger
}

// NewAttachmentService builds the service. codec may be nil, in which case no
// variants are produced.
func NewAttachmentService(store client.BlobStore, codec ImageCodec, logger logging.Logger) *AttachmentService {
	return &AttachmentService{store: store, codec: codec, logger: logger}
}

// Upload stores every attachment that carries a payload, assigning the blob
// id to Attachment.ID. Results keep the input order.
func (s *AttachmentService) Upload(ctx context.Context, atts []*fhir.Attachment, key cryptox.SymmetricKey, ownerID string) ([]UploadResult, error) {
	results := make([]UploadResult, 0, len(atts))

	for _, a := range atts {
		if a.Data == "" {
			continue
		}
		data, err := a.Payload()
		if err != nil {
			return nil, common.ExpectedFieldViolation("attachment data is not base64")
		}

		id, err := s.put(ctx, data, key, ownerID)
		if err != nil {
			return nil, err
		}
		a.ID = id

		var variantIDs []string
		if s.codec != nil && downscalable(data) && s.codec.IsResizable(data) {
			variantIDs, err = s.uploadVariants(ctx, data, id, key, ownerID)
			if err != nil {
				return nil, err
			}
		}

		s.logger.Debug(ctx, "attachment uploaded", "attachment_id", id, "variants", len(variantIDs))
		results = append(results, UploadResult{Attachment: a, VariantIDs: variantIDs})
	}

	return results, nil
}

// downscalable reports whether data is a JPEG or PNG, the only payloads that
// get preview and thumbnail variants.
func downscalable(data []byte) bool {
	mt, _ := DetectMimeType(data)
	return mt == MimeJPEG || mt == MimePNG
}

// uploadVariants scales every variant before storing any, so a failed resize
// leaves no orphaned blobs behind.
func (s *AttachmentService) uploadVariants(ctx context.Context, data []byte, fullID string, key cryptox.SymmetricKey, ownerID string) ([]string, error) {
	sizes := []int{PreviewSize, ThumbnailSize}
	scaled := make([][]byte, len(sizes))
	for i, px := range sizes {
		out, err := s.codec.Resize(data, px, JPEGQuality)
		if err != nil {
			s.logger.Warn(ctx, "image downscale failed, skipping variants", "attachment_id", fullID, "error", err)
			return nil, nil
		}
		scaled[i] = out
	}

	ids := make([]string, 0, len(sizes))
	for _, v := range scaled {
		if v == nil {
			ids = append(ids, fullID)
			continue
		}
		id, err := s.put(ctx, v, key, ownerID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *AttachmentService) put(ctx context.Context, data []byte, key cryptox.SymmetricKey, ownerID string) (string, error) {
	sealed, err := cryptox.Encrypt(key, data)
	if err != nil {
		return "", err
	}
	id, err := s.store.UploadBlob(ctx, ownerID, sealed)
	if err != nil {
		return "", common.UploadFailed(err)
	}
	return id, nil
}

// Download fills Data, Hash and Size of each attachment from the blob store.
// A transient "full#variant" id fetches the variant. Full payloads created on
// or after HashValidationCutoff must match their stored hash.
func (s *AttachmentService) Download(ctx context.Context, atts []*fhir.Attachment, key cryptox.SymmetricKey, ownerID string) ([]*fhir.Attachment, error) {
	for _, a := range atts {
		if a.ID == "" {
			return nil, common.ExpectedFieldViolation("attachment id")
		}

		blobID := a.ID
		_, variantID, isVariant := splitTransientID(a.ID)
		if isVariant {
			blobID = variantID
		}

		data, err := s.get(ctx, blobID, key, ownerID)
		if err != nil {
			return nil, err
		}

		if !isVariant && enforceHash(a) && fhir.Hash(data) != a.Hash {
			return nil, common.ErrInvalidAttachmentPayloadHash
		}

		a.SetPayload(data)
	}
	return atts, nil
}

func (s *AttachmentService) get(ctx context.Context, blobID string, key cryptox.SymmetricKey, ownerID string) ([]byte, error) {
	sealed, err := s.store.DownloadBlob(ctx, ownerID, blobID)
	if err != nil {
		return nil, common.DownloadFailed(err)
	}
	return cryptox.Decrypt(key, sealed)
}

// Delete removes one blob.
func (s *AttachmentService) Delete(ctx context.Context, blobID, ownerID string) error {
	return s.store.DeleteBlob(ctx, ownerID, blobID)
}

// enforceHash reports whether a downloaded full payload must match a.Hash.
// Attachments without a creation date are treated as new.
func enforceHash(a *fhir.Attachment) bool {
	if a.Hash == "" {
		return false
	}
	return a.Creation == nil || !a.Creation.Before(HashValidationCutoff)
}

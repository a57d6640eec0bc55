package fhir

import (
	"crypto/sha1"
	"encoding/base64"
	"time"
)

// Hash returns the base64 SHA-1 digest FHIR uses for Attachment.hash.
func Hash(data []byte) string {
	sum := sha1.Sum(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// NewAttachment builds an attachment around data with hash, size and creation
// date filled in.
func NewAttachment(title, contentType string, data []byte, creation time.Time) Attachment {
	size := len(data)
	c := creation.UTC()
	return Attachment{
		Title:       title,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(data),
		Size:        &size,
		Hash:        Hash(data),
		Creation:    &c,
	}
}

// Payload decodes the in-flight base64 data.
func (a *Attachment) Payload() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// SetPayload stores data as the in-flight payload and refreshes hash and size.
func (a *Attachment) SetPayload(data []byte) {
	size := len(data)
	a.Data = base64.StdEncoding.EncodeToString(data)
	a.Size = &size
	a.Hash = Hash(data)
}

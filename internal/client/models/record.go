// Package models defines the wire and in-flight record types exchanged
// between the record services and the transport.
package models

import (
	"time"

	"github.com/dmitrijs2005/gophrecords/internal/cryptox"
	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// ModelVersion is the highest record model version this build can read. New
// records are always written with it.
const ModelVersion = 1

// EncryptedRecord is a record as the platform stores it. Nothing in it is
// readable without the account's keys.
type EncryptedRecord struct {
	CommonKeyID   string             `json:"common_key_id"`
	ID            string             `json:"record_id,omitempty"`
	EncryptedTags []string           `json:"encrypted_tags"`
	EncryptedBody string             `json:"encrypted_body"`
	CustomCreated string             `json:"date"`
	CreatedAt     *time.Time         `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time         `json:"updatedAt,omitempty"`
	EncryptedKey  cryptox.WrappedKey `json:"encrypted_key"`
	AttachmentKey cryptox.WrappedKey `json:"attachment_key,omitempty"`
	ModelVersion  int                `json:"model_version"`
}

// CustomDateLayout is the format of EncryptedRecord.CustomCreated.
const CustomDateLayout = "2006-01-02"

// Payload is the decrypted body of a record: FhirPayload or RawPayload.
type Payload interface {
	payload()
}

// FhirPayload carries a FHIR resource.
type FhirPayload struct {
	Resource fhir.Resource
}

// RawPayload carries application bytes that are not FHIR.
type RawPayload struct {
	Data []byte
}

func (FhirPayload) payload() {}
func (RawPayload) payload()  {}

// DecryptedRecord is a record while one operation works on it. It is never
// shared between operations.
type DecryptedRecord struct {
	ID            string
	Payload       Payload
	Tags          map[string]string
	Annotations   []string
	CustomCreated time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DataKey       cryptox.SymmetricKey
	AttachmentKey *cryptox.SymmetricKey
	ModelVersion  int
}

// Resource returns the FHIR resource carried by r, or nil for raw records.
func (r *DecryptedRecord) Resource() fhir.Resource {
	if p, ok := r.Payload.(FhirPayload); ok {
		return p.Resource
	}
	return nil
}

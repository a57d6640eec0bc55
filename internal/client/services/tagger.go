package services

import (
	"maps"
	"strings"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// Reserved tag keys.
const (
	TagResourceType     = "resourcetype"
	TagClient           = "client"
	TagPartner          = "partner"
	TagUpdatedByClient  = "updatedbyclient"
	TagUpdatedByPartner = "updatedbypartner"
	TagFhirVersion      = "fhirversion"
	TagFlag             = "flag"

	FlagAppData = "appdata"
)

const partnerDelimiter = "#"

// Tagger computes the reserved tags of a record. It does no I/O.
type Tagger struct {
	clientID  string
	partnerID string
}

// NewTagger derives the partner id as the part of clientID before the first
// '#'.
func NewTagger(clientID string) *Tagger {
	partner, _, _ := strings.Cut(clientID, partnerDelimiter)
	return &Tagger{clientID: strings.ToLower(clientID), partnerID: strings.ToLower(partner)}
}

// PartnerID returns the partner part of the client id.
func (t *Tagger) PartnerID() string { return t.partnerID }

// DefaultTags returns existing plus the resource type (when given) and the
// authorship tags. The first writer stays in client/partner; later writers
// are recorded in updatedbyclient/updatedbypartner.
func (t *Tagger) DefaultTags(resourceType string, existing map[string]string) map[string]string {
	tags := make(map[string]string, len(existing)+4)
	maps.Copy(tags, existing)

	if resourceType != "" {
		tags[TagResourceType] = strings.ToLower(resourceType)
	}

	if _, ok := tags[TagClient]; ok {
		tags[TagUpdatedByClient] = t.clientID
	} else {
		tags[TagClient] = t.clientID
	}

	if _, ok := tags[TagPartner]; ok {
		tags[TagUpdatedByPartner] = t.partnerID
	} else {
		tags[TagPartner] = t.partnerID
	}

	return tags
}

// FhirTags is DefaultTags plus the FHIR version stamp.
func (t *Tagger) FhirTags(resourceType string, existing map[string]string) map[string]string {
	tags := t.DefaultTags(resourceType, existing)
	tags[TagFhirVersion] = fhir.Version
	return tags
}

// AppDataTags is DefaultTags plus the flag marking raw application data.
func (t *Tagger) AppDataTags(existing map[string]string) map[string]string {
	tags := t.DefaultTags("", existing)
	tags[TagFlag] = FlagAppData
	return tags
}

// TagsForType returns the tag filter selecting records of resourceType.
func TagsForType(resourceType string) map[string]string {
	return map[string]string{TagResourceType: strings.ToLower(resourceType)}
}

// Package fhir holds the subset of the FHIR R4 model the record pipeline
// understands: resources that can carry binary attachments and the
// Identifier list used to link downscaled attachment variants.
package fhir

import "time"

// Version is the FHIR release the model follows. It is stamped into every
// FHIR record's tags.
const Version = "4.0.1"

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Period struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type Identifier struct {
	Use      string           `json:"use,omitempty"`
	Type     *CodeableConcept `json:"type,omitempty"`
	System   string           `json:"system,omitempty"`
	Value    string           `json:"value,omitempty"`
	Period   *Period          `json:"period,omitempty"`
	Assigner *Reference       `json:"assigner,omitempty"`
}

type HumanName struct {
	Use    string   `json:"use,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// Attachment is a FHIR Attachment. Data is only populated while a payload is
// in flight; stored records reference the payload by ID.
type Attachment struct {
	ID          string     `json:"id,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	Language    string     `json:"language,omitempty"`
	Data        string     `json:"data,omitempty"`
	URL         string     `json:"url,omitempty"`
	Size        *int       `json:"size,omitempty"`
	Hash        string     `json:"hash,omitempty"`
	Title       string     `json:"title,omitempty"`
	Creation    *time.Time `json:"creation,omitempty"`
}

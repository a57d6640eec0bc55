package fhir

// Resource is implemented by every FHIR resource the pipeline can store.
type Resource interface {
	GetResourceType() string
	GetID() string
	SetID(id string)
}

// AttachmentHolder is a resource that owns binary attachments. The returned
// pointers alias the resource so callers can edit attachments in place.
type AttachmentHolder interface {
	Resource
	Attachments() []*Attachment
}

// Identifiable is a resource with an identifier list.
type Identifiable interface {
	Resource
	GetIdentifiers() []Identifier
	SetIdentifiers(ids []Identifier)
}

// Base carries the fields shared by all resources.
type Base struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
}

func (b *Base) GetResourceType() string { return b.ResourceType }
func (b *Base) GetID() string           { return b.ID }
func (b *Base) SetID(id string)         { b.ID = id }

type DocumentReferenceContent struct {
	Attachment Attachment `json:"attachment"`
	Format     *Coding    `json:"format,omitempty"`
}

type DocumentReference struct {
	Base
	Identifier  []Identifier               `json:"identifier,omitempty"`
	Status      string                     `json:"status,omitempty"`
	Type        *CodeableConcept           `json:"type,omitempty"`
	Subject     *Reference                 `json:"subject,omitempty"`
	Description string                     `json:"description,omitempty"`
	Author      []Reference                `json:"author,omitempty"`
	Content     []DocumentReferenceContent `json:"content"`
}

// NewDocumentReference returns a current DocumentReference wrapping the given
// attachments.
func NewDocumentReference(description string, attachments ...Attachment) *DocumentReference {
	d := &DocumentReference{
		Base:        Base{ResourceType: "DocumentReference"},
		Status:      "current",
		Description: description,
	}
	for _, a := range attachments {
		d.Content = append(d.Content, DocumentReferenceContent{Attachment: a})
	}
	return d
}

func (d *DocumentReference) Attachments() []*Attachment {
	out := make([]*Attachment, 0, len(d.Content))
	for i := range d.Content {
		out = append(out, &d.Content[i].Attachment)
	}
	return out
}

func (d *DocumentReference) GetIdentifiers() []Identifier    { return d.Identifier }
func (d *DocumentReference) SetIdentifiers(ids []Identifier) { d.Identifier = ids }

type Patient struct {
	Base
	Identifier []Identifier `json:"identifier,omitempty"`
	Active     *bool        `json:"active,omitempty"`
	Name       []HumanName  `json:"name,omitempty"`
	Gender     string       `json:"gender,omitempty"`
	BirthDate  string       `json:"birthDate,omitempty"`
	Photo      []Attachment `json:"photo,omitempty"`
}

func (p *Patient) Attachments() []*Attachment {
	out := make([]*Attachment, 0, len(p.Photo))
	for i := range p.Photo {
		out = append(out, &p.Photo[i])
	}
	return out
}

func (p *Patient) GetIdentifiers() []Identifier    { return p.Identifier }
func (p *Patient) SetIdentifiers(ids []Identifier) { p.Identifier = ids }

type Media struct {
	Base
	Identifier []Identifier     `json:"identifier,omitempty"`
	Status     string           `json:"status,omitempty"`
	Type       *CodeableConcept `json:"type,omitempty"`
	Subject    *Reference       `json:"subject,omitempty"`
	Content    Attachment       `json:"content"`
}

func (m *Media) Attachments() []*Attachment { return []*Attachment{&m.Content} }

func (m *Media) GetIdentifiers() []Identifier    { return m.Identifier }
func (m *Media) SetIdentifiers(ids []Identifier) { m.Identifier = ids }

type DiagnosticReport struct {
	Base
	Identifier    []Identifier     `json:"identifier,omitempty"`
	Status        string           `json:"status,omitempty"`
	Code          *CodeableConcept `json:"code,omitempty"`
	Subject       *Reference       `json:"subject,omitempty"`
	Conclusion    string           `json:"conclusion,omitempty"`
	PresentedForm []Attachment     `json:"presentedForm,omitempty"`
}

func (r *DiagnosticReport) Attachments() []*Attachment {
	out := make([]*Attachment, 0, len(r.PresentedForm))
	for i := range r.PresentedForm {
		out = append(out, &r.PresentedForm[i])
	}
	return out
}

func (r *DiagnosticReport) GetIdentifiers() []Identifier    { return r.Identifier }
func (r *DiagnosticReport) SetIdentifiers(ids []Identifier) { r.Identifier = ids }

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

type Observation struct {
	Base
	Identifier        []Identifier     `json:"identifier,omitempty"`
	Status            string           `json:"status,omitempty"`
	Code              *CodeableConcept `json:"code,omitempty"`
	Subject           *Reference       `json:"subject,omitempty"`
	EffectiveDateTime string           `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity        `json:"valueQuantity,omitempty"`
	ValueString       string           `json:"valueString,omitempty"`
}

func (o *Observation) GetIdentifiers() []Identifier    { return o.Identifier }
func (o *Observation) SetIdentifiers(ids []Identifier) { o.Identifier = ids }

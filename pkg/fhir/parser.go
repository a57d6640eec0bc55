package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnknownResourceType = errors.New("unknown resource type")

// Parser converts resources to and from their serialized body.
type Parser interface {
	Encode(r Resource) (string, error)
	Decode(resourceType string, data string) (Resource, error)
}

// JSONParser encodes resources as FHIR JSON. Decoding picks the concrete type
// from a registry keyed by lower-cased resourceType.
type JSONParser struct {
	mu        sync.RWMutex
	factories map[string]func() Resource
}

// NewJSONParser returns a parser with every resource type of this package
// registered.
func NewJSONParser() *JSONParser {
	p := &JSONParser{factories: map[string]func() Resource{}}
	p.Register("DocumentReference", func() Resource { return &DocumentReference{} })
	p.Register("Patient", func() Resource { return &Patient{} })
	p.Register("Media", func() Resource { return &Media{} })
	p.Register("DiagnosticReport", func() Resource { return &DiagnosticReport{} })
	p.Register("Observation", func() Resource { return &Observation{} })
	return p
}

// Register adds or replaces the factory for resourceType.
func (p *JSONParser) Register(resourceType string, factory func() Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.factories[strings.ToLower(resourceType)] = factory
}

func (p *JSONParser) Encode(r Resource) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", r.GetResourceType(), err)
	}
	return string(b), nil
}

// Decode parses data into the type registered for resourceType. An empty
// resourceType is read from the document itself.
func (p *JSONParser) Decode(resourceType string, data string) (Resource, error) {
	if resourceType == "" {
		var head struct {
			ResourceType string `json:"resourceType"`
		}
		if err := json.Unmarshal([]byte(data), &head); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		resourceType = head.ResourceType
	}

	p.mu.RLock()
	factory, ok := p.factories[strings.ToLower(resourceType)]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, resourceType)
	}

	r := factory()
	if err := json.Unmarshal([]byte(data), r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resourceType, err)
	}
	return r, nil
}

// Package records defines the values handed back to callers of the record
// API: decrypted records, raw data records and batch results.
package records

import (
	"time"

	"github.com/dmitrijs2005/gophrecords/pkg/fhir"
)

// Meta carries the platform-assigned timestamps of a record.
type Meta struct {
	CreatedDate time.Time
	UpdatedDate time.Time
}

// Record is a decrypted FHIR record.
type Record[T fhir.Resource] struct {
	Resource    T
	Meta        Meta
	Annotations []string
}

// DataRecord is a decrypted raw application-data record.
type DataRecord struct {
	ID          string
	Data        []byte
	Meta        Meta
	Annotations []string
}

// Failure pairs a batch input with the error its pipeline ended in.
type Failure[F any] struct {
	Input F
	Err   error
}

// BatchResult partitions a batch into successes and failures. Both lists keep
// the relative order of the inputs.
type BatchResult[S any, F any] struct {
	Successes []S
	Failures  []Failure[F]
}

// DownloadType selects which variant of an attachment to fetch.
type DownloadType int

const (
	DownloadFull DownloadType = iota
	DownloadMedium
	DownloadSmall
)

func (t DownloadType) String() string {
	switch t {
	case DownloadMedium:
		return "medium"
	case DownloadSmall:
		return "small"
	default:
		return "full"
	}
}

// Query filters a record search. Zero values mean "no filter"; PageSize 0
// lets the platform choose.
type Query struct {
	ResourceType string
	Annotations  []string
	StartDate    *time.Time
	EndDate      *time.Time
	PageSize     int
	Offset       int
}

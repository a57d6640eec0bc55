package models

import "time"

// SearchQuery is a record search as sent to the platform. Tags are already
// encrypted; dates are inclusive.
type SearchQuery struct {
	Tags      []string   `json:"tags,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// SearchResult is one page of records plus the total count of matches.
type SearchResult struct {
	Records    []*EncryptedRecord `json:"records"`
	TotalCount int                `json:"total_count"`
}

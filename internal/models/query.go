package models

import (
	"fmt"
	"strings"
)

// DefaultJurisdiction is the jurisdiction assumed when a request does not name one.
const DefaultJurisdiction = "IN"

// DefaultK is the number of candidates fetched when a request does not set K.
const DefaultK = 5

// RetrieveQuery is a clause retrieval request. DocumentType empty means unspecified.
// Jurisdiction nil means DefaultJurisdiction; a pointer to "" disables the jurisdiction filter.
type RetrieveQuery struct {
	Query        string  `json:"query"`
	DocumentType string  `json:"document_type,omitempty"`
	Jurisdiction *string `json:"jurisdiction,omitempty"`
	K            int     `json:"k,omitempty"`
}

// Validate ensures the query is non-empty and applies defaults. K is capped at maxK when maxK > 0.
func (q *RetrieveQuery) Validate(maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	q.DocumentType = strings.TrimSpace(q.DocumentType)
	if q.Jurisdiction == nil {
		j := DefaultJurisdiction
		q.Jurisdiction = &j
	}
	if q.K <= 0 {
		q.K = DefaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}

// JurisdictionOrEmpty returns the requested jurisdiction, or "" when the filter is disabled.
func (q *RetrieveQuery) JurisdictionOrEmpty() string {
	if q.Jurisdiction == nil {
		return DefaultJurisdiction
	}
	return strings.TrimSpace(*q.Jurisdiction)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

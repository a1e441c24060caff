package models

// FallbackScore is the score attached to results that did not come from a similarity search.
const FallbackScore = 1.0

// RetrievalResult is a single retrieved clause fragment.
type RetrievalResult struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// State is the readiness of the retrieval index.
type State string

const (
	// StateReady means a live vector index is serving searches.
	StateReady State = "ready"
	// StateOffline means no embedding model could be loaded; retrieval serves fallback clauses.
	StateOffline State = "offline"
	// StateError means the model loaded but the index could not be built or loaded.
	StateError State = "error"
)

// Status reports the retrieval state and, when degraded, the reason.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// Ready reports whether a live index is available.
func (s Status) Ready() bool {
	return s.State == StateReady
}

// RetrieveResponse is the retrieval payload returned by the HTTP API and the CLI.
type RetrieveResponse struct {
	Query     string             `json:"query"`
	Results   []*RetrievalResult `json:"results"`
	Total     int                `json:"total"`
	Formatted string             `json:"formatted"`
	Status    Status             `json:"status"`
	QueryTime int64              `json:"query_time_ms"`
}

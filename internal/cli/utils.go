// Package cli provides output helpers for the clausedraft command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/clausedraft/internal/indexer"
	"github.com/hyperjump/clausedraft/internal/models"
	"github.com/hyperjump/clausedraft/internal/storage"
	"github.com/hyperjump/clausedraft/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputPrompt prints only the formatted prompt block.
	OutputPrompt OutputFormat = "prompt"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputPrompt:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or prompt)", s)
	}
}

// WriteRetrieveResponse writes a retrieval response to w in the given format.
func WriteRetrieveResponse(w io.Writer, response *models.RetrieveResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputPrompt:
		_, err := io.WriteString(w, response.Formatted)
		return err
	default:
		writeRetrieveText(w, response)
		return nil
	}
}

func writeRetrieveText(w io.Writer, response *models.RetrieveResponse) {
	fmt.Fprintf(w, "\nFound %d clauses in %dms (index: %s)\n", response.Total, response.QueryTime, response.Status.State)
	if response.Status.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", response.Status.Reason)
	}
	fmt.Fprintln(w)
	for i, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d | Score: %.4f | %s | %s | %s\n", i+1, r.Score,
			metaOr(r.Metadata, models.MetaDocumentType), metaOr(r.Metadata, models.MetaJurisdiction), metaOr(r.Metadata, models.MetaClauseID))
		if title := r.Metadata[models.MetaClauseTitle]; title != "" {
			fmt.Fprintf(w, "Title: %s\n", title)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(r.Content, 300))
	}
}

// StatusReport is the shape of GET /api/v1/status and of the status command.
type StatusReport struct {
	Index          models.Status      `json:"index"`
	Clauses        int                `json:"clauses"`
	Manifest       *indexer.Manifest  `json:"manifest,omitempty"`
	Config         map[string]any     `json:"config,omitempty"`
	ClauseDirUsage *storage.PathUsage `json:"clause_dir_usage,omitempty"`
	IndexUsage     *storage.PathUsage `json:"index_usage,omitempty"`
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, status *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "state:              %s\n", status.Index.State)
	if status.Index.Reason != "" {
		fmt.Fprintf(w, "reason:             %s\n", status.Index.Reason)
	}
	fmt.Fprintf(w, "clauses:            %d   # clauses in the corpus\n", status.Clauses)
	if m := status.Manifest; m != nil {
		fmt.Fprintf(w, "chunks:             %d   # vectors in the index\n", m.Chunks)
		fmt.Fprintf(w, "embedder:           %s (%d dims)\n", m.Embedder, m.Dimensions)
		fmt.Fprintf(w, "built_at:           %s\n", m.BuiltAt.Format(time.RFC3339))
	}
	if u := status.ClauseDirUsage; u != nil {
		fmt.Fprintf(w, "clause_dir_usage:   %d files, %d bytes\n", u.Files, u.Bytes)
	}
	if u := status.IndexUsage; u != nil {
		fmt.Fprintf(w, "index_usage:        %d files, %d bytes\n", u.Files, u.Bytes)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(status.Config))
		for k := range status.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-20s%v\n", k+":", status.Config[k])
		}
	}
	return nil
}

// WriteClauses lists clauses one per line, or as JSON.
func WriteClauses(w io.Writer, clauses []models.Clause, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, clauses)
	}
	for _, c := range clauses {
		fmt.Fprintf(w, "%-24s %-20s %-8s %s\n", c.ID, c.DocumentType, c.Jurisdiction, utils.Truncate(c.ClauseTitle, 60))
	}
	fmt.Fprintf(w, "\n%d clauses\n", len(clauses))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func metaOr(m map[string]string, key string) string {
	if v := m[key]; v != "" {
		return v
	}
	return "-"
}

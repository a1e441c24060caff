package retriever

import (
	"slices"
	"strings"

	"github.com/hyperjump/clausedraft/internal/models"
)

const fallbackSource = "default_offline"

type fallbackClause struct {
	id            string
	title         string
	content       string
	documentTypes []string
	jurisdiction  string
}

var fallbackClauses = []fallbackClause{
	{
		id:            "default_1",
		title:         "introduction",
		content:       "This agreement is entered into between the parties for the purpose of establishing legal obligations.",
		documentTypes: []string{"general_agreement", "service_agreement"},
		jurisdiction:  "IN",
	},
	{
		id:            "default_2",
		title:         "terms_conditions",
		content:       "The parties agree to the following terms and conditions as outlined herein.",
		documentTypes: []string{"general_agreement"},
		jurisdiction:  "IN",
	},
	{
		id:            "default_3",
		title:         "payment",
		content:       "Payment terms shall be as mutually agreed upon by both parties.",
		documentTypes: []string{"service_agreement", "loan_agreement"},
		jurisdiction:  "IN",
	},
}

// fallbackResults returns the offline clause set. With a document type, only entries allowing
// that type are kept; when none do, the first two entries are returned instead. At most k
// entries are returned.
func fallbackResults(documentType string, k int) []*models.RetrievalResult {
	selected := fallbackClauses
	if documentType != "" {
		var matched []fallbackClause
		for _, c := range fallbackClauses {
			if slices.Contains(c.documentTypes, documentType) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			selected = matched
		} else {
			selected = fallbackClauses[:2]
		}
	}
	if k > 0 && len(selected) > k {
		selected = selected[:k]
	}
	out := make([]*models.RetrievalResult, len(selected))
	for i, c := range selected {
		out[i] = &models.RetrievalResult{
			Content: c.content,
			Metadata: map[string]string{
				models.MetaClauseID:     c.id,
				models.MetaClauseTitle:  c.title,
				models.MetaJurisdiction: c.jurisdiction,
				"document_types":        strings.Join(c.documentTypes, ", "),
				"source":                fallbackSource,
			},
			Score: models.FallbackScore,
		}
	}
	return out
}

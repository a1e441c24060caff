package storage

import "github.com/hyperjump/clausedraft/internal/models"

// DefaultClauses returns the built-in corpus used when no clause files exist.
func DefaultClauses() []models.Clause {
	return []models.Clause{
		{
			ID:            "loan_interest_1",
			DocumentType:  "loan_agreement",
			ClauseTitle:   "Interest Calculation",
			ClauseContent: "Interest on the Loan Amount shall be calculated on a monthly basis at the rate specified in Clause [X] and shall be payable along with the principal repayment.",
			Jurisdiction:  "IN",
			Keywords:      []string{"interest", "calculation", "monthly"},
		},
		{
			ID:            "loan_repayment_1",
			DocumentType:  "loan_agreement",
			ClauseTitle:   "Repayment Schedule",
			ClauseContent: "The Borrower shall repay the Loan Amount in [NUMBER] equal monthly installments of [AMOUNT] each, commencing from [DATE], and on the same date of each succeeding month.",
			Jurisdiction:  "IN",
			Keywords:      []string{"repayment", "installments", "schedule"},
		},
		{
			ID:            "rental_deposit_1",
			DocumentType:  "rental_agreement",
			ClauseTitle:   "Security Deposit",
			ClauseContent: "The Tenant has deposited a sum of [AMOUNT] as security deposit, which shall be refundable at the termination of this agreement, subject to deduction for any damages or outstanding dues.",
			Jurisdiction:  "IN",
			Keywords:      []string{"security", "deposit", "refundable"},
		},
		{
			ID:            "termination_1",
			DocumentType:  "general",
			ClauseTitle:   "Termination Clause",
			ClauseContent: "Either party may terminate this agreement by giving [NUMBER] days' written notice to the other party. In case of material breach, the non-breaching party may terminate immediately upon written notice.",
			Jurisdiction:  "general",
			Keywords:      []string{"termination", "notice", "breach"},
		},
		{
			ID:            "governing_law_1",
			DocumentType:  "general",
			ClauseTitle:   "Governing Law and Jurisdiction",
			ClauseContent: "This agreement shall be governed by and construed in accordance with the laws of [JURISDICTION]. Any disputes arising under this agreement shall be subject to the exclusive jurisdiction of the courts in [CITY/STATE].",
			Jurisdiction:  "general",
			Keywords:      []string{"governing", "law", "jurisdiction"},
		},
	}
}

// Package relay forwards credit issuances to an external distributed ledger.
//
// Relays are best-effort: a failure is reported once as a *contracts.RelayError
// and the ledger marks the record pending_on_chain. Nothing here retries.
package relay

import (
	"time"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// IssuancePayload is the wire form submitted to external ledgers.
type IssuancePayload struct {
	CreditID          string            `json:"creditId"`
	ProjectID         string            `json:"projectId"`
	NGOName           string            `json:"ngoName"`
	Credits           float64           `json:"credits"`
	VerificationScore float64           `json:"verificationScore"`
	Timestamp         string            `json:"timestamp"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// NewIssuancePayload maps a credit record to its wire form.
func NewIssuancePayload(rec contracts.CreditRecord) IssuancePayload {
	return IssuancePayload{
		CreditID:          rec.CreditID,
		ProjectID:         rec.ReportID,
		NGOName:           rec.NGOID,
		Credits:           rec.TotalCredits,
		VerificationScore: rec.VerificationScore,
		Timestamp:         rec.IssuedAt.UTC().Format(time.RFC3339Nano),
		Metadata: map[string]string{
			"project_type":          rec.ProjectType,
			"verification_standard": rec.VerificationStandard,
		},
	}
}

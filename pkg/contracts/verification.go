package contracts

import "time"

// VerificationInput is the per-submission scalar evidence for a restoration project.
// The values come from external detectors (tree counter, NDVI, sensor summarizer).
type VerificationInput struct {
	ProjectID    string  `json:"project_id,omitempty"`
	TreeCount    int64   `json:"tree_count"`
	ClaimedTrees int64   `json:"claimed_trees"`
	NDVIScore    float64 `json:"ndvi_score"`
	IoTScore     float64 `json:"iot_score"`
	AuditCheck   float64 `json:"audit_check"`
}

// QualityRating grades the final verification score.
type QualityRating string

const (
	QualityPremium      QualityRating = "Premium"
	QualityStandard     QualityRating = "Standard"
	QualityBasic        QualityRating = "Basic"
	QualityInsufficient QualityRating = "Insufficient"
)

// ConfidenceLevel summarizes agreement between the independent evidence sources.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// Severity of a RiskFactor.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// RiskFactor is an advisory annotation. It never blocks issuance.
type RiskFactor struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// ScoreComponent is one weighted input of the final score.
type ScoreComponent struct {
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// ScoreBreakdown lists the four weighted components.
type ScoreBreakdown struct {
	AITree ScoreComponent `json:"ai_tree"`
	NDVI   ScoreComponent `json:"ndvi"`
	IoT    ScoreComponent `json:"iot"`
	Audit  ScoreComponent `json:"audit"`
}

// Sum returns the total of all contributions.
func (b ScoreBreakdown) Sum() float64 {
	return b.AITree.Contribution + b.NDVI.Contribution + b.IoT.Contribution + b.Audit.Contribution
}

// Certification is the eligibility verdict derived from the final score.
type Certification struct {
	Status               string        `json:"status"` // CERTIFIED | NOT CERTIFIED
	Level                QualityRating `json:"certification_level"`
	ValidForCredits      bool          `json:"valid_for_carbon_credits"`
	RequiredImprovements string        `json:"required_improvements,omitempty"`
}

// Report is the immutable verification record stored in the reports sequence.
// Chain fields are filled from the ledger envelope and are not part of the hashed payload.
type Report struct {
	ReportID        string            `json:"report_id"`
	Input           VerificationInput `json:"input"`
	AITreeScore     float64           `json:"ai_tree_score"`
	Breakdown       ScoreBreakdown    `json:"score_breakdown"`
	FinalScore      float64           `json:"final_score"`
	QualityRating   QualityRating     `json:"quality_rating"`
	ConfidenceLevel ConfidenceLevel   `json:"confidence_level"`
	RiskFactors     []RiskFactor      `json:"risk_factors"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Certification   Certification     `json:"certification"`
	Timestamp       time.Time         `json:"timestamp"`

	BlockNumber uint64 `json:"block_number,omitempty"`
	PrevHash    string `json:"prev_hash,omitempty"`
	Hash        string `json:"hash,omitempty"`
}

package scoring

import (
	"fmt"
	"math"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// RiskFactors evaluates every advisory rule independently.
func RiskFactors(in contracts.VerificationInput) []contracts.RiskFactor {
	risks := []contracts.RiskFactor{}

	var ratio float64
	if in.ClaimedTrees > 0 {
		ratio = float64(in.TreeCount) / float64(in.ClaimedTrees)
	}
	switch {
	case ratio < 0.7:
		risks = append(risks, contracts.RiskFactor{
			Type:        "Low Tree Detection",
			Severity:    contracts.SeverityHigh,
			Description: fmt.Sprintf("Only %.1f%% of claimed trees detected", ratio*100),
		})
	case ratio > 1.3:
		risks = append(risks, contracts.RiskFactor{
			Type:        "Over Detection",
			Severity:    contracts.SeverityMedium,
			Description: fmt.Sprintf("Detection exceeds claims by %.1f%%", (ratio-1)*100),
		})
	}

	if in.NDVIScore < 0.4 {
		risks = append(risks, contracts.RiskFactor{
			Type:        "Poor Vegetation Health",
			Severity:    contracts.SeverityHigh,
			Description: fmt.Sprintf("NDVI score of %.2f indicates unhealthy vegetation", in.NDVIScore),
		})
	}
	if in.IoTScore < 0.5 {
		risks = append(risks, contracts.RiskFactor{
			Type:        "Suboptimal Environment",
			Severity:    contracts.SeverityMedium,
			Description: fmt.Sprintf("IoT score of %.2f indicates challenging conditions", in.IoTScore),
		})
	}
	if math.Abs(in.NDVIScore-in.IoTScore) > 0.4 {
		risks = append(risks, contracts.RiskFactor{
			Type:        "Data Inconsistency",
			Severity:    contracts.SeverityMedium,
			Description: "Large discrepancy between NDVI and IoT environmental scores",
		})
	}
	return risks
}

// Recommendations returns operator guidance for a scored report.
func Recommendations(r *contracts.Report) []string {
	var out []string
	switch {
	case r.FinalScore >= thresholdPremium:
		out = append(out, "Excellent verification results. Project approved for premium carbon credits.")
	case r.FinalScore >= thresholdStandard:
		out = append(out, "Good verification results. Project approved for standard carbon credits.")
	case r.FinalScore >= thresholdBasic:
		out = append(out, "Moderate verification results. Project approved for basic carbon credits.")
	default:
		out = append(out, "Verification score insufficient for carbon credit issuance.")
	}
	if r.AITreeScore < 0.7 {
		out = append(out, "Consider improving tree detection accuracy through additional imagery or ground truthing.")
	}
	if r.Input.NDVIScore < 0.6 {
		out = append(out, "Vegetation health indicators suggest need for improved plantation management.")
	}
	if r.Input.IoTScore < 0.6 {
		out = append(out, "Environmental conditions may require intervention to optimize tree growth.")
	}
	return out
}

// Certify derives the certification verdict. Scores below the basic threshold are not certified.
func Certify(final float64) contracts.Certification {
	if final >= thresholdBasic {
		return contracts.Certification{
			Status:          "CERTIFIED",
			Level:           Quality(final),
			ValidForCredits: true,
		}
	}
	return contracts.Certification{
		Status:               "NOT CERTIFIED",
		Level:                contracts.QualityInsufficient,
		ValidForCredits:      false,
		RequiredImprovements: "Improve verification scores above 60% threshold",
	}
}

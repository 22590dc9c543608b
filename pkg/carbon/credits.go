package carbon

import (
	"math"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// BufferRate is the fraction of every issuance held back as a risk reserve.
const BufferRate = 0.15

// CreditSplit is the division of an issuance into buffer and tradable credits.
// Available + Buffer == Total within floating-point tolerance.
type CreditSplit struct {
	Total      float64 `json:"total_credits"`
	Buffer     float64 `json:"buffer_credits"`
	Available  float64 `json:"available_credits"`
	BufferRate float64 `json:"buffer_rate"`
}

// Split applies the buffer reserve to a total credit amount.
func Split(total float64) CreditSplit {
	return CreditSplit{
		Total:      total,
		Buffer:     total * BufferRate,
		Available:  total * (1 - BufferRate),
		BufferRate: BufferRate,
	}
}

// Conversion is the credit conversion of a verified absorption figure.
type Conversion struct {
	CO2Tonnes         float64 `json:"co2_tonnes"`
	VerificationScore float64 `json:"verification_score"`
	VerifiedTonnes    float64 `json:"verified_co2_tonnes"`
	CreditSplit
}

// Credits converts kg of CO2 into credits (1 credit = 1 verified tonne).
func Credits(co2Kg, verificationScore float64) (*Conversion, error) {
	if math.IsNaN(co2Kg) || math.IsInf(co2Kg, 0) || co2Kg < 0 {
		return nil, contracts.Invalid("co2_kg", "must be a non-negative number, got %v", co2Kg)
	}
	if math.IsNaN(verificationScore) || verificationScore < 0 || verificationScore > 1 {
		return nil, contracts.Invalid("verification_score", "must be within [0,1], got %v", verificationScore)
	}
	tonnes := co2Kg / 1000
	verified := tonnes * verificationScore
	return &Conversion{
		CO2Tonnes:         tonnes,
		VerificationScore: verificationScore,
		VerifiedTonnes:    verified,
		CreditSplit:       Split(verified),
	}, nil
}

// MarketValues prices available credits at reference market rates, USD.
// Internal accounting only; no settlement happens.
type MarketValues struct {
	VoluntaryLow  float64 `json:"voluntary_market_low"`
	VoluntaryAvg  float64 `json:"voluntary_market_avg"`
	VoluntaryHigh float64 `json:"voluntary_market_high"`
	ComplianceAvg float64 `json:"compliance_market_avg"`
}

// ValueAt returns reference market values for an available credit amount.
func ValueAt(available float64) MarketValues {
	return MarketValues{
		VoluntaryLow:  available * 5,
		VoluntaryAvg:  available * 15,
		VoluntaryHigh: available * 30,
		ComplianceAvg: available * 25,
	}
}

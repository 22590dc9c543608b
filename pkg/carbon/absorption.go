package carbon

import (
	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// Carbon mass fraction of CO2 (12/44).
const carbonFraction = 0.2727

// Reference emission intensities, kg CO2 per unit.
const (
	kgPerCarMile       = 0.404
	kgPerHomeDay       = 26.4
	kgPerTreePlanted   = 22
	kgPerGasolineLiter = 2.31
	kgPerCoalKg        = 2.86
)

// AnnualAbsorption returns the adjusted annual CO2 uptake in kg for treeCount trees.
func AnnualAbsorption(treeCount int64, cfg AbsorptionConfig) (float64, error) {
	if treeCount < 0 {
		return 0, contracts.Invalid("tree_count", "must be non-negative, got %d", treeCount)
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	kg := float64(treeCount) * BaseRateKgPerTree
	for _, f := range cfg.factors() {
		kg *= f.Value
	}
	return kg, nil
}

// Equivalents expresses an amount of CO2 in everyday terms.
type Equivalents struct {
	CarMiles       float64 `json:"car_miles_offset"`
	HomePowerDays  float64 `json:"home_power_days"`
	TreesPlanted   float64 `json:"tree_planting_equivalent"`
	GasolineLiters float64 `json:"gasoline_liters_offset"`
	CoalKg         float64 `json:"coal_kg_offset"`
}

// EquivalentsFor converts kg of CO2 into reference equivalents.
func EquivalentsFor(co2Kg float64) Equivalents {
	return Equivalents{
		CarMiles:       co2Kg / kgPerCarMile,
		HomePowerDays:  co2Kg / kgPerHomeDay,
		TreesPlanted:   co2Kg / kgPerTreePlanted,
		GasolineLiters: co2Kg / kgPerGasolineLiter,
		CoalKg:         co2Kg / kgPerCoalKg,
	}
}

// Estimate is a full absorption estimate for a plantation.
type Estimate struct {
	TreeCount             int64       `json:"tree_count"`
	AnnualCO2Kg           float64     `json:"co2_absorbed_kg"`
	AnnualCO2Tonnes       float64     `json:"co2_absorbed_tonnes"`
	CarbonKg              float64     `json:"carbon_kg"`
	CarbonTonnes          float64     `json:"carbon_tonnes"`
	ProjectDurationYears  float64     `json:"project_duration_years"`
	LifetimeCO2Kg         float64     `json:"lifetime_co2_kg"`
	LifetimeCO2Tonnes     float64     `json:"lifetime_co2_tonnes"`
	EconomicValueAnnual   float64     `json:"economic_value_usd_annual"`
	EconomicValueLifetime float64     `json:"economic_value_usd_lifetime"`
	Equivalents           Equivalents `json:"equivalent_metrics"`
	BaseRateKgPerTree     float64     `json:"base_rate_kg_per_tree"`
	FactorsApplied        []Factor    `json:"factors_applied"`
}

// EstimateAbsorption computes annual and lifetime absorption with derived figures.
func EstimateAbsorption(treeCount int64, cfg AbsorptionConfig) (*Estimate, error) {
	annual, err := AnnualAbsorption(treeCount, cfg)
	if err != nil {
		return nil, err
	}
	duration := cfg.duration()
	lifetime := annual * duration
	factors := cfg.factors()
	if factors == nil {
		factors = []Factor{}
	}
	return &Estimate{
		TreeCount:             treeCount,
		AnnualCO2Kg:           annual,
		AnnualCO2Tonnes:       annual / 1000,
		CarbonKg:              annual * carbonFraction,
		CarbonTonnes:          annual * carbonFraction / 1000,
		ProjectDurationYears:  duration,
		LifetimeCO2Kg:         lifetime,
		LifetimeCO2Tonnes:     lifetime / 1000,
		EconomicValueAnnual:   annual / 1000 * cfg.price(),
		EconomicValueLifetime: lifetime / 1000 * cfg.price(),
		Equivalents:           EquivalentsFor(annual),
		BaseRateKgPerTree:     BaseRateKgPerTree,
		FactorsApplied:        factors,
	}, nil
}

package carbon

import (
	"math"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// DefaultTreeDensity is trees per hectare when none is given.
const DefaultTreeDensity = 1000

const scenarioDurationYears = 20

// Scenario is one projected outcome for a plantation.
type Scenario struct {
	Name                  string  `json:"name"`
	AnnualCO2Tonnes       float64 `json:"annual_co2_tonnes"`
	LifetimeCO2Tonnes     float64 `json:"lifetime_co2_tonnes"`
	EconomicValueLifetime float64 `json:"economic_value_lifetime"`
}

// Potential is the absorption potential of a planned area.
type Potential struct {
	AreaHectares float64    `json:"area_hectares"`
	TreeDensity  float64    `json:"tree_density"`
	TotalTrees   int64      `json:"total_trees"`
	Scenarios    []Scenario `json:"scenarios"`
}

var scenarios = []struct {
	name string
	cfg  AbsorptionConfig
}{
	{"conservative", AbsorptionConfig{TreeAge: AgeYoung, Environment: EnvModerate, SurvivalRate: Float64(0.7)}},
	{"realistic", AbsorptionConfig{TreeAge: AgeMature, Environment: EnvGood, SurvivalRate: Float64(0.8)}},
	{"optimal", AbsorptionConfig{TreeAge: AgeMature, Environment: EnvOptimal, SurvivalRate: Float64(0.9)}},
}

// PlantationPotential projects conservative, realistic and optimal scenarios over 20 years.
// A zero density uses DefaultTreeDensity.
func PlantationPotential(areaHectares, density float64) (*Potential, error) {
	if !finite(areaHectares) || areaHectares < 0 {
		return nil, contracts.Invalid("area_hectares", "must be non-negative, got %v", areaHectares)
	}
	if density == 0 {
		density = DefaultTreeDensity
	}
	if !finite(density) || density < 0 {
		return nil, contracts.Invalid("tree_density", "must be positive, got %v", density)
	}

	trees := int64(math.Round(areaHectares * density))
	p := &Potential{AreaHectares: areaHectares, TreeDensity: density, TotalTrees: trees}
	for _, s := range scenarios {
		cfg := s.cfg
		cfg.ProjectDurationYears = scenarioDurationYears
		est, err := EstimateAbsorption(trees, cfg)
		if err != nil {
			return nil, err
		}
		p.Scenarios = append(p.Scenarios, Scenario{
			Name:                  s.name,
			AnnualCO2Tonnes:       est.AnnualCO2Tonnes,
			LifetimeCO2Tonnes:     est.LifetimeCO2Tonnes,
			EconomicValueLifetime: est.EconomicValueLifetime,
		})
	}
	return p, nil
}

// Package carbon estimates mangrove CO2 absorption and converts verified
// absorption into carbon credits with a buffer reserve.
package carbon

import (
	"math"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// TreeAge is the average age category of a plantation.
type TreeAge string

const (
	AgeSeedling  TreeAge = "seedling"
	AgeYoung     TreeAge = "young"
	AgeMature    TreeAge = "mature"
	AgeOldGrowth TreeAge = "old_growth"
)

var ageFactors = map[TreeAge]float64{
	AgeSeedling:  0.3,
	AgeYoung:     0.6,
	AgeMature:    1.0,
	AgeOldGrowth: 0.8,
}

// Species is the dominant mangrove genus.
type Species string

const (
	SpeciesRhizophora   Species = "rhizophora"
	SpeciesAvicennia    Species = "avicennia"
	SpeciesLaguncularia Species = "laguncularia"
	SpeciesConocarpus   Species = "conocarpus"
	SpeciesGeneral      Species = "general"
)

var speciesFactors = map[Species]float64{
	SpeciesRhizophora:   1.2,
	SpeciesAvicennia:    1.0,
	SpeciesLaguncularia: 0.9,
	SpeciesConocarpus:   0.8,
	SpeciesGeneral:      1.0,
}

// Environment is the environmental stress level at the site.
type Environment string

const (
	EnvOptimal  Environment = "optimal"
	EnvGood     Environment = "good"
	EnvModerate Environment = "moderate"
	EnvPoor     Environment = "poor"
)

var environmentFactors = map[Environment]float64{
	EnvOptimal:  1.2,
	EnvGood:     1.0,
	EnvModerate: 0.8,
	EnvPoor:     0.6,
}

const (
	// BaseRateKgPerTree is the annual CO2 uptake of one mature tree in neutral conditions.
	BaseRateKgPerTree = 12.3
	// DefaultProjectDurationYears applies when AbsorptionConfig.ProjectDurationYears is zero.
	DefaultProjectDurationYears = 10
	// DefaultCarbonPricePerTonne is the reference USD price used for economic value figures.
	DefaultCarbonPricePerTonne = 15.0

	highDensityThreshold = 2000
	lowDensityThreshold  = 500
	highDensityFactor    = 0.8
	lowDensityFactor     = 1.1
)

// AbsorptionConfig enumerates every recognized adjustment. Zero values are neutral.
type AbsorptionConfig struct {
	TreeAge              TreeAge     `json:"tree_age,omitempty"`
	Species              Species     `json:"species,omitempty"`
	Environment          Environment `json:"environmental_condition,omitempty"`
	SurvivalRate         *float64    `json:"survival_rate,omitempty"`
	TreesPerHectare      *float64    `json:"trees_per_hectare,omitempty"`
	ProjectDurationYears float64     `json:"project_duration,omitempty"`
	CarbonPricePerTonne  float64     `json:"carbon_price,omitempty"`
}

// Validate rejects unknown categories and out-of-range numbers.
func (c AbsorptionConfig) Validate() error {
	if c.TreeAge != "" {
		if _, ok := ageFactors[c.TreeAge]; !ok {
			return contracts.Invalid("tree_age", "unknown category %q", c.TreeAge)
		}
	}
	if c.Species != "" {
		if _, ok := speciesFactors[c.Species]; !ok {
			return contracts.Invalid("species", "unknown species %q", c.Species)
		}
	}
	if c.Environment != "" {
		if _, ok := environmentFactors[c.Environment]; !ok {
			return contracts.Invalid("environmental_condition", "unknown condition %q", c.Environment)
		}
	}
	if c.SurvivalRate != nil {
		if s := *c.SurvivalRate; math.IsNaN(s) || s < 0 || s > 1 {
			return contracts.Invalid("survival_rate", "must be within [0,1], got %v", s)
		}
	}
	if c.TreesPerHectare != nil {
		if d := *c.TreesPerHectare; !finite(d) || d <= 0 {
			return contracts.Invalid("trees_per_hectare", "must be positive, got %v", d)
		}
	}
	if !finite(c.ProjectDurationYears) || c.ProjectDurationYears < 0 {
		return contracts.Invalid("project_duration", "must be non-negative, got %v", c.ProjectDurationYears)
	}
	if !finite(c.CarbonPricePerTonne) || c.CarbonPricePerTonne < 0 {
		return contracts.Invalid("carbon_price", "must be non-negative, got %v", c.CarbonPricePerTonne)
	}
	return nil
}

func (c AbsorptionConfig) duration() float64 {
	if c.ProjectDurationYears == 0 {
		return DefaultProjectDurationYears
	}
	return c.ProjectDurationYears
}

func (c AbsorptionConfig) price() float64 {
	if c.CarbonPricePerTonne == 0 {
		return DefaultCarbonPricePerTonne
	}
	return c.CarbonPricePerTonne
}

// Factor is one applied multiplier, reported for transparency.
type Factor struct {
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Value    float64 `json:"factor"`
}

// factors returns the multipliers in a fixed order. Unset options are omitted.
func (c AbsorptionConfig) factors() []Factor {
	var out []Factor
	if c.TreeAge != "" {
		out = append(out, Factor{Name: "tree_age", Category: string(c.TreeAge), Value: ageFactors[c.TreeAge]})
	}
	if c.Species != "" {
		out = append(out, Factor{Name: "species", Category: string(c.Species), Value: speciesFactors[c.Species]})
	}
	if c.Environment != "" {
		out = append(out, Factor{Name: "environmental", Category: string(c.Environment), Value: environmentFactors[c.Environment]})
	}
	if c.SurvivalRate != nil {
		out = append(out, Factor{Name: "survival_rate", Value: *c.SurvivalRate})
	}
	if c.TreesPerHectare != nil {
		switch d := *c.TreesPerHectare; {
		case d > highDensityThreshold:
			out = append(out, Factor{Name: "density", Category: "high", Value: highDensityFactor})
		case d < lowDensityThreshold:
			out = append(out, Factor{Name: "density", Category: "low", Value: lowDensityFactor})
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Float64 returns a pointer to v, for optional config fields.
func Float64(v float64) *float64 { return &v }

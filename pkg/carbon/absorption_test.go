package carbon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

func TestAnnualAbsorption_Neutral(t *testing.T) {
	kg, err := AnnualAbsorption(100, AbsorptionConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 1230, kg, 1e-9)

	kg, err = AnnualAbsorption(100, AbsorptionConfig{
		TreeAge: AgeMature, Species: SpeciesGeneral, Environment: EnvGood, SurvivalRate: Float64(1.0),
	})
	require.NoError(t, err)
	assert.InDelta(t, 1230, kg, 1e-9)
}

func TestAnnualAbsorption_Factors(t *testing.T) {
	kg, err := AnnualAbsorption(1, AbsorptionConfig{Species: SpeciesRhizophora, Environment: EnvOptimal})
	require.NoError(t, err)
	assert.InDelta(t, 17.712, kg, 1e-9)

	kg, err = AnnualAbsorption(10, AbsorptionConfig{TreeAge: AgeSeedling, SurvivalRate: Float64(0.5)})
	require.NoError(t, err)
	assert.InDelta(t, 123*0.3*0.5, kg, 1e-9)
}

func TestAnnualAbsorption_Density(t *testing.T) {
	tests := []struct {
		density float64
		want    float64
	}{
		{2500, 1230 * 0.8},
		{2000, 1230},
		{500, 1230},
		{499, 1230 * 1.1},
	}
	for _, tt := range tests {
		kg, err := AnnualAbsorption(100, AbsorptionConfig{TreesPerHectare: Float64(tt.density)})
		require.NoError(t, err)
		assert.InDelta(t, tt.want, kg, 1e-9, "density %v", tt.density)
	}
}

func TestAnnualAbsorption_Validation(t *testing.T) {
	tests := []struct {
		name  string
		trees int64
		cfg   AbsorptionConfig
		field string
	}{
		{"negative trees", -1, AbsorptionConfig{}, "tree_count"},
		{"survival above one", 1, AbsorptionConfig{SurvivalRate: Float64(1.2)}, "survival_rate"},
		{"survival negative", 1, AbsorptionConfig{SurvivalRate: Float64(-0.1)}, "survival_rate"},
		{"survival nan", 1, AbsorptionConfig{SurvivalRate: Float64(math.NaN())}, "survival_rate"},
		{"unknown age", 1, AbsorptionConfig{TreeAge: "ancient"}, "tree_age"},
		{"unknown species", 1, AbsorptionConfig{Species: "oak"}, "species"},
		{"unknown environment", 1, AbsorptionConfig{Environment: "toxic"}, "environmental_condition"},
		{"zero density", 1, AbsorptionConfig{TreesPerHectare: Float64(0)}, "trees_per_hectare"},
		{"negative duration", 1, AbsorptionConfig{ProjectDurationYears: -2}, "project_duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AnnualAbsorption(tt.trees, tt.cfg)
			var ve *contracts.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestEstimateAbsorption(t *testing.T) {
	est, err := EstimateAbsorption(100, AbsorptionConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 1230, est.AnnualCO2Kg, 1e-9)
	assert.InDelta(t, 1.23, est.AnnualCO2Tonnes, 1e-12)
	assert.Equal(t, float64(DefaultProjectDurationYears), est.ProjectDurationYears)
	assert.InDelta(t, 12300, est.LifetimeCO2Kg, 1e-9)
	assert.InDelta(t, 12.3, est.LifetimeCO2Tonnes, 1e-9)
	assert.InDelta(t, 1230*0.2727, est.CarbonKg, 1e-9)
	assert.InDelta(t, 1.23*15, est.EconomicValueAnnual, 1e-9)
	assert.InDelta(t, 1230/0.404, est.Equivalents.CarMiles, 1e-9)
	assert.InDelta(t, 1230/2.86, est.Equivalents.CoalKg, 1e-9)
	assert.Empty(t, est.FactorsApplied)

	est, err = EstimateAbsorption(100, AbsorptionConfig{Species: SpeciesAvicennia, ProjectDurationYears: 5, CarbonPricePerTonne: 30})
	require.NoError(t, err)
	assert.InDelta(t, 6150, est.LifetimeCO2Kg, 1e-9)
	assert.InDelta(t, 6.15*30, est.EconomicValueLifetime, 1e-9)
	require.Len(t, est.FactorsApplied, 1)
	assert.Equal(t, "species", est.FactorsApplied[0].Name)
}

//go:build property
// +build property

package scoring_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/01phanto/EcoLedger/pkg/contracts"
	"github.com/01phanto/EcoLedger/pkg/scoring"
)

// TestFinalScoreBounded verifies 0 <= final_score <= 1 for every valid input.
func TestFinalScoreBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)
	agg := scoring.NewAggregator()

	properties.Property("final score stays in [0,1]", prop.ForAll(
		func(trees, claimed int64, ndvi, iot, audit float64) bool {
			r, err := agg.Aggregate(contracts.VerificationInput{
				TreeCount: trees, ClaimedTrees: claimed,
				NDVIScore: ndvi, IoTScore: iot, AuditCheck: audit,
			})
			if err != nil {
				return false
			}
			return r.FinalScore >= 0 && r.FinalScore <= 1 &&
				r.AITreeScore >= 0 && r.AITreeScore <= 1
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(1, 1_000_000),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestQualityMonotone verifies a higher score never yields a lower rating.
func TestQualityMonotone(t *testing.T) {
	rank := map[contracts.QualityRating]int{
		contracts.QualityInsufficient: 0, contracts.QualityBasic: 1,
		contracts.QualityStandard: 2, contracts.QualityPremium: 3,
	}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("quality is monotone in the final score", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return rank[scoring.Quality(a)] <= rank[scoring.Quality(b)]
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))
	properties.TestingRun(t)
}

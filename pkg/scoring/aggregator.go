// Package scoring combines detector outputs into a bounded verification score
// with quality, confidence and risk annotations.
package scoring

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// Component weights. They sum to 1.0.
const (
	WeightAITree = 0.4
	WeightNDVI   = 0.3
	WeightIoT    = 0.2
	WeightAudit  = 0.1
)

const (
	overDetectionCap     = 1.2
	overDetectionPenalty = 0.3

	thresholdPremium  = 0.90
	thresholdStandard = 0.75
	thresholdBasic    = 0.60
)

// Aggregator turns a VerificationInput into a Report. It holds no mutable state
// and is safe for concurrent use.
type Aggregator struct {
	now   func() time.Time
	newID func() string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator overrides report id generation.
func WithIDGenerator(fn func() string) Option {
	return func(a *Aggregator) { a.newID = fn }
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate validates the input and computes the full report. Chain fields are left empty.
func (a *Aggregator) Aggregate(in contracts.VerificationInput) (*contracts.Report, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	ai := AITreeScore(in.TreeCount, in.ClaimedTrees)
	breakdown := Breakdown(ai, in.NDVIScore, in.IoTScore, in.AuditCheck)
	final := clamp01(breakdown.Sum())

	r := &contracts.Report{
		ReportID:        a.newID(),
		Input:           in,
		AITreeScore:     ai,
		Breakdown:       breakdown,
		FinalScore:      final,
		QualityRating:   Quality(final),
		ConfidenceLevel: Confidence(ai, in.NDVIScore, in.IoTScore),
		RiskFactors:     RiskFactors(in),
		Certification:   Certify(final),
		Timestamp:       a.now().UTC(),
	}
	r.Recommendations = Recommendations(r)
	return r, nil
}

// Validate checks the input ranges and reports the first offending field.
func Validate(in contracts.VerificationInput) error {
	if in.TreeCount < 0 {
		return contracts.Invalid("tree_count", "must be non-negative, got %d", in.TreeCount)
	}
	if in.ClaimedTrees <= 0 {
		return contracts.Invalid("claimed_trees", "must be positive, got %d", in.ClaimedTrees)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"ndvi_score", in.NDVIScore},
		{"iot_score", in.IoTScore},
		{"audit_check", in.AuditCheck},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return contracts.Invalid(f.name, "must be within [0,1], got %v", f.v)
		}
	}
	return nil
}

// AITreeScore is detected/claimed with an over-detection penalty above 1.2, clamped to [0,1].
func AITreeScore(treeCount, claimedTrees int64) float64 {
	if claimedTrees <= 0 {
		return 0
	}
	raw := float64(treeCount) / float64(claimedTrees)
	if raw > overDetectionCap {
		raw = overDetectionCap - (raw-overDetectionCap)*overDetectionPenalty
	}
	return clamp01(raw)
}

// Breakdown computes the per-component contributions.
func Breakdown(ai, ndvi, iot, audit float64) contracts.ScoreBreakdown {
	component := func(v, w float64) contracts.ScoreComponent {
		return contracts.ScoreComponent{Value: v, Weight: w, Contribution: v * w}
	}
	return contracts.ScoreBreakdown{
		AITree: component(ai, WeightAITree),
		NDVI:   component(ndvi, WeightNDVI),
		IoT:    component(iot, WeightIoT),
		Audit:  component(audit, WeightAudit),
	}
}

// Quality maps a final score to its rating, evaluated high to low.
func Quality(final float64) contracts.QualityRating {
	switch {
	case final >= thresholdPremium:
		return contracts.QualityPremium
	case final >= thresholdStandard:
		return contracts.QualityStandard
	case final >= thresholdBasic:
		return contracts.QualityBasic
	default:
		return contracts.QualityInsufficient
	}
}

// Confidence grades the agreement of the three evidence sources using
// population variance and mean.
func Confidence(ai, ndvi, iot float64) contracts.ConfidenceLevel {
	mean, variance := stat.PopMeanVariance([]float64{ai, ndvi, iot}, nil)
	switch {
	case variance < 0.05 && mean > 0.8:
		return contracts.ConfidenceHigh
	case variance < 0.10 && mean > 0.6:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

package scoring

import (
	"fmt"

	"github.com/01phanto/EcoLedger/pkg/contracts"
)

// BatchResult is the outcome for one project in a batch.
type BatchResult struct {
	ProjectID string            `json:"project_id"`
	Report    *contracts.Report `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// BatchSummary aggregates successful results.
type BatchSummary struct {
	TotalProjects     int     `json:"total_projects"`
	Successful        int     `json:"successful_calculations"`
	Failed            int     `json:"failed_calculations"`
	TotalTrees        int64   `json:"total_trees"`
	AverageFinalScore float64 `json:"average_final_score"`
}

// AggregateBatch scores every input. A failing item is reported in its result and never aborts the batch.
// Items without a ProjectID are named project_<n>, 1-based.
func (a *Aggregator) AggregateBatch(inputs []contracts.VerificationInput) ([]BatchResult, BatchSummary) {
	results := make([]BatchResult, 0, len(inputs))
	summary := BatchSummary{TotalProjects: len(inputs)}
	var scoreSum float64

	for i, in := range inputs {
		id := in.ProjectID
		if id == "" {
			id = fmt.Sprintf("project_%d", i+1)
		}
		report, err := a.Aggregate(in)
		if err != nil {
			summary.Failed++
			results = append(results, BatchResult{ProjectID: id, Error: err.Error()})
			continue
		}
		summary.Successful++
		summary.TotalTrees += in.TreeCount
		scoreSum += report.FinalScore
		results = append(results, BatchResult{ProjectID: id, Report: report})
	}
	if summary.Successful > 0 {
		summary.AverageFinalScore = scoreSum / float64(summary.Successful)
	}
	return results, summary
}

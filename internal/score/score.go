// Package score combines per-metric results into a single reward.
package score

import (
	"github.com/mokulua/rlvr/internal/metric"
)

// Aggregate computes the weighted mean of the metric scores, restricted
// to metrics present in both the results and the weight table. Zero
// total weight yields 0.
func Aggregate(results []metric.Result, weights map[string]float64) float64 {
	total := 0.0
	totalWeight := 0.0

	for _, r := range results {
		w, ok := weights[r.Name]
		if !ok {
			continue
		}
		total += w * r.Score
		totalWeight += w
	}

	if totalWeight <= 0 {
		return 0
	}
	return total / totalWeight
}

// Breakdown is the transparency record written to the audit log
// alongside an aggregate reward.
type Breakdown struct {
	Total          float64            `json:"total"`
	Components     []metric.Result    `json:"components"`
	Weights        map[string]float64 `json:"weights"`
	WeightedScores map[string]float64 `json:"weighted_scores"`
}

// NewBreakdown pairs the aggregate with each metric's weighted
// contribution.
func NewBreakdown(results []metric.Result, weights map[string]float64, total float64) Breakdown {
	weighted := make(map[string]float64, len(results))
	for _, r := range results {
		if w, ok := weights[r.Name]; ok {
			weighted[r.Name] = r.Score * w
		}
	}
	return Breakdown{
		Total:          total,
		Components:     results,
		Weights:        weights,
		WeightedScores: weighted,
	}
}

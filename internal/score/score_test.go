package score

import (
	"math"
	"testing"

	"github.com/mokulua/rlvr/internal/metric"
)

func results(scores map[string]float64) []metric.Result {
	out := make([]metric.Result, 0, len(scores))
	for _, name := range []string{"diacritics", "tam_particles", "articles_ke_ka"} {
		if s, ok := scores[name]; ok {
			out = append(out, metric.Result{Name: name, Version: "1.0", Score: s})
		}
	}
	return out
}

func TestAggregateWeightedMean(t *testing.T) {
	rs := results(map[string]float64{
		"diacritics":     1.0,
		"tam_particles":  0.5,
		"articles_ke_ka": 1.0,
	})
	weights := map[string]float64{
		"diacritics":     0.4,
		"tam_particles":  0.4,
		"articles_ke_ka": 0.2,
	}

	got := Aggregate(rs, weights)
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Aggregate() = %v, want 0.8", got)
	}
}

func TestAggregateIgnoresUnweightedMetrics(t *testing.T) {
	rs := []metric.Result{
		{Name: "diacritics", Score: 1.0},
		{Name: "unknown_metric", Score: 0.0},
	}
	got := Aggregate(rs, map[string]float64{"diacritics": 0.4})
	if got != 1.0 {
		t.Errorf("Aggregate() = %v, want 1.0", got)
	}
}

func TestAggregateZeroWeight(t *testing.T) {
	rs := results(map[string]float64{"diacritics": 1.0})
	if got := Aggregate(rs, map[string]float64{}); got != 0 {
		t.Errorf("Aggregate() with no weights = %v, want 0", got)
	}
	if got := Aggregate(nil, map[string]float64{"diacritics": 0.4}); got != 0 {
		t.Errorf("Aggregate() with no results = %v, want 0", got)
	}
}

func TestAggregateNormalizesPartialWeights(t *testing.T) {
	// Only two of three weighted metrics present: the mean renormalizes
	// over the intersection.
	rs := results(map[string]float64{
		"diacritics":    1.0,
		"tam_particles": 0.0,
	})
	weights := map[string]float64{
		"diacritics":     0.4,
		"tam_particles":  0.4,
		"articles_ke_ka": 0.2,
	}
	got := Aggregate(rs, weights)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Aggregate() = %v, want 0.5", got)
	}
}

func TestNewBreakdown(t *testing.T) {
	rs := results(map[string]float64{
		"diacritics":    0.5,
		"tam_particles": 1.0,
	})
	weights := map[string]float64{"diacritics": 0.4, "tam_particles": 0.4}
	total := Aggregate(rs, weights)

	b := NewBreakdown(rs, weights, total)
	if b.Total != total {
		t.Errorf("Total = %v, want %v", b.Total, total)
	}
	if len(b.Components) != 2 {
		t.Errorf("Components = %d, want 2", len(b.Components))
	}
	if math.Abs(b.WeightedScores["diacritics"]-0.2) > 1e-9 {
		t.Errorf("WeightedScores[diacritics] = %v, want 0.2", b.WeightedScores["diacritics"])
	}
}

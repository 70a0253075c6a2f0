package monitor

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/gridsight/internal/analytics"
)

// ScoreDistribution summarises the leaf score population.
type ScoreDistribution struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Median   float64 `json:"median"`
	P90      float64 `json:"p90"`
	P99      float64 `json:"p99"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
}

// scoreDistribution computes summary statistics over all leaf scores.
func scoreDistribution(tree *analytics.RegionTree) ScoreDistribution {
	var scores []float64
	tree.TraverseLeaves(func(node *analytics.RegionNode) {
		scores = append(scores, node.Score)
	})
	if len(scores) == 0 {
		return ScoreDistribution{}
	}

	sort.Float64s(scores)

	mean, std := stat.MeanStdDev(scores, nil)
	dist := ScoreDistribution{
		Count:  len(scores),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, scores, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, scores, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, scores, nil),
		Max:    scores[len(scores)-1],
	}
	// MeanStdDev returns NaN std for a single sample
	if len(scores) > 1 {
		dist.StdDev = std
		dist.Skewness = stat.Skew(scores, nil)
	}
	return dist
}

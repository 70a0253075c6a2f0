package analytics

import (
	"math"
	"time"
)

// Constants for deviation scoring
const (
	// DefaultAnomalyThreshold is the default flagging threshold, in units of
	// global standard deviation.
	DefaultAnomalyThreshold = 2.0
	// minUsableStdDev guards the score division; below this the raster is
	// treated as uniform and every score is defined as 0.
	minUsableStdDev = 1e-10
)

// Scorer assigns each tree node a deviation score: the absolute distance of
// the node's mean from the global mean, in units of global standard
// deviation. The global deviation is used (not the node's own) because the
// score measures how different the region is from the raster as a whole.
type Scorer struct {
	Threshold float64

	index *StatsIndex
}

// ScoreStats summarises one scoring pass. Aggregates cover leaf nodes only;
// internal nodes are scored too (the query engine prunes on them) but leaves
// are the unit of reporting.
type ScoreStats struct {
	LeavesScored    int     `json:"leaves_scored"`
	AnomalousLeaves int     `json:"anomalous_leaves"`
	MinScore        float64 `json:"min_score"`
	MaxScore        float64 `json:"max_score"`
	MeanScore       float64 `json:"mean_score"`
	ElapsedMs       float64 `json:"elapsed_ms"`
}

// NewScorer creates a scorer against a built index. A nil or unbuilt index
// is accepted here and rejected at Run time.
func NewScorer(index *StatsIndex, threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}
	return &Scorer{Threshold: threshold, index: index}
}

// ScoreRegion computes the deviation score for an arbitrary region in O(1).
// Returns 0 when the index is unbuilt or the raster is uniform.
func (s *Scorer) ScoreRegion(r Region) float64 {
	if s == nil || !s.index.IsBuilt() {
		return 0
	}
	g := s.index.GlobalStats()
	if g.StdDev < minUsableStdDev {
		return 0
	}
	return math.Abs(s.index.QueryMean(r)-g.Mean) / g.StdDev
}

// Run scores every node in the tree in one pass, writing Score and IsAnomaly
// in place, and returns leaf-level aggregates. Running before the index and
// tree are built is a recoverable error and mutates nothing.
func (s *Scorer) Run(tree *RegionTree) (ScoreStats, error) {
	var stats ScoreStats
	if s == nil || !s.index.IsBuilt() || tree == nil || tree.NodeCount() == 0 {
		return stats, ErrNotBuilt
	}

	start := time.Now()
	g := s.index.GlobalStats()
	uniform := g.StdDev < minUsableStdDev

	stats.MinScore = math.MaxFloat64
	var totalScore float64

	nodes := tree.Nodes()
	for i := range nodes {
		node := &nodes[i]

		var score float64
		if !uniform {
			score = math.Abs(node.Stats.Mean-g.Mean) / g.StdDev
		}
		node.Score = score
		node.IsAnomaly = score > s.Threshold

		if !node.IsLeaf() {
			continue
		}
		stats.LeavesScored++
		totalScore += score
		stats.MinScore = math.Min(stats.MinScore, score)
		stats.MaxScore = math.Max(stats.MaxScore, score)
		if node.IsAnomaly {
			stats.AnomalousLeaves++
		}
	}

	if stats.LeavesScored > 0 {
		stats.MeanScore = totalScore / float64(stats.LeavesScored)
	} else {
		stats.MinScore = 0
	}
	stats.ElapsedMs = float64(time.Since(start).Microseconds()) / 1000.0
	return stats, nil
}

package analytics

import (
	"math"
	"testing"

	"github.com/banshee-data/gridsight/internal/raster"
)

func TestScorerDefaultThreshold(t *testing.T) {
	s := NewScorer(nil, 0)
	if s.Threshold != DefaultAnomalyThreshold {
		t.Errorf("Threshold = %v, want %v", s.Threshold, DefaultAnomalyThreshold)
	}
	s = NewScorer(nil, -1)
	if s.Threshold != DefaultAnomalyThreshold {
		t.Errorf("Threshold = %v, want %v", s.Threshold, DefaultAnomalyThreshold)
	}
}

func TestRunRequiresBuiltInputs(t *testing.T) {
	if _, err := NewScorer(&StatsIndex{}, 2.0).Run(&RegionTree{}); err != ErrNotBuilt {
		t.Errorf("Run(unbuilt) error = %v, want ErrNotBuilt", err)
	}

	img := uniformRaster(t, 32, 128)
	index, _ := BuildStatsIndex(img)
	if _, err := NewScorer(index, 2.0).Run(nil); err != ErrNotBuilt {
		t.Errorf("Run(nil tree) error = %v, want ErrNotBuilt", err)
	}
}

func TestUniformRasterScoresZero(t *testing.T) {
	// Zero global deviation defines every score as 0, never NaN.
	img := uniformRaster(t, 64, 128)
	index, _ := BuildStatsIndex(img)
	tree, _ := BuildRegionTree(index, 16)

	stats, err := NewScorer(index, 2.0).Run(tree)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats.AnomalousLeaves != 0 {
		t.Errorf("AnomalousLeaves = %d, want 0", stats.AnomalousLeaves)
	}
	if stats.MaxScore != 0 || stats.MinScore != 0 || stats.MeanScore != 0 {
		t.Errorf("uniform scores = %+v, want all zero", stats)
	}
	for _, node := range tree.Nodes() {
		if math.IsNaN(node.Score) || node.Score != 0 {
			t.Fatalf("node %d score = %v, want 0", node.ID, node.Score)
		}
		if node.IsAnomaly {
			t.Fatalf("node %d flagged anomalous on uniform raster", node.ID)
		}
	}
}

func TestHotBlockFlagsExactLeaves(t *testing.T) {
	// Two 16x16 blocks at 255 aligned to the leaf grid on a 128 background.
	// The two hot leaves score |255-143.875|/42.0 = 2.65, the rest 0.38.
	img := uniformRaster(t, 64, 128)
	raster.FillBlock(img, 0, 0, 15, 31, 255)

	index, _ := BuildStatsIndex(img)
	tree, _ := BuildRegionTree(index, 16)
	stats, err := NewScorer(index, 2.0).Run(tree)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.LeavesScored != 16 {
		t.Errorf("LeavesScored = %d, want 16", stats.LeavesScored)
	}
	if stats.AnomalousLeaves != 2 {
		t.Errorf("AnomalousLeaves = %d, want 2", stats.AnomalousLeaves)
	}
	if math.Abs(stats.MaxScore-2.6457) > 0.01 {
		t.Errorf("MaxScore = %v, want ~2.6457", stats.MaxScore)
	}

	hotBlock := NewRegion(0, 0, 15, 31)
	tree.TraverseLeaves(func(node *RegionNode) {
		inHot := hotBlock.Intersects(node.Bounds)
		if node.IsAnomaly != inHot {
			t.Errorf("leaf %+v anomaly = %v, want %v", node.Bounds, node.IsAnomaly, inHot)
		}
	})
}

func TestCornerBlockOnZeros(t *testing.T) {
	// A 16x16 block at 255 in the corner of an all-zero 64x64 raster.
	// Global mean 15.9375, stddev 61.726; the hot leaf scores 3.873 and
	// every other leaf 0.258, so exactly one leaf crosses 2.0.
	img := uniformRaster(t, 64, 0)
	raster.FillBlock(img, 0, 0, 15, 15, 255)

	_, tree, engine := buildScored(t, img, 16, 2.0)

	if got := engine.CountAnomalies(); got != 1 {
		t.Errorf("CountAnomalies = %d, want 1", got)
	}
	if got := engine.TotalAnomalousArea(); got != 256 {
		t.Errorf("TotalAnomalousArea = %d, want 256", got)
	}

	want := NewRegion(0, 0, 15, 15)
	tree.TraverseLeaves(func(node *RegionNode) {
		if node.IsAnomaly {
			if node.Bounds != want {
				t.Errorf("anomalous leaf = %+v, want %+v", node.Bounds, want)
			}
			if math.Abs(node.Score-3.873) > 0.001 {
				t.Errorf("hot leaf score = %v, want ~3.873", node.Score)
			}
		} else if math.Abs(node.Score-0.258) > 0.001 {
			t.Errorf("background leaf %+v score = %v, want ~0.258", node.Bounds, node.Score)
		}
	})

	components := engine.FindComponents()
	if len(components) != 1 {
		t.Fatalf("got %d components, want 1", len(components))
	}
	if components[0].BoundingBox != want || components[0].TotalArea != 256 {
		t.Errorf("component = %+v, want bbox %+v area 256", components[0], want)
	}
}

func TestScoreRegionMatchesNodeScores(t *testing.T) {
	img, err := raster.GenerateSynthetic(64, 4, 99)
	if err != nil {
		t.Fatalf("failed to generate raster: %v", err)
	}
	index, _ := BuildStatsIndex(img)
	tree, _ := BuildRegionTree(index, 16)

	scorer := NewScorer(index, 2.0)
	if _, err := scorer.Run(tree); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Ad-hoc region scoring must agree with the batch pass.
	for _, node := range tree.Nodes() {
		got := scorer.ScoreRegion(node.Bounds)
		if math.Abs(got-node.Score) > 1e-9 {
			t.Fatalf("ScoreRegion(%+v) = %v, node score = %v", node.Bounds, got, node.Score)
		}
	}
}

func TestScoreRegionUnbuilt(t *testing.T) {
	if got := NewScorer(&StatsIndex{}, 2.0).ScoreRegion(NewRegion(0, 0, 3, 3)); got != 0 {
		t.Errorf("ScoreRegion on unbuilt index = %v, want 0", got)
	}
}

func TestInternalNodesScoredToo(t *testing.T) {
	img := uniformRaster(t, 64, 128)
	raster.FillBlock(img, 0, 0, 15, 15, 255)

	index, _ := BuildStatsIndex(img)
	tree, _ := BuildRegionTree(index, 16)
	if _, err := NewScorer(index, 2.0).Run(tree); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The NW internal node contains the hot block so its mean deviates;
	// its score must be positive but below the hot leaf's.
	root := tree.Root()
	nw := tree.Node(root.Children[QuadNW])
	hot := tree.Node(nw.Children[QuadNW])
	if nw.Score <= 0 {
		t.Errorf("NW internal score = %v, want > 0", nw.Score)
	}
	if nw.Score >= hot.Score {
		t.Errorf("NW internal score %v should be below hot leaf score %v", nw.Score, hot.Score)
	}
}

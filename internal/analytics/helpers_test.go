package analytics

import (
	"testing"

	"github.com/banshee-data/gridsight/internal/raster"
)

// uniformRaster builds a size x size raster with every pixel set to v.
func uniformRaster(t *testing.T, size int, v uint8) *raster.Raster {
	t.Helper()
	img, err := raster.New(size, size)
	if err != nil {
		t.Fatalf("failed to create raster: %v", err)
	}
	raster.FillUniform(img, v)
	return img
}

// buildScored runs the full index/tree/score pipeline over img and returns a
// query engine on top. Fails the test on any stage error.
func buildScored(t *testing.T, img *raster.Raster, minSize int, threshold float64) (*StatsIndex, *RegionTree, *Engine) {
	t.Helper()
	index, err := BuildStatsIndex(img)
	if err != nil {
		t.Fatalf("failed to build stats index: %v", err)
	}
	tree, err := BuildRegionTree(index, minSize)
	if err != nil {
		t.Fatalf("failed to build region tree: %v", err)
	}
	if _, err := NewScorer(index, threshold).Run(tree); err != nil {
		t.Fatalf("failed to score tree: %v", err)
	}
	return index, tree, NewEngine(tree, index)
}

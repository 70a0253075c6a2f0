package analytics

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/gridsight/internal/raster"
)

func TestFindComponentsAdjacentBlocks(t *testing.T) {
	// Two side-by-side hot tiles merge into one component.
	img := uniformRaster(t, 64, 128)
	raster.FillBlock(img, 0, 0, 15, 31, 255)
	_, _, engine := buildScored(t, img, 16, 2.0)

	components := engine.FindComponents()
	if len(components) != 1 {
		t.Fatalf("got %d components, want 1", len(components))
	}

	c := components[0]
	if c.TotalArea != 512 {
		t.Errorf("TotalArea = %d, want 512", c.TotalArea)
	}
	if len(c.NodeIDs) != 2 {
		t.Errorf("got %d member leaves, want 2", len(c.NodeIDs))
	}
	if c.BoundingBox != NewRegion(0, 0, 15, 31) {
		t.Errorf("BoundingBox = %+v, want the merged hot block", c.BoundingBox)
	}
	if c.MaxScore <= 2.0 {
		t.Errorf("MaxScore = %v, want > threshold", c.MaxScore)
	}
	if c.AvgScore != c.MaxScore {
		// Both member leaves have identical stats, so identical scores.
		t.Errorf("AvgScore = %v, want %v", c.AvgScore, c.MaxScore)
	}
}

func TestFindComponentsDiagonalBlocksStaySeparate(t *testing.T) {
	// Corner contact is not adjacency, so diagonal tiles form two
	// components.
	img := uniformRaster(t, 64, 128)
	raster.FillBlock(img, 0, 0, 15, 15, 255)
	raster.FillBlock(img, 16, 16, 31, 31, 255)
	_, _, engine := buildScored(t, img, 16, 2.0)

	components := engine.FindComponents()
	if len(components) != 2 {
		t.Fatalf("got %d components, want 2", len(components))
	}
	for _, c := range components {
		if c.TotalArea != 256 {
			t.Errorf("component %d TotalArea = %d, want 256", c.ID, c.TotalArea)
		}
		if len(c.NodeIDs) != 1 {
			t.Errorf("component %d has %d leaves, want 1", c.ID, len(c.NodeIDs))
		}
	}
}

func TestFindComponentsNoAnomalies(t *testing.T) {
	img := uniformRaster(t, 64, 128)
	_, _, engine := buildScored(t, img, 16, 2.0)

	if got := engine.FindComponents(); got != nil {
		t.Errorf("got %d components on quiet raster, want none", len(got))
	}
	if got := engine.FindComponentsDFS(); got != nil {
		t.Errorf("DFS got %d components on quiet raster, want none", len(got))
	}
	if _, ok := engine.LargestComponent(); ok {
		t.Error("LargestComponent should report no components")
	}
}

func TestComponentsSortedByArea(t *testing.T) {
	// An L of three tiles plus an isolated tile: the larger component must
	// come first and IDs follow the sorted order.
	img := uniformRaster(t, 64, 128)
	raster.FillBlock(img, 0, 0, 15, 31, 255)
	raster.FillBlock(img, 16, 0, 31, 15, 255)
	raster.FillBlock(img, 48, 48, 63, 63, 255)
	// A quarter of the raster is hot, which inflates the global deviation;
	// hot leaves score ~1.73 so the threshold sits below that.
	_, _, engine := buildScored(t, img, 16, 1.5)

	components := engine.FindComponents()
	if len(components) != 2 {
		t.Fatalf("got %d components, want 2", len(components))
	}
	if components[0].TotalArea != 768 || components[1].TotalArea != 256 {
		t.Errorf("areas = %d, %d; want 768, 256",
			components[0].TotalArea, components[1].TotalArea)
	}
	for i, c := range components {
		if c.ID != i {
			t.Errorf("component at position %d has ID %d", i, c.ID)
		}
	}

	largest, ok := engine.LargestComponent()
	if !ok || largest.TotalArea != 768 {
		t.Errorf("LargestComponent = %+v, %v; want the 768-pixel component", largest, ok)
	}
}

func TestUnionFindAndDFSAgree(t *testing.T) {
	// Both discovery algorithms must produce the same partition on a
	// scattered synthetic scene.
	img, err := raster.GenerateSynthetic(128, 8, 42)
	if err != nil {
		t.Fatalf("failed to generate raster: %v", err)
	}
	_, _, engine := buildScored(t, img, 16, 1.5)

	ufComponents := engine.FindComponents()
	dfsComponents := engine.FindComponentsDFS()

	opts := []cmp.Option{
		cmpopts.SortSlices(func(a, b int) bool { return a < b }),
		cmpopts.EquateApprox(0, 1e-9),
	}
	if diff := cmp.Diff(ufComponents, dfsComponents, opts...); diff != "" {
		t.Errorf("union-find and DFS partitions differ (-uf +dfs):\n%s", diff)
	}
}

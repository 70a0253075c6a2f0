package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/raster"
)

func hotScene(t *testing.T) (*raster.Raster, *analytics.RegionTree, *analytics.Engine) {
	t.Helper()
	img, err := raster.New(64, 64)
	if err != nil {
		t.Fatalf("failed to create raster: %v", err)
	}
	raster.FillUniform(img, 128)
	raster.FillBlock(img, 0, 0, 15, 31, 255)

	index, err := analytics.BuildStatsIndex(img)
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	tree, err := analytics.BuildRegionTree(index, 16)
	if err != nil {
		t.Fatalf("failed to build tree: %v", err)
	}
	if _, err := analytics.NewScorer(index, 2.0).Run(tree); err != nil {
		t.Fatalf("failed to score tree: %v", err)
	}
	return img, tree, analytics.NewEngine(tree, index)
}

func TestPixelToChar(t *testing.T) {
	if got := pixelToChar(0); got != ' ' {
		t.Errorf("pixelToChar(0) = %q, want space", got)
	}
	if got := pixelToChar(255); got != '@' {
		t.Errorf("pixelToChar(255) = %q, want '@'", got)
	}
	if got := pixelToChar(300); got != '@' {
		t.Errorf("pixelToChar(300) = %q, want clamped '@'", got)
	}
}

func TestRenderASCII(t *testing.T) {
	img, _, _ := hotScene(t)
	var buf bytes.Buffer
	NewRenderer(64, 64).RenderASCII(&buf, img, 1)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	// Leading blank line plus 64 pixel rows.
	if len(lines) != 65 {
		t.Fatalf("got %d lines, want 65", len(lines))
	}
	if len(lines[1]) != 64 {
		t.Errorf("row width = %d, want 64", len(lines[1]))
	}
	// Hot block renders at full intensity, background lower.
	if lines[1][0] != '@' {
		t.Errorf("hot pixel = %q, want '@'", lines[1][0])
	}
	if lines[40][0] == '@' {
		t.Error("background pixel should not render at full intensity")
	}
}

func TestRenderASCIIEmptyRaster(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(80, 40).RenderASCII(&buf, &raster.Raster{}, 1)
	if buf.Len() != 0 {
		t.Errorf("empty raster produced output: %q", buf.String())
	}
}

func TestRenderAnomalyMap(t *testing.T) {
	img, tree, _ := hotScene(t)
	var buf bytes.Buffer
	NewRenderer(64, 64).RenderAnomalyMap(&buf, img, tree, 1)

	out := buf.String()
	if !strings.Contains(out, "X") {
		t.Error("anomaly map should mark hot leaves with X")
	}
	if !strings.Contains(out, "Legend") {
		t.Error("anomaly map should include a legend")
	}

	// The first row crosses the hot block (cols 0-31) then background.
	lines := strings.Split(out, "\n")
	if lines[1][0] != 'X' || lines[1][31] != 'X' {
		t.Errorf("hot columns not marked: %q", lines[1][:34])
	}
	if lines[1][32] == 'X' {
		t.Error("background column marked anomalous")
	}
}

func TestRenderComponents(t *testing.T) {
	img, _, engine := hotScene(t)
	components := engine.FindComponents()

	var buf bytes.Buffer
	NewRenderer(64, 64).RenderComponents(&buf, img, components, 1)

	out := buf.String()
	if !strings.Contains(out, "0") {
		t.Error("component map should mark component 0")
	}
	lines := strings.Split(out, "\n")
	if lines[1][0] != '0' {
		t.Errorf("hot region = %q, want '0'", lines[1][0])
	}
	if lines[40][40] != '.' {
		t.Errorf("quiet region = %q, want '.'", lines[40][40])
	}
}

func TestRenderTreeStructure(t *testing.T) {
	_, tree, _ := hotScene(t)
	var buf bytes.Buffer
	NewRenderer(80, 40).RenderTreeStructure(&buf, tree, 2)

	out := buf.String()
	if !strings.Contains(out, "Root: [0,0]-[63,63]") {
		t.Errorf("missing root line in %q", out)
	}
	if !strings.Contains(out, "Level 1: 4 nodes") {
		t.Errorf("missing level 1 in %q", out)
	}
	if !strings.Contains(out, "Level 2: 16 nodes") {
		t.Errorf("missing level 2 in %q", out)
	}
}

func TestAnomalyOverlay(t *testing.T) {
	img, tree, _ := hotScene(t)
	overlay := AnomalyOverlay(img, tree)

	// The source stays untouched.
	if img.At(0, 0) != 255 || img.At(40, 40) != 128 {
		t.Fatal("overlay mutated the source raster")
	}
	// Anomalous leaf borders saturate; quiet ground is unchanged.
	if overlay.At(0, 0) != 255 {
		t.Errorf("overlay border = %d, want 255", overlay.At(0, 0))
	}
	if overlay.At(40, 40) != 128 {
		t.Errorf("quiet pixel = %d, want 128", overlay.At(40, 40))
	}
}

func TestComponentOverlay(t *testing.T) {
	img, _, engine := hotScene(t)
	components := engine.FindComponents()
	if len(components) == 0 {
		t.Fatal("expected at least one component")
	}

	overlay := ComponentOverlay(img, components[0])
	bb := components[0].BoundingBox
	if overlay.At(bb.Row1, bb.Col1) != 255 {
		t.Errorf("border pixel = %d, want 255", overlay.At(bb.Row1, bb.Col1))
	}
	// Interior brightens by 80 over the already-saturated hot block.
	if got := overlay.At(bb.Row1+4, bb.Col1+4); got != 255 {
		t.Errorf("interior pixel = %d, want 255", got)
	}
}

func TestWriteAnomalySummary(t *testing.T) {
	var buf bytes.Buffer
	WriteAnomalySummary(&buf, []analytics.AnomalyRegion{
		{Region: analytics.NewRegion(0, 0, 15, 15), Score: 3.21, NodeID: 5},
	})
	out := buf.String()
	if !strings.Contains(out, "Rank") || !strings.Contains(out, "3.210") {
		t.Errorf("unexpected summary: %q", out)
	}
	if !strings.Contains(out, "[0,0]-[15,15]") {
		t.Errorf("missing region bounds in %q", out)
	}
}

func TestWriteComponentSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteComponentSummary(&buf, []analytics.ConnectedComponent{
		{ID: 0, NodeIDs: []int{1, 2}, TotalArea: 512, MaxScore: 2.8, AvgScore: 2.8},
	})
	out := buf.String()
	if !strings.Contains(out, "512") || !strings.Contains(out, "2.800") {
		t.Errorf("unexpected summary: %q", out)
	}
}

func TestWriteQueryResult(t *testing.T) {
	var buf bytes.Buffer
	WriteQueryResult(&buf, "top-5", analytics.QueryResult{
		Regions:      make([]analytics.AnomalyRegion, 5),
		NodesVisited: 21,
		NodesPruned:  3,
	})
	out := buf.String()
	for _, want := range []string{"top-5", "Results: 5", "Nodes visited: 21", "Nodes pruned: 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

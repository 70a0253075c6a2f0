// Package render produces ASCII views and raster overlays of analysis
// results for terminal inspection and PGM export.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/raster"
)

// asciiGradient maps normalised brightness to characters, darkest first.
const asciiGradient = " .:-=+*#%@"

// Renderer writes ASCII renditions of rasters and results, clipped to a
// fixed console size.
type Renderer struct {
	Cols int
	Rows int
}

// NewRenderer creates a renderer for the given console size. Non-positive
// values fall back to 80x40.
func NewRenderer(cols, rows int) *Renderer {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 40
	}
	return &Renderer{Cols: cols, Rows: rows}
}

func pixelToChar(v int) byte {
	idx := v * 9 / 255
	if idx < 0 {
		idx = 0
	}
	if idx > 9 {
		idx = 9
	}
	return asciiGradient[idx]
}

// blockAverage averages the scale x scale pixel block anchored at
// (r*scale, c*scale), clipped to the raster.
func blockAverage(img *raster.Raster, r, c, scale int) int {
	sum, count := 0, 0
	for dr := 0; dr < scale && r*scale+dr < img.Height; dr++ {
		for dc := 0; dc < scale && c*scale+dc < img.Width; dc++ {
			sum += int(img.At(r*scale+dr, c*scale+dc))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}

// RenderASCII writes the raster as ASCII art, downscaled by scale.
func (rd *Renderer) RenderASCII(w io.Writer, img *raster.Raster, scale int) {
	if img == nil || img.IsEmpty() {
		return
	}
	if scale < 1 {
		scale = 1
	}

	outRows := min(rd.Rows, img.Height/scale)
	outCols := min(rd.Cols, img.Width/scale)

	fmt.Fprintln(w)
	line := make([]byte, outCols+1)
	line[outCols] = '\n'
	for r := 0; r < outRows; r++ {
		for c := 0; c < outCols; c++ {
			line[c] = pixelToChar(blockAverage(img, r, c, scale))
		}
		w.Write(line)
	}
}

// RenderAnomalyMap writes the raster as ASCII with anomalous leaves marked X.
func (rd *Renderer) RenderAnomalyMap(w io.Writer, img *raster.Raster, tree *analytics.RegionTree, scale int) {
	if img == nil || img.IsEmpty() || tree == nil {
		return
	}
	if scale < 1 {
		scale = 1
	}

	mask := make([]bool, img.Height*img.Width)
	tree.TraverseLeaves(func(node *analytics.RegionNode) {
		if !node.IsAnomaly {
			return
		}
		for r := node.Bounds.Row1; r <= node.Bounds.Row2 && r < img.Height; r++ {
			for c := node.Bounds.Col1; c <= node.Bounds.Col2 && c < img.Width; c++ {
				mask[r*img.Width+c] = true
			}
		}
	})

	outRows := min(rd.Rows, img.Height/scale)
	outCols := min(rd.Cols, img.Width/scale)

	fmt.Fprintln(w)
	line := make([]byte, outCols+1)
	line[outCols] = '\n'
	for r := 0; r < outRows; r++ {
		for c := 0; c < outCols; c++ {
			anomalous := false
			for dr := 0; dr < scale && r*scale+dr < img.Height && !anomalous; dr++ {
				for dc := 0; dc < scale && c*scale+dc < img.Width; dc++ {
					if mask[(r*scale+dr)*img.Width+(c*scale+dc)] {
						anomalous = true
						break
					}
				}
			}
			if anomalous {
				line[c] = 'X'
			} else {
				line[c] = pixelToChar(blockAverage(img, r, c, scale))
			}
		}
		w.Write(line)
	}
	fmt.Fprintln(w, "\nLegend: 'X' = anomalous region")
}

// RenderComponents writes a component map: digits mark the bounding boxes of
// the first nine components, '.' everything else.
func (rd *Renderer) RenderComponents(w io.Writer, img *raster.Raster, components []analytics.ConnectedComponent, scale int) {
	if img == nil || img.IsEmpty() {
		return
	}
	if scale < 1 {
		scale = 1
	}

	compMap := make([]int, img.Height*img.Width)
	for i := range compMap {
		compMap[i] = -1
	}
	for i := 0; i < len(components) && i < 9; i++ {
		bb := components[i].BoundingBox
		for r := bb.Row1; r <= bb.Row2 && r < img.Height; r++ {
			for c := bb.Col1; c <= bb.Col2 && c < img.Width; c++ {
				if compMap[r*img.Width+c] == -1 {
					compMap[r*img.Width+c] = i
				}
			}
		}
	}

	outRows := min(rd.Rows, img.Height/scale)
	outCols := min(rd.Cols, img.Width/scale)

	fmt.Fprintln(w)
	line := make([]byte, outCols+1)
	line[outCols] = '\n'
	for r := 0; r < outRows; r++ {
		for c := 0; c < outCols; c++ {
			compID := -1
			for dr := 0; dr < scale && r*scale+dr < img.Height; dr++ {
				for dc := 0; dc < scale && c*scale+dc < img.Width; dc++ {
					if id := compMap[(r*scale+dr)*img.Width+(c*scale+dc)]; id >= 0 {
						compID = id
					}
				}
			}
			if compID >= 0 {
				line[c] = byte('0' + compID)
			} else {
				line[c] = '.'
			}
		}
		w.Write(line)
	}
	fmt.Fprintln(w, "\nLegend: digits = component IDs, '.' = normal regions")
}

// RenderTreeStructure writes per-level node counts down to maxDepth.
func (rd *Renderer) RenderTreeStructure(w io.Writer, tree *analytics.RegionTree, maxDepth int) {
	root := tree.Root()
	if root == nil {
		return
	}
	fmt.Fprintf(w, "\n--- Tree structure (first %d levels) ---\n", maxDepth)
	fmt.Fprintf(w, "Root: [%d,%d]-[%d,%d]\n",
		root.Bounds.Row1, root.Bounds.Col1, root.Bounds.Row2, root.Bounds.Col2)
	for d := 1; d <= maxDepth; d++ {
		fmt.Fprintf(w, "Level %d: %d nodes\n", d, len(tree.NodesAtDepth(d)))
	}
}

// AnomalyOverlay returns a copy of the raster with anomalous leaves
// brightened and outlined at full intensity.
func AnomalyOverlay(src *raster.Raster, tree *analytics.RegionTree) *raster.Raster {
	out := src.Clone()
	if out == nil || tree == nil {
		return out
	}

	tree.TraverseLeaves(func(node *analytics.RegionNode) {
		if !node.IsAnomaly {
			return
		}
		brighten(out, node.Bounds, 100)
		drawBorder(out, node.Bounds)
	})
	return out
}

// ComponentOverlay returns a copy of the raster with one component's
// bounding box brightened and given a two-pixel border.
func ComponentOverlay(src *raster.Raster, component analytics.ConnectedComponent) *raster.Raster {
	out := src.Clone()
	if out == nil {
		return out
	}

	bb := component.BoundingBox
	brighten(out, bb, 80)
	for i := 0; i < 2; i++ {
		inset := analytics.Region{
			Row1: bb.Row1 + i, Col1: bb.Col1 + i,
			Row2: bb.Row2 - i, Col2: bb.Col2 - i,
		}
		drawBorder(out, inset)
	}
	return out
}

func brighten(img *raster.Raster, r analytics.Region, amount int) {
	for row := r.Row1; row <= r.Row2; row++ {
		for col := r.Col1; col <= r.Col2; col++ {
			if row < 0 || row >= img.Height || col < 0 || col >= img.Width {
				continue
			}
			v := int(img.At(row, col)) + amount
			if v > 255 {
				v = 255
			}
			img.Set(row, col, uint8(v))
		}
	}
}

func drawBorder(img *raster.Raster, r analytics.Region) {
	setIfInside := func(row, col int) {
		if row >= 0 && row < img.Height && col >= 0 && col < img.Width {
			img.Set(row, col, 255)
		}
	}
	for row := r.Row1; row <= r.Row2; row++ {
		setIfInside(row, r.Col1)
		setIfInside(row, r.Col2)
	}
	for col := r.Col1; col <= r.Col2; col++ {
		setIfInside(r.Row1, col)
		setIfInside(r.Row2, col)
	}
}

// WriteAnomalySummary writes a ranked table of anomalous regions.
func WriteAnomalySummary(w io.Writer, regions []analytics.AnomalyRegion) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tRegion\tScore\tArea")
	for i, r := range regions {
		fmt.Fprintf(tw, "%d\t[%d,%d]-[%d,%d]\t%.3f\t%d\n",
			i+1, r.Region.Row1, r.Region.Col1, r.Region.Row2, r.Region.Col2,
			r.Score, r.Region.Area())
	}
	tw.Flush()
}

// WriteComponentSummary writes a table of connected components.
func WriteComponentSummary(w io.Writer, components []analytics.ConnectedComponent) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRegions\tTotal Area\tMax Score\tAvg Score")
	for _, c := range components {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.3f\t%.3f\n",
			c.ID, len(c.NodeIDs), c.TotalArea, c.MaxScore, c.AvgScore)
	}
	tw.Flush()
}

// WriteQueryResult writes a short summary of one query's telemetry.
func WriteQueryResult(w io.Writer, name string, result analytics.QueryResult) {
	fmt.Fprintf(w, "\nQuery: %s\n", name)
	fmt.Fprintf(w, "  Results: %d\n", len(result.Regions))
	fmt.Fprintf(w, "  Nodes visited: %d\n", result.NodesVisited)
	if result.NodesPruned > 0 {
		fmt.Fprintf(w, "  Nodes pruned: %d\n", result.NodesPruned)
	}
	fmt.Fprintf(w, "  Time: %.3fms\n", result.ElapsedMs)
}

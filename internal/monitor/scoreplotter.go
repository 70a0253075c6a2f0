package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/security"
)

// ScorePlotter writes PNG charts of a scored tree: a histogram of leaf
// scores and a per-depth mean score line. Output goes to a timestamped
// directory so repeated runs don't clobber each other.
type ScorePlotter struct {
	outputDir string
}

// NewScorePlotter creates a plotter writing into outputDir.
func NewScorePlotter(outputDir string) (*ScorePlotter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ScorePlotter{outputDir: outputDir}, nil
}

// OutputDir returns the directory plots are written to.
func (sp *ScorePlotter) OutputDir() string { return sp.outputDir }

// GeneratePlots writes all charts for the tree. Returns the number of plot
// files written.
func (sp *ScorePlotter) GeneratePlots(tree *analytics.RegionTree, threshold float64) (int, error) {
	if tree == nil || tree.NodeCount() == 0 {
		return 0, nil
	}

	count := 0
	if err := sp.plotScoreHistogram(tree, threshold); err != nil {
		return count, fmt.Errorf("score histogram: %w", err)
	}
	count++
	if err := sp.plotDepthProfile(tree); err != nil {
		return count, fmt.Errorf("depth profile: %w", err)
	}
	count++
	return count, nil
}

// plotScoreHistogram writes a histogram of leaf scores with the anomaly
// threshold marked as a vertical line.
func (sp *ScorePlotter) plotScoreHistogram(tree *analytics.RegionTree, threshold float64) error {
	var scores plotter.Values
	tree.TraverseLeaves(func(node *analytics.RegionNode) {
		scores = append(scores, node.Score)
	})
	if len(scores) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Leaf Deviation Scores"
	p.X.Label.Text = "Score (global std devs)"
	p.Y.Label.Text = "Leaves"

	hist, err := plotter.NewHist(scores, 40)
	if err != nil {
		return err
	}
	p.Add(hist)

	maxScore := scores[0]
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if threshold <= maxScore {
		cutoff := plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: hist.Bins[maxBin(hist)].Weight}}
		line, err := plotter.NewLine(cutoff)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1.5)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(line)
		p.Legend.Add("threshold", line)
		p.Legend.Top = true
	}

	file := filepath.Join(sp.outputDir, "score_histogram.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save histogram: %w", err)
	}
	return nil
}

// plotDepthProfile writes mean and max score per tree depth.
func (sp *ScorePlotter) plotDepthProfile(tree *analytics.RegionTree) error {
	type depthAgg struct {
		sum   float64
		max   float64
		count int
	}
	aggs := make([]depthAgg, tree.MaxDepth()+1)
	for _, node := range tree.Nodes() {
		a := &aggs[node.Depth]
		a.sum += node.Score
		a.count++
		if node.Score > a.max {
			a.max = node.Score
		}
	}

	meanPts := make(plotter.XYs, 0, len(aggs))
	maxPts := make(plotter.XYs, 0, len(aggs))
	for d, a := range aggs {
		if a.count == 0 {
			continue
		}
		meanPts = append(meanPts, plotter.XY{X: float64(d), Y: a.sum / float64(a.count)})
		maxPts = append(maxPts, plotter.XY{X: float64(d), Y: a.max})
	}

	p := plot.New()
	p.Title.Text = "Score by Tree Depth"
	p.X.Label.Text = "Depth"
	p.Y.Label.Text = "Score"

	meanLine, err := plotter.NewLine(meanPts)
	if err != nil {
		return err
	}
	meanLine.Width = vg.Points(1)
	p.Add(meanLine)
	p.Legend.Add("mean", meanLine)

	maxLine, err := plotter.NewLine(maxPts)
	if err != nil {
		return err
	}
	maxLine.Width = vg.Points(1)
	maxLine.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(maxLine)
	p.Legend.Add("max", maxLine)
	p.Legend.Top = true

	file := filepath.Join(sp.outputDir, "score_by_depth.png")
	if err := p.Save(10*vg.Inch, 6*vg.Inch, file); err != nil {
		return fmt.Errorf("save depth profile: %w", err)
	}
	return nil
}

func maxBin(h *plotter.Histogram) int {
	best := 0
	for i, bin := range h.Bins {
		if bin.Weight > h.Bins[best].Weight {
			best = i
		}
	}
	return best
}

// MakePlotOutputDir creates a timestamped output directory for plots:
// plots/<source_basename>/<timestamp>. The source may be a URL or an
// arbitrary path, so it is sanitised before use in the directory name.
func MakePlotOutputDir(baseDir, source string) string {
	ts := time.Now().Format("20060102_150405")
	if source != "" {
		base := filepath.Base(source)
		ext := filepath.Ext(base)
		name := security.SanitizeFilename(base[:len(base)-len(ext)])
		return filepath.Join(baseDir, name, ts)
	}
	return filepath.Join(baseDir, "synthetic_"+ts)
}

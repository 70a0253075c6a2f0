package monitor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/httputil"
)

// handleScoreHeatmap renders a heatmap (HTML) of leaf deviation scores using
// go-echarts. This is a debugging-only endpoint to eyeball where the
// anomalies sit without a frontend.
func (ws *WebServer) handleScoreHeatmap(w http.ResponseWriter, r *http.Request) {
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	// One heatmap cell per leaf, positioned by leaf center in min-region
	// units so the grid stays dense at mixed leaf sizes.
	minSize := s.Tree.MinRegionSize()
	var data []opts.HeatMapData
	maxScore := 0.0
	maxX, maxY := 0, 0
	s.Tree.TraverseLeaves(func(node *analytics.RegionNode) {
		x := (node.Bounds.Col1 + node.Bounds.Col2) / 2 / minSize
		y := (node.Bounds.Row1 + node.Bounds.Row2) / 2 / minSize
		if x > maxX {
			maxX = x
		}
		if y > maxY {
			maxY = y
		}
		if node.Score > maxScore {
			maxScore = node.Score
		}
		data = append(data, opts.HeatMapData{Value: [3]any{x, y, node.Score}})
	})
	if maxScore == 0 {
		maxScore = 1
	}

	xAxis := make([]int, maxX+1)
	yAxis := make([]int, maxY+1)
	for i := range xAxis {
		xAxis[i] = i
	}
	for i := range yAxis {
		yAxis[i] = i
	}

	heatmap := charts.NewHeatMap()
	heatmap.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Leaf Deviation Scores", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Leaf Deviation Scores", Subtitle: fmt.Sprintf("source=%s leaves=%d", s.Source, len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "col block"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "row block", Data: yAxis}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxScore),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#31688e", "#35b779", "#fde725"}},
		}),
	)
	heatmap.SetXAxis(xAxis)
	heatmap.AddSeries("score", data)

	renderChart(w, heatmap)
}

// handleComponentChart renders a scatter (HTML) of connected component
// centers sized by total area.
func (ws *WebServer) handleComponentChart(w http.ResponseWriter, r *http.Request) {
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	components := s.Engine.FindComponents()
	data := make([]opts.ScatterData, 0, len(components))
	for _, c := range components {
		bb := c.BoundingBox
		cx := float64(bb.Col1+bb.Col2) / 2
		cy := float64(bb.Row1+bb.Row2) / 2
		data = append(data, opts.ScatterData{
			Name:       fmt.Sprintf("component %d", c.ID),
			Value:      []any{cx, cy, c.TotalArea, c.MaxScore},
			SymbolSize: 10,
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Connected Components", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "Connected Components", Subtitle: fmt.Sprintf("source=%s components=%d", s.Source, len(components))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "col", Min: 0, Max: s.Index.Width()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "row", Min: 0, Max: s.Index.Height()}),
	)
	scatter.AddSeries("components", data)

	renderChart(w, scatter)
}

type chartRenderer interface {
	Render(w io.Writer) error
}

func renderChart(w http.ResponseWriter, chart chartRenderer) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

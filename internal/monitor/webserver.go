// Package monitor serves analysis results over HTTP: JSON endpoints for
// stats, anomalies and components, plus debug chart pages.
package monitor

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/httputil"
	"github.com/banshee-data/gridsight/internal/monitoring"
	"github.com/banshee-data/gridsight/internal/raster"
	"github.com/banshee-data/gridsight/internal/storage"
	"github.com/banshee-data/gridsight/internal/version"
)

// Session bundles the artefacts of one completed analysis for serving.
type Session struct {
	Source string
	Raster *raster.Raster
	Index  *analytics.StatsIndex
	Tree   *analytics.RegionTree
	Engine *analytics.Engine
	Scores analytics.ScoreStats
}

// WebServer handles the HTTP interface for inspecting analysis results.
type WebServer struct {
	address string
	server  *http.Server

	mu       sync.RWMutex
	session  *Session
	runStore *storage.RunStore
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address  string
	Session  *Session
	RunStore *storage.RunStore
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:  config.Address,
		session:  config.Session,
		runStore: config.RunStore,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// SetSession swaps the served session, e.g. after re-analysing.
func (ws *WebServer) SetSession(s *Session) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.session = s
}

func (ws *WebServer) currentSession() *Session {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.session
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/tree", ws.handleTree)
	mux.HandleFunc("/api/anomalies", ws.handleAnomalies)
	mux.HandleFunc("/api/components", ws.handleComponents)
	mux.HandleFunc("/api/rect", ws.handleRect)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/debug/heatmap", ws.handleScoreHeatmap)
	mux.HandleFunc("/debug/components", ws.handleComponentChart)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handleStats returns global raster statistics, tree shape and score
// aggregates for the current session.
func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	resp := map[string]any{
		"source":       s.Source,
		"height":       s.Index.Height(),
		"width":        s.Index.Width(),
		"global":       s.Index.GlobalStats(),
		"node_count":   s.Tree.NodeCount(),
		"leaf_count":   s.Tree.LeafCount(),
		"max_depth":    s.Tree.MaxDepth(),
		"min_region":   s.Tree.MinRegionSize(),
		"build_ms":     s.Tree.BuildMillis(),
		"scores":       s.Scores,
		"distribution": scoreDistribution(s.Tree),
	}
	httputil.WriteJSONOK(w, resp)
}

// handleTree returns the shape of the region tree: per-depth node counts and
// overall totals.
func (ws *WebServer) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	depthCounts := make([]int, s.Tree.MaxDepth()+1)
	for _, node := range s.Tree.Nodes() {
		depthCounts[node.Depth]++
	}
	httputil.WriteJSONOK(w, map[string]any{
		"node_count":   s.Tree.NodeCount(),
		"leaf_count":   s.Tree.LeafCount(),
		"max_depth":    s.Tree.MaxDepth(),
		"min_region":   s.Tree.MinRegionSize(),
		"depth_counts": depthCounts,
	})
}

// handleAnomalies returns the top-K anomalies. Query params:
//   - k (default 10)
//   - pruned=true to use the pruned traversal
//   - leaf_only=false to rank internal nodes too
func (ws *WebServer) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	k := 10
	if kq := r.URL.Query().Get("k"); kq != "" {
		v, err := strconv.Atoi(kq)
		if err != nil || v <= 0 {
			httputil.BadRequest(w, "k must be a positive integer")
			return
		}
		k = v
	}

	leafOnly := true
	if lo := r.URL.Query().Get("leaf_only"); lo != "" {
		leafOnly = lo != "false"
	}

	var result analytics.QueryResult
	if r.URL.Query().Get("pruned") == "true" {
		result = s.Engine.TopKWithPruning(k)
	} else {
		result = s.Engine.TopKAnomalies(k, leafOnly)
	}
	httputil.WriteJSONOK(w, result)
}

// handleComponents returns connected components of anomalous leaves.
// algo=dfs selects the DFS implementation; the default is union-find.
func (ws *WebServer) handleComponents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	var components []analytics.ConnectedComponent
	if r.URL.Query().Get("algo") == "dfs" {
		components = s.Engine.FindComponentsDFS()
	} else {
		components = s.Engine.FindComponents()
	}
	httputil.WriteJSONOK(w, map[string]any{
		"count":      len(components),
		"components": components,
	})
}

// handleRect returns anomalies intersecting a rectangle plus its raw
// statistics. Query params: row1, col1, row2, col2.
func (ws *WebServer) handleRect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	s := ws.currentSession()
	if s == nil {
		httputil.NotFound(w, "no analysis session loaded")
		return
	}

	rect, ok := parseRect(r)
	if !ok {
		httputil.BadRequest(w, "row1, col1, row2, col2 must be integers with row1<=row2 and col1<=col2")
		return
	}

	result := s.Engine.QueryRectangle(rect)
	httputil.WriteJSONOK(w, map[string]any{
		"rect":    rect,
		"stats":   s.Engine.QueryRegionStats(rect),
		"matches": result,
	})
}

// handleRuns lists persisted runs, or one run with its anomalies and
// components when run_id is given.
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if ws.runStore == nil {
		httputil.NotFound(w, "run persistence not configured")
		return
	}

	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := ws.runStore.GetRun(runID)
		if err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		anomalies, err := ws.runStore.GetAnomalies(runID)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		components, err := ws.runStore.GetComponents(runID)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]any{
			"run":        run,
			"anomalies":  anomalies,
			"components": components,
		})
		return
	}

	limit := 50
	if lq := r.URL.Query().Get("limit"); lq != "" {
		if v, err := strconv.Atoi(lq); err == nil && v > 0 {
			limit = v
		}
	}
	runs, err := ws.runStore.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]any{"runs": runs})
}

func parseRect(r *http.Request) (analytics.Region, bool) {
	q := r.URL.Query()
	vals := make([]int, 4)
	for i, name := range []string{"row1", "col1", "row2", "col2"} {
		v, err := strconv.Atoi(q.Get(name))
		if err != nil {
			return analytics.Region{}, false
		}
		vals[i] = v
	}
	rect := analytics.Region{Row1: vals[0], Col1: vals[1], Row2: vals[2], Col2: vals[3]}
	if !rect.IsValid() {
		return analytics.Region{}, false
	}
	return rect, true
}

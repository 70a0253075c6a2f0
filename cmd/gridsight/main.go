// Command gridsight analyses a grayscale raster for statistically anomalous
// regions: it builds a prefix-sum index and quadrant tree, scores regions
// against the global distribution, then reports top-K anomalies and
// connected components. Results can be rendered, plotted, persisted to
// sqlite and served over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/config"
	"github.com/banshee-data/gridsight/internal/db"
	"github.com/banshee-data/gridsight/internal/monitor"
	"github.com/banshee-data/gridsight/internal/monitoring"
	"github.com/banshee-data/gridsight/internal/raster"
	"github.com/banshee-data/gridsight/internal/render"
	"github.com/banshee-data/gridsight/internal/security"
	"github.com/banshee-data/gridsight/internal/storage"
	"github.com/banshee-data/gridsight/internal/version"
)

var (
	inputFile  = flag.String("input", "", "Input PGM image (P2 or P5); synthetic scene if empty")
	fetchURL   = flag.String("fetch-url", "", "Fetch the input PGM from a URL instead of disk")
	configFile = flag.String("config", "", "Tuning config JSON (partial overrides allowed)")

	minRegion = flag.Int("min-region", 0, "Minimum leaf region size (overrides config)")
	threshold = flag.Float64("threshold", 0, "Anomaly threshold in global std devs (overrides config)")
	topK      = flag.Int("top-k", 0, "Number of top anomalies to report (overrides config)")

	synthSize      = flag.Int("size", 0, "Synthetic scene size (overrides config)")
	synthAnomalies = flag.Int("anomalies", -1, "Synthetic anomaly count (overrides config)")
	synthSeed      = flag.Int64("seed", 0, "Synthetic scene seed (overrides config)")

	quiet = flag.Bool("quiet", false, "Suppress diagnostic logging")

	verify     = flag.Bool("verify", false, "Cross-check the prefix index against brute force on a sample")
	ascii      = flag.Bool("ascii", false, "Render ASCII maps of the raster and anomalies")
	overlayOut = flag.String("overlay", "", "Write an anomaly overlay PGM to this path")
	plotsDir   = flag.String("plots", "", "Write score plots (PNG) under this directory")

	dbPath  = flag.String("db", "gridsight.db", "Path to the sqlite database")
	persist = flag.Bool("persist", false, "Persist the run and its results to the database")
	listen  = flag.String("listen", "", "Serve results over HTTP on this address (e.g. :8080)")

	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("gridsight %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *quiet {
		log.SetOutput(io.Discard)
		monitoring.SetLogger(nil)
	}

	// Subcommands bypass the analysis pipeline.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbPath)
		return
	}

	cfg := loadConfig()

	img, source := loadRaster(cfg)
	log.Printf("[Pipeline] Loaded %s raster %dx%d", source, img.Height, img.Width)

	index, err := analytics.BuildStatsIndex(img)
	if err != nil {
		log.Fatalf("failed to build stats index: %v", err)
	}
	g := index.GlobalStats()
	log.Printf("[Pipeline] Global stats: mean=%.3f stddev=%.3f pixels=%d", g.Mean, g.StdDev, g.Pixels)

	if *verify {
		full := analytics.Region{Row1: 0, Col1: 0, Row2: img.Height - 1, Col2: img.Width - 1}
		if !index.Verify(img, full) {
			log.Fatalf("prefix index verification failed")
		}
		log.Printf("[Pipeline] Prefix index verified against brute force")
	}

	minSize := cfg.GetMinRegionSize()
	if *minRegion > 0 {
		minSize = *minRegion
	}
	tree, err := analytics.BuildRegionTree(index, minSize)
	if err != nil {
		log.Fatalf("failed to build region tree: %v", err)
	}
	log.Printf("[Pipeline] Region tree: %d nodes, %d leaves, depth %d (%.2fms)",
		tree.NodeCount(), tree.LeafCount(), tree.MaxDepth(), tree.BuildMillis())

	thresh := cfg.GetAnomalyThreshold()
	if *threshold > 0 {
		thresh = *threshold
	}
	scorer := analytics.NewScorer(index, thresh)
	scores, err := scorer.Run(tree)
	if err != nil {
		log.Fatalf("failed to score tree: %v", err)
	}
	log.Printf("[Pipeline] Scored %d leaves: %d anomalous, max score %.3f (%.2fms)",
		scores.LeavesScored, scores.AnomalousLeaves, scores.MaxScore, scores.ElapsedMs)

	engine := analytics.NewEngine(tree, index)

	k := cfg.GetTopK()
	if *topK > 0 {
		k = *topK
	}

	heapResult := engine.TopKAnomalies(k, true)
	render.WriteQueryResult(os.Stdout, fmt.Sprintf("top-%d (full scan)", k), heapResult)
	render.WriteAnomalySummary(os.Stdout, heapResult.Regions)

	prunedResult := engine.TopKWithPruning(k)
	render.WriteQueryResult(os.Stdout, fmt.Sprintf("top-%d (pruned)", k), prunedResult)

	components := engine.FindComponents()
	log.Printf("[Pipeline] Connected components: %d", len(components))
	render.WriteComponentSummary(os.Stdout, components)

	// Cross-check the union-find partition against the DFS implementation.
	if dfs := engine.FindComponentsDFS(); len(dfs) != len(components) {
		log.Printf("[Pipeline] WARNING: component count mismatch (union-find=%d dfs=%d)",
			len(components), len(dfs))
	}

	if *ascii {
		renderer := render.NewRenderer(80, 40)
		scale := img.Width / 80
		if scale < 1 {
			scale = 1
		}
		renderer.RenderASCII(os.Stdout, img, scale)
		renderer.RenderAnomalyMap(os.Stdout, img, tree, scale)
		renderer.RenderComponents(os.Stdout, img, components, scale)
		renderer.RenderTreeStructure(os.Stdout, tree, 3)
	}

	if *overlayOut != "" {
		if err := security.ValidateExportPath(*overlayOut); err != nil {
			log.Fatalf("invalid overlay path: %v", err)
		}
		overlay := render.AnomalyOverlay(img, tree)
		if err := raster.SavePGM(overlay, *overlayOut); err != nil {
			log.Fatalf("failed to save overlay: %v", err)
		}
		log.Printf("[Pipeline] Wrote anomaly overlay to %s", *overlayOut)
	}

	if *plotsDir != "" {
		outDir := monitor.MakePlotOutputDir(*plotsDir, *inputFile)
		plotter, err := monitor.NewScorePlotter(outDir)
		if err != nil {
			log.Fatalf("failed to create plotter: %v", err)
		}
		n, err := plotter.GeneratePlots(tree, thresh)
		if err != nil {
			log.Fatalf("failed to generate plots: %v", err)
		}
		log.Printf("[Pipeline] Wrote %d plots to %s", n, outDir)
	}

	var runStore *storage.RunStore
	if *persist || *listen != "" {
		database := openDatabase()
		defer database.Close()
		runStore = storage.NewRunStore(database.DB)
	}

	if *persist {
		run := &storage.AnalysisRun{
			Source:        source,
			Height:        img.Height,
			Width:         img.Width,
			GlobalMean:    g.Mean,
			GlobalStdDev:  g.StdDev,
			MinRegionSize: minSize,
			Threshold:     thresh,
			NodeCount:     tree.NodeCount(),
			LeafCount:     tree.LeafCount(),
			AnomalyCount:  scores.AnomalousLeaves,
			AnomalousArea: engine.TotalAnomalousArea(),
			BuildMs:       tree.BuildMillis(),
		}
		if err := runStore.InsertRun(run); err != nil {
			log.Fatalf("failed to persist run: %v", err)
		}
		if err := runStore.InsertAnomalies(run.RunID, heapResult.Regions); err != nil {
			log.Fatalf("failed to persist anomalies: %v", err)
		}
		if err := runStore.InsertComponents(run.RunID, components); err != nil {
			log.Fatalf("failed to persist components: %v", err)
		}
		log.Printf("[Pipeline] Persisted run %s", run.RunID)
	}

	if *listen != "" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ws := monitor.NewWebServer(monitor.WebServerConfig{
			Address: *listen,
			Session: &monitor.Session{
				Source: source,
				Raster: img,
				Index:  index,
				Tree:   tree,
				Engine: engine,
				Scores: scores,
			},
			RunStore: runStore,
		})
		if err := ws.Start(ctx); err != nil {
			log.Fatalf("web server error: %v", err)
		}
	}
}

// loadConfig loads the tuning file if given, otherwise returns an empty
// config whose accessors supply defaults.
func loadConfig() *config.TuningConfig {
	if *configFile == "" {
		return config.EmptyTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// loadRaster resolves the input raster from a URL, a file, or the synthetic
// generator, and enforces the configured dimension cap.
func loadRaster(cfg *config.TuningConfig) (*raster.Raster, string) {
	var img *raster.Raster
	var source string
	var err error

	switch {
	case *fetchURL != "":
		img, err = raster.Fetch(nil, *fetchURL)
		source = *fetchURL
	case *inputFile != "":
		img, err = raster.LoadPGM(*inputFile)
		source = *inputFile
	default:
		size := cfg.GetSyntheticSize()
		if *synthSize > 0 {
			size = *synthSize
		}
		anomalies := cfg.GetSyntheticAnomalies()
		if *synthAnomalies >= 0 {
			anomalies = *synthAnomalies
		}
		seed := cfg.GetSyntheticSeed()
		if *synthSeed != 0 {
			seed = *synthSeed
		}
		img, err = raster.GenerateSynthetic(size, anomalies, seed)
		source = "synthetic"
	}
	if err != nil {
		log.Fatalf("failed to load raster: %v", err)
	}

	if maxDim := cfg.GetMaxImageDim(); img.Height > maxDim || img.Width > maxDim {
		log.Fatalf("raster %dx%d exceeds max dimension %d", img.Height, img.Width, maxDim)
	}
	return img, source
}

// openDatabase opens the sqlite database and refuses to run on an outdated
// schema.
func openDatabase() *db.DB {
	database, err := db.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	migrationsFS, err := db.MigrationsFS()
	if err != nil {
		log.Fatalf("failed to load migrations: %v", err)
	}
	version, _, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("failed to read schema version: %v", err)
	}
	if version == 0 {
		// Fresh database: apply the schema directly.
		if err := database.MigrateUp(migrationsFS); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	} else if err := database.CheckMigrations(migrationsFS); err != nil {
		log.Fatalf("%v", err)
	}
	return database
}

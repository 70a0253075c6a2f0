// Package storage persists completed analysis runs and their results.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/gridsight/internal/analytics"
	"github.com/banshee-data/gridsight/internal/timeutil"
)

// AnalysisRun records one completed analysis over a raster: the input shape,
// the parameters used, and summary counts. Detailed results hang off it as
// RunAnomaly and RunComponent rows.
type AnalysisRun struct {
	RunID         string    `json:"run_id"`
	Source        string    `json:"source"`
	Height        int       `json:"height"`
	Width         int       `json:"width"`
	GlobalMean    float64   `json:"global_mean"`
	GlobalStdDev  float64   `json:"global_std_dev"`
	MinRegionSize int       `json:"min_region_size"`
	Threshold     float64   `json:"threshold"`
	NodeCount     int       `json:"node_count"`
	LeafCount     int       `json:"leaf_count"`
	AnomalyCount  int       `json:"anomaly_count"`
	AnomalousArea int64     `json:"anomalous_area"`
	BuildMs       float64   `json:"build_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunAnomaly is one persisted top-K anomaly of a run, ranked from 1.
type RunAnomaly struct {
	RunID  string           `json:"run_id"`
	NodeID int              `json:"node_id"`
	Rank   int              `json:"rank"`
	Bounds analytics.Region `json:"bounds"`
	Score  float64          `json:"score"`
}

// RunComponent is one persisted connected component of a run.
type RunComponent struct {
	RunID       string           `json:"run_id"`
	ComponentID int              `json:"component_id"`
	LeafCount   int              `json:"leaf_count"`
	TotalArea   int64            `json:"total_area"`
	MaxScore    float64          `json:"max_score"`
	AvgScore    float64          `json:"avg_score"`
	BoundingBox analytics.Region `json:"bounding_box"`
}

// RunStore provides persistence for analysis runs.
type RunStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewRunStore creates a new RunStore using the real clock.
func NewRunStore(db *sql.DB) *RunStore {
	return NewRunStoreWithClock(db, timeutil.RealClock{})
}

// NewRunStoreWithClock creates a RunStore with an injected clock, for tests
// that need deterministic timestamps.
func NewRunStoreWithClock(db *sql.DB, clock timeutil.Clock) *RunStore {
	return &RunStore{db: db, clock: clock}
}

// InsertRun creates a new run row. If run.RunID is empty, a new UUID is
// generated and written back.
func (s *RunStore) InsertRun(run *AnalysisRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now().UTC()
	}

	query := `
		INSERT INTO analysis_runs (
			run_id, source, height, width, global_mean, global_std_dev,
			min_region_size, threshold, node_count, leaf_count,
			anomaly_count, anomalous_area, build_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID,
		run.Source,
		run.Height,
		run.Width,
		run.GlobalMean,
		run.GlobalStdDev,
		run.MinRegionSize,
		run.Threshold,
		run.NodeCount,
		run.LeafCount,
		run.AnomalyCount,
		run.AnomalousArea,
		run.BuildMs,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID string) (*AnalysisRun, error) {
	query := `
		SELECT run_id, source, height, width, global_mean, global_std_dev,
		       min_region_size, threshold, node_count, leaf_count,
		       anomaly_count, anomalous_area, build_ms, created_at
		FROM analysis_runs
		WHERE run_id = ?
	`

	var run AnalysisRun
	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.Source,
		&run.Height,
		&run.Width,
		&run.GlobalMean,
		&run.GlobalStdDev,
		&run.MinRegionSize,
		&run.Threshold,
		&run.NodeCount,
		&run.LeafCount,
		&run.AnomalyCount,
		&run.AnomalousArea,
		&run.BuildMs,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, source, height, width, global_mean, global_std_dev,
		       min_region_size, threshold, node_count, leaf_count,
		       anomaly_count, anomalous_area, build_ms, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*AnalysisRun
	for rows.Next() {
		var run AnalysisRun
		err := rows.Scan(
			&run.RunID,
			&run.Source,
			&run.Height,
			&run.Width,
			&run.GlobalMean,
			&run.GlobalStdDev,
			&run.MinRegionSize,
			&run.Threshold,
			&run.NodeCount,
			&run.LeafCount,
			&run.AnomalyCount,
			&run.AnomalousArea,
			&run.BuildMs,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run and its anomaly and component rows.
func (s *RunStore) DeleteRun(runID string) error {
	res, err := s.db.Exec(`DELETE FROM analysis_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// InsertAnomalies writes the ranked top-K anomalies of a run in one
// transaction. Rank starts at 1 in slice order.
func (s *RunStore) InsertAnomalies(runID string, regions []analytics.AnomalyRegion) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert anomalies: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO run_anomalies (run_id, node_id, rank, row1, col1, row2, col2, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert anomalies: %w", err)
	}
	defer stmt.Close()

	for i, ar := range regions {
		_, err := stmt.Exec(runID, ar.NodeID, i+1,
			ar.Region.Row1, ar.Region.Col1, ar.Region.Row2, ar.Region.Col2, ar.Score)
		if err != nil {
			return fmt.Errorf("insert anomaly rank %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert anomalies: %w", err)
	}
	return nil
}

// GetAnomalies returns the persisted anomalies of a run, ordered by rank.
func (s *RunStore) GetAnomalies(runID string) ([]RunAnomaly, error) {
	query := `
		SELECT run_id, node_id, rank, row1, col1, row2, col2, score
		FROM run_anomalies
		WHERE run_id = ?
		ORDER BY rank ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("get anomalies: %w", err)
	}
	defer rows.Close()

	var anomalies []RunAnomaly
	for rows.Next() {
		var a RunAnomaly
		err := rows.Scan(&a.RunID, &a.NodeID, &a.Rank,
			&a.Bounds.Row1, &a.Bounds.Col1, &a.Bounds.Row2, &a.Bounds.Col2, &a.Score)
		if err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate anomalies: %w", err)
	}

	return anomalies, nil
}

// InsertComponents writes the connected components of a run in one
// transaction.
func (s *RunStore) InsertComponents(runID string, components []analytics.ConnectedComponent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert components: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO run_components (run_id, component_id, leaf_count, total_area,
			max_score, avg_score, row1, col1, row2, col2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert components: %w", err)
	}
	defer stmt.Close()

	for _, c := range components {
		_, err := stmt.Exec(runID, c.ID, len(c.NodeIDs), c.TotalArea,
			c.MaxScore, c.AvgScore,
			c.BoundingBox.Row1, c.BoundingBox.Col1, c.BoundingBox.Row2, c.BoundingBox.Col2)
		if err != nil {
			return fmt.Errorf("insert component %d: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert components: %w", err)
	}
	return nil
}

// GetComponents returns the persisted components of a run, ordered by
// component ID.
func (s *RunStore) GetComponents(runID string) ([]RunComponent, error) {
	query := `
		SELECT run_id, component_id, leaf_count, total_area, max_score, avg_score,
		       row1, col1, row2, col2
		FROM run_components
		WHERE run_id = ?
		ORDER BY component_id ASC
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("get components: %w", err)
	}
	defer rows.Close()

	var components []RunComponent
	for rows.Next() {
		var c RunComponent
		err := rows.Scan(&c.RunID, &c.ComponentID, &c.LeafCount, &c.TotalArea,
			&c.MaxScore, &c.AvgScore,
			&c.BoundingBox.Row1, &c.BoundingBox.Col1, &c.BoundingBox.Row2, &c.BoundingBox.Col2)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		components = append(components, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}

	return components, nil
}

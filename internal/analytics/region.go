// Package analytics implements the raster analysis core: a summed-area
// statistics index, a quadrant-decomposition region tree, deviation-based
// anomaly scoring, and the query engine that selects and groups anomalous
// regions.
package analytics

import "errors"

// Sentinel errors returned by build/run steps when their preconditions are
// not met. Query operations never return errors; against unbuilt state they
// yield empty or zero results.
var (
	// ErrEmptyRaster is returned when an index build receives no pixels.
	ErrEmptyRaster = errors.New("analytics: empty raster")
	// ErrNotBuilt is returned when a stage runs before its inputs are built.
	ErrNotBuilt = errors.New("analytics: component not built")
)

// Region is an axis-aligned rectangle with inclusive bounds.
type Region struct {
	Row1 int `json:"row1"`
	Col1 int `json:"col1"`
	Row2 int `json:"row2"`
	Col2 int `json:"col2"`
}

// NewRegion constructs a region from inclusive corner coordinates.
func NewRegion(row1, col1, row2, col2 int) Region {
	return Region{Row1: row1, Col1: col1, Row2: row2, Col2: col2}
}

// Area returns the pixel count of the region. Computed in int64 so the
// maximum supported raster dimension cannot overflow.
func (r Region) Area() int64 {
	return int64(r.Row2-r.Row1+1) * int64(r.Col2-r.Col1+1)
}

// IsValid reports whether the bounds are non-inverted.
func (r Region) IsValid() bool {
	return r.Row1 <= r.Row2 && r.Col1 <= r.Col2
}

// Contains reports whether (row, col) lies inside the region.
func (r Region) Contains(row, col int) bool {
	return row >= r.Row1 && row <= r.Row2 && col >= r.Col1 && col <= r.Col2
}

// Intersects reports whether two regions overlap by at least one pixel.
func (r Region) Intersects(other Region) bool {
	return !(r.Row2 < other.Row1 || r.Row1 > other.Row2 ||
		r.Col2 < other.Col1 || r.Col1 > other.Col2)
}

// IsAdjacentTo reports whether two regions share a full edge segment:
// their boundaries touch along one axis while their extents overlap on the
// other. Overlapping regions and corner-only contact do not count.
func (r Region) IsAdjacentTo(other Region) bool {
	colOverlap := r.Col1 <= other.Col2 && other.Col1 <= r.Col2
	rowOverlap := r.Row1 <= other.Row2 && other.Row1 <= r.Row2

	// Share a vertical edge
	if rowOverlap && (r.Col2+1 == other.Col1 || other.Col2+1 == r.Col1) {
		return true
	}
	// Share a horizontal edge
	if colOverlap && (r.Row2+1 == other.Row1 || other.Row2+1 == r.Row1) {
		return true
	}
	return false
}

// MergeBounds returns the smallest region covering both inputs.
func MergeBounds(a, b Region) Region {
	return Region{
		Row1: min(a.Row1, b.Row1),
		Col1: min(a.Col1, b.Col1),
		Row2: max(a.Row2, b.Row2),
		Col2: max(a.Col2, b.Col2),
	}
}

// RegionStats holds the statistics of one region, derived from two
// summed-area queries.
type RegionStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Sum      int64   `json:"sum"`
	Area     int64   `json:"area"`
}

// AnomalyRegion is a query-result projection of a scored tree node.
type AnomalyRegion struct {
	Region Region  `json:"region"`
	Score  float64 `json:"score"`
	NodeID int     `json:"node_id"`
}

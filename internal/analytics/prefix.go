package analytics

import (
	"math"

	"github.com/banshee-data/gridsight/internal/raster"
)

// StatsIndex answers O(1) sum, mean and variance queries over any
// axis-aligned rectangle of a raster, after an O(n^2) build.
//
// Two cumulative tables are kept, one of pixel values and one of squared
// pixel values, each (height+1) x (width+1) with a zero border at index 0 so
// queries need no boundary checks. The square table makes variance an O(1)
// derivation via Var(X) = E[X^2] - E[X]^2.
type StatsIndex struct {
	height int
	width  int
	stride int
	sums   []int64 // (height+1) * (width+1), row-major
	sqSums []int64
	built  bool

	global GlobalStats
}

// GlobalStats holds whole-raster statistics computed once at build time.
type GlobalStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	TotalSum int64   `json:"total_sum"`
	Pixels   int64   `json:"pixels"`
}

// BuildStatsIndex constructs the summed-area tables for r.
// Building from an empty raster fails and leaves no usable index.
func BuildStatsIndex(r *raster.Raster) (*StatsIndex, error) {
	if r.IsEmpty() {
		return nil, ErrEmptyRaster
	}

	height, width := r.Height, r.Width
	stride := width + 1
	idx := &StatsIndex{
		height: height,
		width:  width,
		stride: stride,
		sums:   make([]int64, (height+1)*stride),
		sqSums: make([]int64, (height+1)*stride),
	}

	// Classic summed-area recurrence. The zero border at row 0 and column 0
	// absorbs the i-1/j-1 terms.
	for i := 1; i <= height; i++ {
		rowOff := i * stride
		prevOff := rowOff - stride
		for j := 1; j <= width; j++ {
			v := int64(r.Pixels[(i-1)*width+(j-1)])
			idx.sums[rowOff+j] = v +
				idx.sums[prevOff+j] +
				idx.sums[rowOff+j-1] -
				idx.sums[prevOff+j-1]
			idx.sqSums[rowOff+j] = v*v +
				idx.sqSums[prevOff+j] +
				idx.sqSums[rowOff+j-1] -
				idx.sqSums[prevOff+j-1]
		}
	}

	pixels := int64(height) * int64(width)
	totalSum := idx.sums[height*stride+width]
	mean := float64(totalSum) / float64(pixels)
	meanOfSquares := float64(idx.sqSums[height*stride+width]) / float64(pixels)
	variance := math.Max(0, meanOfSquares-mean*mean)

	idx.global = GlobalStats{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		TotalSum: totalSum,
		Pixels:   pixels,
	}
	idx.built = true
	return idx, nil
}

// IsBuilt reports whether the index holds usable tables.
func (s *StatsIndex) IsBuilt() bool { return s != nil && s.built }

// Height returns the indexed raster height.
func (s *StatsIndex) Height() int { return s.height }

// Width returns the indexed raster width.
func (s *StatsIndex) Width() int { return s.width }

// GlobalStats returns the whole-raster statistics computed at build time.
func (s *StatsIndex) GlobalStats() GlobalStats {
	if !s.IsBuilt() {
		return GlobalStats{}
	}
	return s.global
}

// clamp restricts region bounds to the raster extent and reports whether a
// non-empty rectangle remains.
func (s *StatsIndex) clamp(r Region) (Region, bool) {
	r.Row1 = max(r.Row1, 0)
	r.Col1 = max(r.Col1, 0)
	r.Row2 = min(r.Row2, s.height-1)
	r.Col2 = min(r.Col2, s.width-1)
	return r, r.Row1 <= r.Row2 && r.Col1 <= r.Col2
}

// QuerySum returns the sum of pixel values inside r, clamped to the raster.
// Degenerate regions yield 0.
func (s *StatsIndex) QuerySum(r Region) int64 {
	if !s.IsBuilt() {
		return 0
	}
	r, ok := s.clamp(r)
	if !ok {
		return 0
	}
	return s.cornerQuery(s.sums, r)
}

// QuerySumSquares returns the sum of squared pixel values inside r.
func (s *StatsIndex) QuerySumSquares(r Region) int64 {
	if !s.IsBuilt() {
		return 0
	}
	r, ok := s.clamp(r)
	if !ok {
		return 0
	}
	return s.cornerQuery(s.sqSums, r)
}

// cornerQuery applies four-point inclusion-exclusion on a cumulative table.
// Bounds must already be clamped.
func (s *StatsIndex) cornerQuery(table []int64, r Region) int64 {
	a := table[(r.Row2+1)*s.stride+(r.Col2+1)]
	b := table[r.Row1*s.stride+(r.Col2+1)]
	c := table[(r.Row2+1)*s.stride+r.Col1]
	d := table[r.Row1*s.stride+r.Col1]
	return a - b - c + d
}

// QueryStats composes sum and sum-of-squares queries into full region
// statistics. Unbuilt indexes and degenerate regions produce zero stats.
// Variance is clamped to >= 0 to absorb floating-point cancellation.
func (s *StatsIndex) QueryStats(r Region) RegionStats {
	var stats RegionStats
	if !s.IsBuilt() {
		return stats
	}
	r, ok := s.clamp(r)
	if !ok {
		return stats
	}

	stats.Sum = s.cornerQuery(s.sums, r)
	stats.Area = r.Area()
	stats.Mean = float64(stats.Sum) / float64(stats.Area)

	meanOfSquares := float64(s.cornerQuery(s.sqSums, r)) / float64(stats.Area)
	stats.Variance = math.Max(0, meanOfSquares-stats.Mean*stats.Mean)
	stats.StdDev = math.Sqrt(stats.Variance)
	return stats
}

// QueryMean returns the mean pixel value of r, or 0 for degenerate input.
func (s *StatsIndex) QueryMean(r Region) float64 {
	if !s.IsBuilt() {
		return 0
	}
	r, ok := s.clamp(r)
	if !ok {
		return 0
	}
	return float64(s.cornerQuery(s.sums, r)) / float64(r.Area())
}

// QueryVariance returns the variance of r's pixel values.
func (s *StatsIndex) QueryVariance(r Region) float64 {
	return s.QueryStats(r).Variance
}

// Verify cross-checks the index against a brute-force summation over r's
// cells. Intended for tests and pipeline self-checks.
func (s *StatsIndex) Verify(src *raster.Raster, r Region) bool {
	var bruteSum, bruteSquares int64
	for row := r.Row1; row <= r.Row2; row++ {
		for col := r.Col1; col <= r.Col2; col++ {
			if row < 0 || row >= src.Height || col < 0 || col >= src.Width {
				continue
			}
			v := int64(src.Pixels[row*src.Width+col])
			bruteSum += v
			bruteSquares += v * v
		}
	}
	return bruteSum == s.QuerySum(r) && bruteSquares == s.QuerySumSquares(r)
}

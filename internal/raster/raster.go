// Package raster provides the in-memory grayscale grid consumed by the
// analytics pipeline, along with PGM file I/O and synthetic scene generation.
package raster

import (
	"fmt"
)

// MaxDim is the largest supported raster dimension on either axis.
const MaxDim = 8192

// Raster is an immutable-by-convention grayscale pixel grid.
// Pixels are stored row-major, one byte per pixel, intensity 0-255.
type Raster struct {
	Height int
	Width  int
	Pixels []uint8
}

// New allocates a zeroed raster of the given dimensions.
func New(height, width int) (*Raster, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("raster dimensions must be positive, got %dx%d", height, width)
	}
	if height > MaxDim || width > MaxDim {
		return nil, fmt.Errorf("raster dimensions %dx%d exceed maximum %d", height, width, MaxDim)
	}
	return &Raster{
		Height: height,
		Width:  width,
		Pixels: make([]uint8, height*width),
	}, nil
}

// Index returns the flat offset of (row, col).
func (r *Raster) Index(row, col int) int { return row*r.Width + col }

// At returns the pixel at (row, col), or 0 when out of bounds.
func (r *Raster) At(row, col int) uint8 {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return 0
	}
	return r.Pixels[row*r.Width+col]
}

// Set writes the pixel at (row, col); out-of-bounds writes are ignored.
func (r *Raster) Set(row, col int, v uint8) {
	if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
		return
	}
	r.Pixels[row*r.Width+col] = v
}

// IsEmpty reports whether the raster holds no pixels.
func (r *Raster) IsEmpty() bool {
	return r == nil || r.Height <= 0 || r.Width <= 0 || len(r.Pixels) == 0
}

// Clone returns a deep copy of the raster.
func (r *Raster) Clone() *Raster {
	out := &Raster{Height: r.Height, Width: r.Width, Pixels: make([]uint8, len(r.Pixels))}
	copy(out.Pixels, r.Pixels)
	return out
}

package raster

import (
	"math"
	"math/rand"
)

// Constants for synthetic scene generation
const (
	// TerrainMean is the base intensity of generated terrain
	TerrainMean = 128.0
	// TerrainStdDev is the per-pixel gaussian spread of the terrain
	TerrainStdDev = 20.0
	// NoiseOctaves is the number of value-noise octaves layered over the terrain
	NoiseOctaves = 4
	// NoiseAmplitude scales the summed octave noise before it is applied
	NoiseAmplitude = 30.0
)

// GenerateSynthetic builds a size x size test scene: smoothly varying terrain
// with numAnomalies bright or dark blocks blended in with a gaussian falloff.
// Output is deterministic for a given seed.
func GenerateSynthetic(size, numAnomalies int, seed int64) (*Raster, error) {
	r, err := New(size, size)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))

	// Multi-octave bilinear value noise. Coarse octaves give large terrain
	// features, fine octaves give texture.
	noise := make([]float64, size*size)
	for octave := 0; octave < NoiseOctaves; octave++ {
		scale := 1 << (5 - octave) // 32, 16, 8, 4
		amplitude := 1.0 / float64(int(1)<<octave)

		gridSize := size/scale + 2
		control := make([]float64, gridSize*gridSize)
		for i := range control {
			control[i] = rng.Float64()*20.0 - 10.0
		}

		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				gr := float64(row) / float64(scale)
				gc := float64(col) / float64(scale)
				gi := min(int(gr), gridSize-2)
				gj := min(int(gc), gridSize-2)
				fr := gr - math.Floor(gr)
				fc := gc - math.Floor(gc)

				v00 := control[gi*gridSize+gj]
				v01 := control[gi*gridSize+gj+1]
				v10 := control[(gi+1)*gridSize+gj]
				v11 := control[(gi+1)*gridSize+gj+1]

				v0 := v00*(1-fc) + v01*fc
				v1 := v10*(1-fc) + v11*fc
				noise[row*size+col] += (v0*(1-fr) + v1*fr) * amplitude * NoiseAmplitude / 10.0
			}
		}
	}

	for i := range r.Pixels {
		v := TerrainMean + rng.NormFloat64()*TerrainStdDev + noise[i]
		r.Pixels[i] = clampPixel(v)
	}

	// Drop anomaly blocks away from the borders so they stay fully in frame.
	margin := size / 10
	for i := 0; i < numAnomalies; i++ {
		r1 := margin + rng.Intn(size-2*margin)
		c1 := margin + rng.Intn(size-2*margin)
		rSize := size/20 + rng.Intn(size/8-size/20+1)
		cSize := size/20 + rng.Intn(size/8-size/20+1)
		r2 := min(r1+rSize, size-1)
		c2 := min(c1+cSize, size-1)

		intensity := 50.0 + rng.Float64()*50.0
		bright := rng.Float64() < 0.5
		InsertAnomaly(r, r1, c1, r2, c2, intensity, bright)
	}

	return r, nil
}

// GenerateGradient builds a size x size diagonal gradient, useful as a
// smooth fixture with no anomalies.
func GenerateGradient(size int) (*Raster, error) {
	r, err := New(size, size)
	if err != nil {
		return nil, err
	}
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			r.Pixels[row*size+col] = uint8((row + col) * 255 / (2*size - 2))
		}
	}
	return r, nil
}

// InsertAnomaly blends a bright or dark blob into the inclusive rectangle
// (r1,c1)-(r2,c2) with a gaussian falloff from the rectangle's centre.
func InsertAnomaly(r *Raster, r1, c1, r2, c2 int, intensity float64, bright bool) {
	centerR := (r1 + r2) / 2
	centerC := (c1 + c2) / 2
	radiusR := math.Max(float64(r2-r1)/2.0, 1)
	radiusC := math.Max(float64(c2-c1)/2.0, 1)

	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			if row < 0 || row >= r.Height || col < 0 || col >= r.Width {
				continue
			}
			dr := float64(row-centerR) / radiusR
			dc := float64(col-centerC) / radiusC
			dist2 := dr*dr + dc*dc

			delta := intensity * math.Exp(-dist2*2.0)
			v := float64(r.Pixels[row*r.Width+col])
			if bright {
				v += delta
			} else {
				v -= delta
			}
			r.Pixels[row*r.Width+col] = clampPixel(v)
		}
	}
}

// FillUniform sets every pixel to the same value.
func FillUniform(r *Raster, v uint8) {
	for i := range r.Pixels {
		r.Pixels[i] = v
	}
}

// FillBlock sets every pixel in the inclusive rectangle to v.
func FillBlock(r *Raster, r1, c1, r2, c2 int, v uint8) {
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			r.Set(row, col, v)
		}
	}
}

func clampPixel(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

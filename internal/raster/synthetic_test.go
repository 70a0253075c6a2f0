package raster

import (
	"bytes"
	"testing"
)

func TestGenerateSyntheticDeterministic(t *testing.T) {
	a, err := GenerateSynthetic(64, 4, 42)
	if err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}
	b, err := GenerateSynthetic(64, 4, 42)
	if err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}
	if !bytes.Equal(a.Pixels, b.Pixels) {
		t.Error("same seed produced different scenes")
	}

	c, err := GenerateSynthetic(64, 4, 43)
	if err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}
	if bytes.Equal(a.Pixels, c.Pixels) {
		t.Error("different seeds produced identical scenes")
	}
}

func TestGenerateSyntheticDimensions(t *testing.T) {
	r, err := GenerateSynthetic(100, 2, 1)
	if err != nil {
		t.Fatalf("GenerateSynthetic failed: %v", err)
	}
	if r.Height != 100 || r.Width != 100 {
		t.Errorf("dimensions = %dx%d, want 100x100", r.Height, r.Width)
	}

	if _, err := GenerateSynthetic(0, 2, 1); err == nil {
		t.Error("expected an error for size 0")
	}
}

func TestGenerateGradient(t *testing.T) {
	r, err := GenerateGradient(64)
	if err != nil {
		t.Fatalf("GenerateGradient failed: %v", err)
	}
	if r.At(0, 0) != 0 {
		t.Errorf("top-left = %d, want 0", r.At(0, 0))
	}
	if r.At(63, 63) != 255 {
		t.Errorf("bottom-right = %d, want 255", r.At(63, 63))
	}
	// Values rise monotonically along each row.
	for col := 1; col < 64; col++ {
		if r.At(10, col) < r.At(10, col-1) {
			t.Fatalf("gradient not monotonic at col %d", col)
		}
	}
}

func TestInsertAnomalyBright(t *testing.T) {
	r, _ := New(32, 32)
	FillUniform(r, 100)

	InsertAnomaly(r, 8, 8, 23, 23, 80, true)

	// The centre gets nearly the full intensity; outside is untouched.
	if center := r.At(15, 15); center <= 150 {
		t.Errorf("centre = %d, want well above background", center)
	}
	if r.At(0, 0) != 100 {
		t.Errorf("corner = %d, want untouched 100", r.At(0, 0))
	}
}

func TestInsertAnomalyDarkClamps(t *testing.T) {
	r, _ := New(16, 16)
	FillUniform(r, 30)

	InsertAnomaly(r, 0, 0, 15, 15, 200, false)

	// Deep subtraction clamps at zero instead of wrapping.
	if center := r.At(7, 7); center != 0 {
		t.Errorf("centre = %d, want clamped 0", center)
	}
}

func TestInsertAnomalyOutOfBounds(t *testing.T) {
	r, _ := New(16, 16)
	FillUniform(r, 100)

	// A blob straddling the border must only touch in-frame pixels.
	InsertAnomaly(r, -8, -8, 7, 7, 100, true)
	if r.At(0, 0) == 100 {
		t.Error("in-frame corner should have been brightened")
	}
	if r.At(15, 15) != 100 {
		t.Errorf("far corner = %d, want untouched 100", r.At(15, 15))
	}
}

func TestFillBlock(t *testing.T) {
	r, _ := New(8, 8)
	FillBlock(r, 2, 2, 5, 5, 200)

	if r.At(2, 2) != 200 || r.At(5, 5) != 200 {
		t.Error("block corners should be filled")
	}
	if r.At(1, 2) != 0 || r.At(6, 5) != 0 {
		t.Error("pixels outside the block should be untouched")
	}
}

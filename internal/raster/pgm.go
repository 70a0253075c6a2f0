package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadPGM reads a PGM image (P2 ASCII or P5 binary) from disk.
// Pixel values are rescaled to the 0-255 range when the file's maxval differs.
func LoadPGM(path string) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pgm: %w", err)
	}
	defer f.Close()

	return DecodePGM(f)
}

// DecodePGM parses a PGM image (P2 ASCII or P5 binary) from a reader.
func DecodePGM(rd io.Reader) (*Raster, error) {
	br := bufio.NewReader(rd)

	magic, err := readPGMToken(br)
	if err != nil {
		return nil, fmt.Errorf("read pgm magic: %w", err)
	}
	if magic != "P2" && magic != "P5" {
		return nil, fmt.Errorf("unsupported pgm magic %q", magic)
	}

	var dims [3]int // width, height, maxval
	for i := range dims {
		tok, err := readPGMToken(br)
		if err != nil {
			return nil, fmt.Errorf("read pgm header: %w", err)
		}
		v, err := strconv.Atoi(tok)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid pgm header value %q", tok)
		}
		dims[i] = v
	}
	width, height, maxVal := dims[0], dims[1], dims[2]

	r, err := New(height, width)
	if err != nil {
		return nil, err
	}

	if magic == "P2" {
		for i := 0; i < height*width; i++ {
			tok, err := readPGMToken(br)
			if err != nil {
				return nil, fmt.Errorf("read pgm pixel %d: %w", i, err)
			}
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, fmt.Errorf("invalid pgm pixel %q", tok)
			}
			r.Pixels[i] = uint8(v * 255 / maxVal)
		}
		return r, nil
	}

	// P5: raw bytes follow the single whitespace after maxval, which
	// readPGMToken has already consumed.
	raw := make([]uint8, height*width)
	if _, err := io.ReadFull(br, raw); err != nil {
		return nil, fmt.Errorf("read pgm data: %w", err)
	}
	for i, b := range raw {
		r.Pixels[i] = uint8(int(b) * 255 / maxVal)
	}
	return r, nil
}

// readPGMToken returns the next whitespace-delimited token, skipping
// '#' comment lines anywhere in the header.
func readPGMToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			if len(tok) > 0 && err == io.EOF {
				return string(tok), nil
			}
			return "", err
		}
		switch {
		case b == '#':
			if _, err := br.ReadString('\n'); err != nil && err != io.EOF {
				return "", err
			}
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}

// SavePGM writes the raster as a binary (P5) PGM file.
func SavePGM(r *Raster, path string) error {
	if r.IsEmpty() {
		return fmt.Errorf("cannot save empty raster")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pgm: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(bw, "P5\n%d %d\n255\n", r.Width, r.Height); err != nil {
		return fmt.Errorf("write pgm header: %w", err)
	}
	if _, err := bw.Write(r.Pixels); err != nil {
		return fmt.Errorf("write pgm data: %w", err)
	}
	return bw.Flush()
}

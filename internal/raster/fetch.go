package raster

import (
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/gridsight/internal/httputil"
)

// maxFetchBytes bounds the downloaded payload; a full-size PGM at the max
// raster dimension is ~64MB plus header.
const maxFetchBytes = 70 * 1024 * 1024

// Fetch downloads a PGM image from url and parses it. The client is
// injectable so tests can use httputil.MockHTTPClient.
func Fetch(client httputil.HTTPClient, url string) (*Raster, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxFetchBytes+1)
	img, err := DecodePGM(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return img, nil
}

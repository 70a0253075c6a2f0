package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// HTTPClient is the minimal client surface needed to fetch a remote raster.
// *http.Client satisfies it directly; tests use MockHTTPClient.
type HTTPClient interface {
	Get(url string) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)

// MockHTTPClient serves canned responses in queue order and records the
// requested URLs.
type MockHTTPClient struct {
	mu        sync.Mutex
	urls      []string
	responses []mockResponse
	next      int
}

type mockResponse struct {
	status int
	body   []byte
	err    error
}

// NewMockHTTPClient creates an empty mock client. A Get with no queued
// response fails, so tests must queue exactly what they expect to consume.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{}
}

// AddResponse queues a response with the given status and body.
func (m *MockHTTPClient) AddResponse(status int, body []byte) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{status: status, body: body})
	return m
}

// AddErrorResponse queues a transport-level error.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// Get records the URL and returns the next queued response.
func (m *MockHTTPClient) Get(url string) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.urls = append(m.urls, url)

	if m.next >= len(m.responses) {
		return nil, fmt.Errorf("no response queued for %s", url)
	}
	resp := m.responses[m.next]
	m.next++

	if resp.err != nil {
		return nil, resp.err
	}
	return &http.Response{
		StatusCode: resp.status,
		Body:       io.NopCloser(bytes.NewReader(resp.body)),
		Header:     make(http.Header),
	}, nil
}

// RequestCount returns the number of Get calls made.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

// RequestedURL returns the URL of the nth Get call, or "" if out of range.
func (m *MockHTTPClient) RequestedURL(n int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.urls) {
		return ""
	}
	return m.urls[n]
}

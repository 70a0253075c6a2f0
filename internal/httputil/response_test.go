package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONOK(rec, map[string]int{"leaf_count": 16})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["leaf_count"] != 16 {
		t.Errorf("leaf_count = %d, want 16", resp["leaf_count"])
	}
}

func TestWriteJSONStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"run_id": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "bad request",
			write:      func(w http.ResponseWriter) { BadRequest(w, "k must be a positive integer") },
			wantStatus: http.StatusBadRequest,
			wantMsg:    "k must be a positive integer",
		},
		{
			name:       "not found",
			write:      func(w http.ResponseWriter) { NotFound(w, "no analysis session loaded") },
			wantStatus: http.StatusNotFound,
			wantMsg:    "no analysis session loaded",
		},
		{
			name:       "method not allowed",
			write:      MethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantMsg:    "method not allowed",
		},
		{
			name:       "internal error",
			write:      func(w http.ResponseWriter) { InternalServerError(w, "query failed") },
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "query failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp["error"], tt.wantMsg)
			}
		})
	}
}

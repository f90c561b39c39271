// Package testutil provides utilities for testing.
package testutil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
)

// NewTestLogger creates a debug-level logger writing to w.
// If writer is nil, it will use io.Discard
func NewTestLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// DiscardLogger returns a logger that discards all output
func DiscardLogger() *slog.Logger {
	return NewTestLogger(nil)
}

// ServeJSON returns a handler that answers every request with v encoded as JSON.
func ServeJSON(t testing.TB, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("encode fixture: %v", err)
		}
	}
}

// ServeRaw returns a handler that answers every request with the given status and body.
func ServeRaw(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTestLogger(buf)
	require.NotNil(t, logger)

	logger.Debug("test message", "key", "value")
	assert.Contains(t, buf.String(), "test message")

	assert.NotNil(t, NewTestLogger(nil))
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	require.NotNil(t, logger)

	// Must not panic
	logger.Info("test message", "key", "value")
	logger.Error("error message", "key", "value")
}

func TestServeJSON(t *testing.T) {
	srv := httptest.NewServer(ServeJSON(t, map[string]string{"display_name": "Berlin"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"display_name":"Berlin"}`, string(body))
}

func TestServeRaw(t *testing.T) {
	srv := httptest.NewServer(ServeRaw(http.StatusBadGateway, "upstream down"))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream down", string(body))
}

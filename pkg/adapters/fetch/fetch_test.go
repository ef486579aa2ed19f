package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"foo":"bar"}`))
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain"))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		w.Header().Set("X-Method", r.Method)
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Oh Noes!", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(time.Second, 1024, zaptest.NewLogger(t))
	ctx := context.Background()

	v, err := c.Fetch(ctx, &ports.FetchRequest{URL: srv.URL + "/json"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": "bar"}, v)

	v, err = c.Fetch(ctx, &ports.FetchRequest{URL: srv.URL + "/text"})
	require.NoError(t, err)
	assert.Equal(t, "plain", v)

	v, err = c.Fetch(ctx, &ports.FetchRequest{URL: srv.URL + "/echo", Body: []byte(`{"val":4}`)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"val": 4.0}, v)
}

func TestClient_FetchStatusError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(time.Second, 1024, zaptest.NewLogger(t))

	_, err := c.Fetch(context.Background(), &ports.FetchRequest{URL: srv.URL + "/fail"})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, "Oh Noes!", statusErr.Body)
}

func TestClient_FetchBodyLimit(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(time.Second, 4, zaptest.NewLogger(t))

	_, err := c.Fetch(context.Background(), &ports.FetchRequest{URL: srv.URL + "/json"})
	assert.ErrorContains(t, err, "response exceeds 4 bytes")
}

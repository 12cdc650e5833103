package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/htmd/internal/config"
	"github.com/jcorbin/htmd/plugins"
)

func testRouter(cfg config.Config) http.Handler {
	gin.SetMode(gin.TestMode)
	return newServer(cfg, slog.New(slog.DiscardHandler), prometheus.NewRegistry()).router()
}

func do(h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, vs := range header {
		req.Header[k] = vs
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServe_convert(t *testing.T) {
	h := testRouter(config.Default())

	rec := do(h, http.MethodPost, "/convert?origin=https://example.com",
		`<h1>T</h1><p><a href="/y">y</a></p>`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "# T\n\n[y](https://example.com/y)", rec.Body.String())
	assert.Equal(t, markdownType, rec.Header().Get("Content-Type"))
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)

	id := uuid.NewString()
	rec = do(h, http.MethodPost, "/convert?strategy=minimal",
		`<nav>n</nav><main><p>body</p></main>`, http.Header{requestIDHeader: {id}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body", rec.Body.String())
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))

	rec = do(h, http.MethodPost, "/convert", "", http.Header{requestIDHeader: {"not-a-uuid"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", rec.Body.String())
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIDHeader))
}

func TestServe_errors(t *testing.T) {
	cfg := config.Default()
	cfg.Serve.MaxBody = 8
	h := testRouter(cfg)

	rec := do(h, http.MethodPost, "/convert?strategy=maximal", `<p>x</p>`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Strategy")

	rec = do(h, http.MethodPost, "/convert?origin=nope", `<p>x</p>`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/convert", `<p>too much input</p>`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = do(h, http.MethodGet, "/convert", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_data(t *testing.T) {
	cfg := config.Default()
	cfg.Headings = true
	h := testRouter(cfg)

	rec := do(h, http.MethodPost, "/convert?data=1", `<h1 id="a">Hello</h1><p>x</p>`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Markdown string `json:"markdown"`
		Data     struct {
			Headings []plugins.Heading `json:"headings"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "# Hello\n\nx", res.Markdown)
	assert.Equal(t, []plugins.Heading{{Level: 1, Text: "Hello", Anchor: "hello", ID: "a"}}, res.Data.Headings)
}

func TestServe_metrics(t *testing.T) {
	h := testRouter(config.Default())

	rec := do(h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	do(h, http.MethodPost, "/convert", `<p>a</p>`, nil)
	do(h, http.MethodPost, "/convert?data=1", `<p>b</p>`, nil)

	rec = do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `htmd_conversions_total{status="ok"} 2`)
	assert.Contains(t, body, "htmd_active_conversions 0")
	assert.Contains(t, body, "htmd_input_bytes_total 16")
}

// brokenWriter is a response whose client has gone away.
type brokenWriter struct{ *httptest.ResponseRecorder }

func (w brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func (w brokenWriter) WriteString(string) (int, error) { return 0, errors.New("broken pipe") }

func TestServe_disconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newServer(config.Default(), slog.New(slog.DiscardHandler), prometheus.NewRegistry())
	h := s.router()

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`<p>a</p><p>b</p>`))
	h.ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.Conversions.WithLabelValues("canceled")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.Conversions.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.Active))
}

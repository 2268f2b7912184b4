package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bryanwahyu/speech-coach/internal/logger"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
)

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	var out bytes.Buffer
	var seen string
	h := RequestLogger(logger.NewWithOutput(&out, "info", "json"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	id := rec.Header().Get(RequestIDHeader)
	if id == "" || id != seen {
		t.Fatalf("request id not propagated: header=%q ctx=%q", id, seen)
	}

	var line map[string]any
	if err := json.Unmarshal(out.Bytes(), &line); err != nil {
		t.Fatalf("log line is not json: %v (%s)", err, out.String())
	}
	if line["level"] != "warning" || line["status"] != float64(http.StatusTeapot) || line["request_id"] != id {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestRequestLoggerKeepsCallerID(t *testing.T) {
	h := RequestLogger(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("want caller id, got %q", got)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, p := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/items/{id}", "GET", "404")); got != 2 {
		t.Fatalf("want 2 requests on the route pattern, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsInProgress); got != 0 {
		t.Fatalf("in-progress gauge should be back to 0, got %v", got)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]HealthChecker
		want     int
	}{
		{"no checks", nil, http.StatusOK},
		{"all healthy", map[string]HealthChecker{
			"ffmpeg": CheckFunc(func(context.Context) error { return nil }),
		}, http.StatusOK},
		{"one failing", map[string]HealthChecker{
			"ffmpeg": CheckFunc(func(context.Context) error { return nil }),
			"redis":  CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
		}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tt.checkers)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.want {
				t.Fatalf("want %d, got %d", tt.want, rec.Code)
			}
			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Checks) != len(tt.checkers) {
				t.Fatalf("unexpected checks: %v", body.Checks)
			}
			if tt.want != http.StatusOK && !strings.Contains(body.Checks["redis"].Message, "refused") {
				t.Fatalf("failure message missing: %v", body.Checks)
			}
		})
	}
}

func TestUploadExtension(t *testing.T) {
	tests := map[string]string{
		"recording.webm":      ".webm",
		"Voice Memo.M4A":      ".m4a",
		"clip.tar.gz":         ".gz",
		"noext":               "",
		"weird.mp3;rm -rf":    "",
		"trailing.":           "",
		"nul\x00.wav":         ".wav",
		"long.abcdefghijklmn": "",
	}
	for in, want := range tests {
		if got := UploadExtension(in); got != want {
			t.Errorf("UploadExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  a\x00b\x07c\n "); got != "abc" {
		t.Fatalf("unexpected: %q", got)
	}
}

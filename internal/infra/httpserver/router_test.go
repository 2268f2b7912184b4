package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	domain "github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/logger"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
)

type fakePipeline struct {
	result   domain.Result
	gotPath  string
	gotBytes []byte
	panics   bool
}

func (f *fakePipeline) Process(_ context.Context, path string) domain.Result {
	f.gotPath = path
	f.gotBytes, _ = os.ReadFile(path)
	if f.panics {
		panic("boom")
	}
	return f.result
}

type fakeAnalyses struct {
	a   *domain.Analysis
	err error
}

func (f fakeAnalyses) Latest(context.Context) (domain.Analysis, error) {
	if f.err != nil {
		return domain.Analysis{}, f.err
	}
	if f.a == nil {
		return domain.Analysis{}, domain.E(domain.KindNotFound, "Feedback.Latest", "No analysis is available yet.", nil)
	}
	return *f.a, nil
}

func newTestRouter(t *testing.T, p Pipeline, a AnalysisReader) (http.Handler, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	return NewRouter(p, a, Options{
		UploadDir:      dir,
		MaxUploadBytes: 1 << 20,
		AllowedOrigins: []string{"http://localhost:3000", "https://solvo-audio-ai.vercel.app"},
		Metrics:        metrics.New(),
		Logger:         logger.Discard(),
	}), dir
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func uploadsLeft(t *testing.T, dir string) []string {
	t.Helper()
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranscribeAudioSuccess(t *testing.T) {
	p := &fakePipeline{result: domain.Result{Transcript: "hello world", Analysis: "Level: B1"}}
	h, dir := newTestRouter(t, p, fakeAnalyses{})

	body, ct := multipartBody(t, "file", "memo.webm", []byte("webm-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe-audio/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["transcript"] != "hello world" || got["analysis"] != "Level: B1" || got["error"] != "" {
		t.Fatalf("unexpected body: %v", got)
	}
	if filepath.Dir(p.gotPath) != dir || filepath.Ext(p.gotPath) != ".webm" {
		t.Fatalf("upload saved at unexpected path: %s", p.gotPath)
	}
	if string(p.gotBytes) != "webm-bytes" {
		t.Fatalf("upload content mismatch: %q", p.gotBytes)
	}
	if left := uploadsLeft(t, dir); len(left) != 0 {
		t.Fatalf("scratch upload not removed: %v", left)
	}
}

func TestTranscribeAudioPipelineFailureIsStill200(t *testing.T) {
	p := &fakePipeline{result: domain.Result{Error: "General error: could not decode input audio"}}
	h, dir := newTestRouter(t, p, fakeAnalyses{})

	body, ct := multipartBody(t, "file", "bad.mp3", []byte("garbage"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe-audio/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error":"General error: could not decode input audio"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if left := uploadsLeft(t, dir); len(left) != 0 {
		t.Fatalf("scratch upload not removed: %v", left)
	}
}

func TestTranscribeAudioPanicIs500(t *testing.T) {
	p := &fakePipeline{panics: true}
	h, dir := newTestRouter(t, p, fakeAnalyses{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	body, ct := multipartBody(t, "file", "x.wav", []byte("RIFF"))
	resp, err := http.Post(srv.URL+"/transcribe-audio/", ct, body)
	if err != nil {
		t.Fatalf("no response from server: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", resp.StatusCode)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(got["detail"], "Server error: ") || !strings.Contains(got["detail"], "boom") {
		t.Fatalf("unexpected detail: %v", got)
	}
	if p.gotPath == "" {
		t.Fatal("pipeline was not called")
	}
	if left := uploadsLeft(t, dir); len(left) != 0 {
		t.Fatalf("scratch upload not removed after panic: %v", left)
	}
}

func TestTranscribeAudioBoundaryErrors(t *testing.T) {
	tests := []struct {
		name   string
		build  func(t *testing.T) (*bytes.Buffer, string)
		status int
	}{
		{
			name: "missing file field",
			build: func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, "audio", "memo.webm", []byte("x"))
			},
			status: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			build: func(t *testing.T) (*bytes.Buffer, string) {
				return bytes.NewBufferString(`{"file":"x"}`), "application/json"
			},
			status: http.StatusBadRequest,
		},
		{
			name: "too large",
			build: func(t *testing.T) (*bytes.Buffer, string) {
				return multipartBody(t, "file", "big.wav", bytes.Repeat([]byte("a"), 2<<20))
			},
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{}
			h, dir := newTestRouter(t, p, fakeAnalyses{})
			body, ct := tt.build(t)
			req := httptest.NewRequest(http.MethodPost, "/transcribe-audio/", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("want %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got["detail"] == "" {
				t.Fatalf("want detail body, got %s", rec.Body.String())
			}
			if p.gotPath != "" {
				t.Fatal("pipeline must not run")
			}
			if left := uploadsLeft(t, dir); len(left) != 0 {
				t.Fatalf("unexpected files: %v", left)
			}
		})
	}
}

func TestTranscribeAudioSaveFailureIs500(t *testing.T) {
	p := &fakePipeline{}
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	os.WriteFile(blocker, []byte("x"), 0o644)
	h := NewRouter(p, fakeAnalyses{}, Options{
		UploadDir:      blocker,
		MaxUploadBytes: 1 << 20,
		Logger:         logger.Discard(),
	})

	body, ct := multipartBody(t, "file", "memo.webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe-audio/", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"detail":"Server error: `) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h, _ := newTestRouter(t, &fakePipeline{}, fakeAnalyses{})

	tests := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:3000", true},
		{"https://solvo-audio-ai.vercel.app", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/transcribe-audio/", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			req.Header.Set("Access-Control-Request-Headers", "content-type")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allow {
				if got != tt.origin {
					t.Fatalf("want allow-origin %q, got %q", tt.origin, got)
				}
				if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
					t.Fatal("credentials should be allowed")
				}
			} else if got != "" {
				t.Fatalf("origin should not be allowed, got %q", got)
			}
		})
	}
}

func TestLatestAnalysis(t *testing.T) {
	h, _ := newTestRouter(t, &fakePipeline{}, fakeAnalyses{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analysis/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("want 404 on empty cache, got %d", rec.Code)
	}

	h, _ = newTestRouter(t, &fakePipeline{}, fakeAnalyses{a: &domain.Analysis{Text: "Level: C1"}})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analysis/latest", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"analysis":"Level: C1"}` {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestOperationalEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, &fakePipeline{}, fakeAnalyses{})
	for _, path := range []string{"/health", "/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: want 200, got %d", path, rec.Code)
		}
	}
}

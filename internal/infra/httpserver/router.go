package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "github.com/bryanwahyu/speech-coach/internal/domain/feedback"
	"github.com/bryanwahyu/speech-coach/internal/metrics"
	"github.com/bryanwahyu/speech-coach/internal/middleware"
)

// Pipeline processes one saved upload.
type Pipeline interface {
	Process(ctx context.Context, uploadPath string) domain.Result
}

// AnalysisReader serves the cached analysis.
type AnalysisReader interface {
	Latest(ctx context.Context) (domain.Analysis, error)
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	AllowedOrigins []string
	Checks         map[string]middleware.HealthChecker
	Metrics        *metrics.Metrics // nil disables /metrics
	Logger         logrus.FieldLogger
}

type Router struct {
	pipeline  Pipeline
	analyses  AnalysisReader
	uploadDir string
	maxBytes  int64
	log       logrus.FieldLogger
}

func NewRouter(pipeline Pipeline, analyses AnalysisReader, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	r := &Router{
		pipeline:  pipeline,
		analyses:  analyses,
		uploadDir: opts.UploadDir,
		maxBytes:  opts.MaxUploadBytes,
		log:       opts.Logger,
	}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestLogger(opts.Logger))
	if opts.Metrics != nil {
		mux.Use(middleware.Metrics(opts.Metrics))
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           600,
	}))

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checks))
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Post("/transcribe-audio/", r.wrap(r.handleTranscribe))
	mux.Post("/transcribe-audio", r.wrap(r.handleTranscribe))
	mux.Get("/analysis/latest", r.wrap(r.handleLatestAnalysis))

	return mux
}

// httpError is a boundary failure with its own status code.
type httpError struct {
	status int
	detail string
}

func (e *httpError) Error() string { return e.detail }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := serve(h, w, req)
		if err == nil {
			return
		}
		var he *httpError
		if errors.As(err, &he) {
			writeJSON(w, he.status, map[string]string{"detail": he.detail})
			return
		}
		if domain.IsKind(err, domain.KindNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": domain.UserMessage(err)})
			return
		}
		r.log.WithError(err).WithField("request_id", middleware.RequestIDFromContext(req.Context())).
			Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Server error: " + err.Error()})
	}
}

// serve turns a panic in h into an unhandled error so the client still
// gets a 500. Deferred cleanup inside h runs before the recover.
func serve(h handlerFunc, w http.ResponseWriter, req *http.Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = domain.E(domain.KindUnhandled, "httpserver", "", fmt.Errorf("panic: %v", p))
		}
	}()
	return h(w, req)
}

// POST /transcribe-audio/
// multipart/form-data with a single "file" field
func (r *Router) handleTranscribe(w http.ResponseWriter, req *http.Request) error {
	if r.maxBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxBytes)
	}
	file, header, err := req.FormFile("file")
	if req.MultipartForm != nil {
		defer req.MultipartForm.RemoveAll()
	}
	if err != nil {
		return uploadError(err, r.maxBytes)
	}
	defer file.Close()

	path, err := r.saveUpload(file, header)
	if err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.WithError(err).WithField("path", path).Warn("failed to remove upload")
		}
	}()

	r.log.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFromContext(req.Context()),
		"filename":   middleware.SanitizeString(header.Filename),
		"size":       header.Size,
	}).Info("audio received")

	res := r.pipeline.Process(req.Context(), path)
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /analysis/latest
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
	a, err := r.analyses.Latest(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, a)
	return nil
}

// saveUpload copies the upload to <uploadDir>/<uuid><ext>.
func (r *Router) saveUpload(src multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(r.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(r.uploadDir, uuid.NewString()+middleware.UploadExtension(header.Filename))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

func uploadError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), strings.Contains(err.Error(), "request body too large"):
		return &httpError{
			status: http.StatusRequestEntityTooLarge,
			detail: fmt.Sprintf("Uploaded file exceeds the %d MB limit.", limit>>20),
		}
	case errors.Is(err, http.ErrMissingFile):
		return &httpError{status: http.StatusBadRequest, detail: "No file was sent in the 'file' field."}
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
		return &httpError{status: http.StatusBadRequest, detail: "Request must be multipart/form-data."}
	default:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

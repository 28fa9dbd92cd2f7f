// Package api exposes the build pipeline as a small HTTP service: POST a
// manifest document, receive the resolved scene. Deployments that batch
// many manifests point several instances at one shared Redis cache.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mwolters/polymark/pkg/errors"
	"github.com/mwolters/polymark/pkg/manifest"
	"github.com/mwolters/polymark/pkg/observability"
	"github.com/mwolters/polymark/pkg/pipeline"
)

// Server handles scene build requests.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// NewServer creates a server around the given runner.
func NewServer(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, logger: logger}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.hooksMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/scenes", s.handleBuildScene)
	return r
}

// sceneResponse is the build result returned to clients. The SVG preview
// is included only when requested.
type sceneResponse struct {
	ID        string             `json:"id"`
	SceneHash string             `json:"scene_hash"`
	Scene     json.RawMessage    `json:"scene"`
	SVG       string             `json:"svg,omitempty"`
	Stats     pipeline.Stats     `json:"stats"`
	CacheInfo pipeline.CacheInfo `json:"cache_info"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBuildScene accepts a manifest (JSON by default, TOML with a
// matching Content-Type) and runs the full pipeline.
func (s *Server) handleBuildScene(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	format := "json"
	if ct := r.Header.Get("Content-Type"); strings.Contains(ct, "toml") {
		format = "toml"
	}

	m, err := manifest.Parse(body, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	formats := []string{"json"}
	wantSVG := r.URL.Query().Get("preview") == "svg"
	if wantSVG {
		formats = append(formats, "svg")
	}

	result, err := s.runner.Execute(r.Context(), pipeline.Options{
		Manifest: m,
		Formats:  formats,
		Refresh:  r.URL.Query().Get("refresh") == "true",
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := sceneResponse{
		ID:        result.ID,
		SceneHash: result.SceneHash,
		Scene:     result.Artifacts["json"],
		Stats:     result.Stats,
		CacheInfo: result.CacheInfo,
	}
	if wantSVG {
		resp.SVG = string(result.Artifacts["svg"])
	}
	w.Header().Set("ETag", `"`+result.SceneHash+`"`)
	writeJSON(w, http.StatusOK, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	const maxBody = 1 << 20 // manifests are small; 1 MiB is generous
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "cannot read request body")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty request body")
	}
	return data, nil
}

// writeError maps error codes to HTTP statuses and emits the structured
// error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidManifest, errors.ErrCodeInvalidShape,
		errors.ErrCodeInvalidCamera, errors.ErrCodeInvalidAttach, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidPath, errors.ErrCodeEmptyMesh:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeBoundaryNotFound, errors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	}

	s.logger.Error("request failed", "code", code, "err", err)
	writeJSON(w, status, errorResponse{
		Code:    string(code),
		Message: errors.UserMessage(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// hooksMiddleware reports request metrics through the observability
// hooks.
func (s *Server) hooksMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTP().OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		observability.HTTP().OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

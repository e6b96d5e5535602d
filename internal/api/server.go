package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"web2droid/internal/artifact"
	"web2droid/internal/builder"
	"web2droid/internal/config"
	"web2droid/internal/models"
	"web2droid/internal/ratelimit"
	"web2droid/internal/store"
	"web2droid/internal/telemetry"
)

// Server wires the HTTP surface of the APK generation service.
type Server struct {
	cfg     config.Config
	store   *store.Store
	builder *builder.Builder
	limiter *ratelimit.Limiter
	local   *artifact.LocalStorage
	started time.Time
}

// New constructs the API server. limiter and local may be nil (no rate
// limiting / artifacts stored in S3).
func New(cfg config.Config, st *store.Store, b *builder.Builder, limiter *ratelimit.Limiter, local *artifact.LocalStorage) *Server {
	return &Server{
		cfg:     cfg,
		store:   st,
		builder: b,
		limiter: limiter,
		local:   local,
		started: time.Now(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Mount("/metrics", telemetry.Handler())

	r.Post("/api/v1/generate-apk", s.handleGenerate)
	r.Get("/api/v1/job/{jobID}", s.handleGetJob)
	r.Get("/api/v1/job/{jobID}/logs/ws", s.handleJobLogsWS)
	r.Get("/download/{file}", s.handleDownload)
	return r
}

type generateRequest struct {
	URL         string              `json:"url"`
	PackageName string              `json:"packageName"`
	Options     models.BuildOptions `json:"options"`
}

type generateResponse struct {
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" || req.PackageName == "" {
		writeError(w, http.StatusBadRequest, "URL and packageName are required")
		return
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rate limit error")
			return
		}
		if !allowed {
			telemetry.RateLimitRejects.Inc()
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
	}

	job := s.builder.Submit(req.URL, req.PackageName, req.Options)
	writeJSON(w, http.StatusOK, generateResponse{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "APK generation started",
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.store.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.local == nil {
		writeError(w, http.StatusNotFound, "downloads are not served from this instance")
		return
	}
	path := s.local.Path(chi.URLParam(r, "file"))
	w.Header().Set("Content-Type", "application/vnd.android.package-archive")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Web2Droid API",
		"version": "1.0.2",
		"endpoints": map[string]string{
			"POST /api/v1/generate-apk":       "start an APK build for a website",
			"GET /api/v1/job/{jobId}":         "poll job status, progress, and logs",
			"GET /api/v1/job/{jobId}/logs/ws": "stream logs and progress over websocket",
			"GET /download/{file}":            "download a finished APK",
			"GET /health":                     "service health",
			"GET /metrics":                    "prometheus metrics",
		},
	})
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For accumulates one entry per hop; the originating
	// client is the first one.
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		if i := strings.Index(v, ","); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

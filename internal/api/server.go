// Package api serves read-only job status over HTTP.
//
// The API never mutates job records; all writes stay with the pipeline and
// the CLI. Responses are plain JSON derived from the store, so the surface
// is safe to expose to dashboards and scripts.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/services"
)

// Server exposes job state over HTTP.
type Server struct {
	cfg    *config.Config
	store  *jobs.Store
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
}

// NewServer constructs the API server.
func NewServer(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "api"),
	}
}

// Start binds the configured address and serves until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return errors.New("api already running")
	}

	listener, err := net.Listen("tcp", s.cfg.API.Bind)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener = listener
	s.httpSrv = srv

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server stopped", logging.Error(serveErr))
		}
	}()

	s.logger.Info("api listening", logging.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// Addr reports the bound address, useful when binding port zero.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{referenceID}", s.handleGetJob)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := services.WithRequestID(r.Context(), requestID)
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.logger.Debug("request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("duration", time.Since(start)),
			logging.String(logging.FieldCorrelationID, requestID),
		)
	})
}

// jobView is the wire representation of a job record.
type jobView struct {
	ReferenceID    string     `json:"reference_id"`
	OwnerEmail     string     `json:"owner_email"`
	FileName       string     `json:"file_name"`
	InputLocation  string     `json:"input_location"`
	OutputFormat   string     `json:"output_format"`
	Status         string     `json:"status"`
	Stage          string     `json:"stage,omitempty"`
	OutputLocation string     `json:"output_location,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

func toView(rec *jobs.Record) jobView {
	return jobView{
		ReferenceID:    rec.ReferenceID,
		OwnerEmail:     rec.OwnerEmail,
		FileName:       rec.FileName,
		InputLocation:  rec.InputLocation,
		OutputFormat:   rec.OutputFormat,
		Status:         string(rec.Status),
		Stage:          rec.Stage,
		OutputLocation: rec.OutputLocation,
		ErrorMessage:   rec.ErrorMessage,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		StartedAt:      rec.StartedAt,
		FinishedAt:     rec.FinishedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "job store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs": map[string]int{
			"total":     health.Total,
			"created":   health.Created,
			"running":   health.Running,
			"succeeded": health.Succeeded,
			"failed":    health.Failed,
		},
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := jobs.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		statuses = append(statuses, status)
	}

	list, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.logger.Error("list jobs failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "list jobs failed")
		return
	}
	views := make([]jobView, 0, len(list))
	for _, rec := range list {
		views = append(views, toView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": views})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	referenceID := chi.URLParam(r, "referenceID")
	rec, err := s.store.Get(r.Context(), referenceID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.logger.Error("get job failed", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "get job failed")
		return
	}
	writeJSON(w, http.StatusOK, toView(rec))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

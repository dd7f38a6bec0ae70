// Package server exposes sync history, manual sync and the event stream over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/mekedron/otter-menusync/internal/access"
	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/logging"
	"github.com/mekedron/otter-menusync/internal/storage"
)

const (
	maxBodyBytes     = 1 << 20
	defaultRunsLimit = 20
	maxRunsLimit     = 200
	shutdownTimeout  = 10 * time.Second
)

// Syncer runs syncs and exposes the current snapshot.
type Syncer interface {
	SyncMenu(ctx context.Context, restaurantID string) domain.SyncResult
	Previous() *domain.Menu
}

// RunLister lists stored sync runs.
type RunLister interface {
	Recent(ctx context.Context, profile string, limit int) ([]storage.RunRecord, error)
}

// ProfileLister lists the configured profile names.
type ProfileLister interface {
	List(ctx context.Context) ([]string, error)
}

// Config holds listener and access settings. Profiles is optional; without it
// the profiles route answers 503.
type Config struct {
	Addr        string
	CORSOrigins []string
	Tokens      *access.Tokens
	Profiles    ProfileLister
}

// Server is the HTTP surface of the sync engine.
type Server struct {
	cfg     Config
	syncer  Syncer
	runs    RunLister
	stream  http.Handler
	logger  *slog.Logger
	handler http.Handler
}

// New builds the router. runs and stream may be nil; their routes then answer 503.
func New(cfg Config, syncer Syncer, runs RunLister, stream http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		cfg:    cfg,
		syncer: syncer,
		runs:   runs,
		stream: stream,
		logger: logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler including CORS.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)
		r.With(require(access.ReadRuns)).Get("/sync/runs", s.listRuns)
		r.With(require(access.TriggerSync)).Post("/sync", s.triggerSync)
		r.With(require(access.ReadMenu)).Get("/menu", s.currentMenu)
		r.With(require(access.ManageProfiles)).Get("/profiles", s.listProfiles)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.With(require(access.StreamEvents)).Get("/ws", s.events)
	})

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
		AllowCredentials: !slices.Contains(origins, "*"),
	})
	return c.Handler(r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down http server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "sync history is not configured")
		return
	}
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxRunsLimit)
	}
	runs, err := s.runs.Recent(r.Context(), r.URL.Query().Get("profile"), limit)
	if err != nil {
		s.logger.Error("cannot list sync runs", "err", err, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "could not list sync runs")
		return
	}
	respond(w, http.StatusOK, map[string]any{"runs": runs})
}

type syncRequest struct {
	RestaurantID string `json:"restaurant_id"`
}

func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	result := s.syncer.SyncMenu(r.Context(), strings.TrimSpace(req.RestaurantID))
	status := http.StatusOK
	if !result.Succeeded() {
		status = http.StatusBadGateway
	}
	respond(w, status, result)
}

func (s *Server) currentMenu(w http.ResponseWriter, _ *http.Request) {
	menu := s.syncer.Previous()
	if menu == nil {
		respondError(w, http.StatusNotFound, "no menu has been synced yet")
		return
	}
	respond(w, http.StatusOK, menu)
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "profiles are not configured")
		return
	}
	names, err := s.cfg.Profiles.List(r.Context())
	if err != nil {
		s.logger.Error("cannot list profiles", "err", err, "request_id", middleware.GetReqID(r.Context()))
		respondError(w, http.StatusInternalServerError, "could not list profiles")
		return
	}
	if names == nil {
		names = []string{}
	}
	respond(w, http.StatusOK, map[string]any{"profiles": names})
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		respondError(w, http.StatusServiceUnavailable, "event stream is not configured")
		return
	}
	s.stream.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(startedAt).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}

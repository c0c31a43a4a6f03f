// Package server exposes the webhook, the review API and health endpoints.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drewdunne/aireview/internal/config"
	"github.com/drewdunne/aireview/internal/event"
	"github.com/drewdunne/aireview/internal/metrics"
	"github.com/drewdunne/aireview/internal/model"
	"github.com/drewdunne/aireview/internal/orchestrator"
	"github.com/drewdunne/aireview/internal/webhook"
)

// HealthResponse represents the health check response structure.
type HealthResponse struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// ReadStore is the read side of the review store.
type ReadStore interface {
	ListProjects(ctx context.Context) ([]model.ProjectStats, error)
	GetProject(ctx context.Context, id int64) (*model.ProjectStats, error)
	ListMergeRequests(ctx context.Context, projectID int64) ([]model.MergeRequest, error)
	GetMergeRequest(ctx context.Context, id int64) (*model.MergeRequest, error)
	Ping(ctx context.Context) error
}

// Pipeline is the orchestrator surface used by the HTTP layer.
type Pipeline interface {
	HandleMergeRequestEvent(evt *event.MergeRequestEvent)
	Rerun(ctx context.Context, mrID int64) error
	SendRecommendations(ctx context.Context, mrID int64) error
	RecommendationsMarkdown(ctx context.Context, mrID int64) (string, *model.MergeRequest, error)
	SyncProjects(ctx context.Context) (orchestrator.SyncResult, error)
}

// Dispatcher reports and drains background analyses.
type Dispatcher interface {
	Active() int
	Wait(ctx context.Context) error
}

// Deps are the collaborators a Server is built from.
type Deps struct {
	Store         ReadStore
	Pipeline      Pipeline
	Dispatcher    Dispatcher
	WebhookSecret string
	Logger        *slog.Logger
}

// Server is the HTTP server for the review service.
type Server struct {
	cfg          config.ServerConfig
	deps         Deps
	logger       *slog.Logger
	router       chi.Router
	httpServer   *httpServer
	httpServerMu sync.RWMutex  // protects httpServer pointer
	ready        chan struct{} // closed when server is ready to accept connections
}

// New creates a new Server.
func New(cfg config.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: chi.NewRouter(),
		ready:  make(chan struct{}),
	}
	s.routes()
	return s
}

// Ready returns a channel that is closed when the server is ready to accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	r.Method(http.MethodPost, "/webhook/gitlab",
		webhook.NewGitLabHandler(s.deps.WebhookSecret, s.deps.Pipeline.HandleMergeRequestEvent, s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/sync", s.handleSyncProjects)
			r.Get("/{id}", s.handleGetProject)
			r.Get("/{id}/mrs", s.handleProjectMergeRequests)
		})
		r.Route("/mrs", func(r chi.Router) {
			r.Get("/", s.handleListMergeRequests)
			r.Get("/{id}", s.handleGetMergeRequest)
			r.Post("/{id}/rerun", s.handleRerun)
			r.Post("/{id}/recommendations", s.handleSendRecommendations)
			r.Get("/{id}/recommendations/preview", s.handlePreviewRecommendations)
		})
	})
}

// handleHealth responds with server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	database := "ok"
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		status = "degraded"
		database = err.Error()
	}

	active := 0
	if s.deps.Dispatcher != nil {
		active = s.deps.Dispatcher.Active()
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: status,
		Checks: map[string]any{
			"database":        database,
			"active_analyses": active,
		},
	})
}

// handleMetrics responds with current operational metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Get())
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaenox/client-hunter/internal/monitor"
	"github.com/xaenox/client-hunter/internal/storage"
	"github.com/xaenox/client-hunter/internal/telegram"
)

// Server is the thin HTTP surface around the monitoring engine: CRUD for
// templates, settings and leads, lifecycle toggles, and health/metrics.
type Server struct {
	store      storage.Storage
	scheduler  *monitor.Scheduler
	provider   telegram.ChatProvider
	logger     *zap.Logger
	httpServer *http.Server
}

func NewServer(port int, store storage.Storage, scheduler *monitor.Scheduler, provider telegram.ChatProvider, logger *zap.Logger) *Server {
	s := &Server{
		store:     store,
		scheduler: scheduler,
		provider:  provider,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/product-templates", func(r chi.Router) {
			r.Post("/", s.handleCreateTemplate)
			r.Get("/", s.handleListTemplates)
			r.Put("/{templateID}", s.handleUpdateTemplate)
			r.Delete("/{templateID}", s.handleDeleteTemplate)
		})

		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handleUpdateSettings)
			r.Post("/start", s.handleStartMonitoring)
			r.Post("/stop", s.handleStopMonitoring)
			r.Post("/scan", s.handleManualScan)
			r.Get("/stats", s.handleStats)
		})

		r.Route("/potential-clients", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Put("/{leadID}/status", s.handleUpdateLeadStatus)
		})
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

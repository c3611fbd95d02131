// Package server exposes one exploration session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	sheetmiddleware "github.com/KaramelBytes/sheetscope-cli/internal/server/middleware"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server
	config Config
}

type Dependencies struct {
	Session  *session.Session
	Exporter *export.Exporter
	Logger   zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	// MaxUploadBytes bounds the multipart body of an upload.
	MaxUploadBytes int64
	// TopN is the default size of the top-categories view.
	TopN int
	// ExportFormat is used when the export request names none.
	ExportFormat export.Format
	Dependencies Dependencies
}

// ConfigureRouter wires the API routes.
func ConfigureRouter(config Config) *chi.Mux {
	deps := config.Dependencies
	if deps.Exporter == nil {
		deps.Exporter = export.New()
	}
	h := &handler{
		session:   deps.Session,
		exporter:  deps.Exporter,
		maxUpload: config.MaxUploadBytes,
		topN:      config.TopN,
		format:    config.ExportFormat,
	}
	if h.format == "" {
		h.format = export.XLSX
	}

	router := chi.NewRouter()
	router.Use(sheetmiddleware.Logger(&deps.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/dataset", h.upload)
		r.Delete("/dataset", h.reset)
		r.Get("/summary", h.summary)
		r.Get("/columns", h.columns)
		r.Put("/filter", h.setFilter)
		r.Delete("/filter", h.clearFilter)
		r.Get("/views/timeseries", h.timeSeries)
		r.Get("/views/top", h.topCategories)
		r.Get("/views/category-means", h.categoryMeans)
		r.Get("/views/correlation", h.correlation)
		r.Get("/export", h.export)
	})
	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger
	return &WebAPI{
		router: router,
		logger: &logger,
		config: config,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the router, for tests and embedding.
func (w *WebAPI) Handler() http.Handler { return w.router }

// Start serves until the listener fails or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		timeout := w.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}

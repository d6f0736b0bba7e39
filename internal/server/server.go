// Package server exposes conversions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voyagen/stalker2m3u/internal/cache"
	"github.com/voyagen/stalker2m3u/internal/config"
	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/service"
	"github.com/voyagen/stalker2m3u/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	conv   *service.Converter
	store  store.Store
	redis  *cache.Redis // nil when REDIS_URL is not set
	cfg    *config.Config
	router chi.Router
	logger zerolog.Logger
}

// New creates a Server and registers routes. rds may be nil, in which case
// async conversions are unavailable. The converter must have a store
// configured.
func New(conv *service.Converter, cfg *config.Config, rds *cache.Redis) *Server {
	s := &Server{
		conv:   conv,
		store:  conv.Store(),
		redis:  rds,
		cfg:    cfg,
		router: chi.NewRouter(),
		logger: logging.WithComponent("http"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(withLogging(s.logger))
	r.Use(withRecovery(s.logger))
	r.Use(withCORS)

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.ConvertRateLimit > 0 {
			r.Use(rateLimit(s.cfg.ConvertRateLimit, time.Minute))
		}
		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/conversions", s.handleEnqueue)
	})

	r.Get("/api/conversions", s.handleListConversions)
	r.Route("/api/conversions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetConversion)
		r.Delete("/", s.handleDeleteConversion)
		r.Get("/playlist.m3u", s.handleDownloadPlaylist)
		r.Get("/entries", s.handleListEntries)
	})

	r.Get("/api/docs", handleSwaggerUI)
	r.Get("/api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Synchronous conversions of large portals take minutes.
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

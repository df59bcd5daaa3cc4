// Package server exposes the run archive over HTTP: archived runs and their rated
// articles as JSON, the rated dataset of a run as CSV and the latest run as RSS feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/grcnews/pkg/domain"
	"github.com/umputun/grcnews/pkg/history"
)

//go:generate moq -out mocks/archive.go -pkg mocks -skip-ensure -fmt goimports . Archive

// Server represents HTTP server instance
type Server struct {
	Config
	archive Archive

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Archive is read access to archived runs
type Archive interface {
	Runs(ctx context.Context, limit int) ([]history.Run, error)
	Rated(ctx context.Context, runID int64) ([]domain.RatedRecord, error)
}

// Config defines server parameters
type Config struct {
	Listen  string
	Timeout time.Duration
	BaseURL string // used in rss links, http://<listen> if empty
	Version string
	Debug   bool
}

// New initializes a new server instance
func New(cfg Config, archive Archive) *Server {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://" + strings.TrimPrefix(cfg.Listen, "http://")
	}
	s := &Server{
		Config:  cfg,
		archive: archive,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting server on %s", s.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: s.Timeout,
		WriteTimeout:      s.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s.lock.Lock()
		defer s.lock.Unlock()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("grcnews", "umputun", s.Version))
	s.router.Use(rest.Ping)

	if s.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /runs", s.runsHandler)
		r.HandleFunc("GET /runs/{id}/rated", s.ratedHandler)
		r.HandleFunc("GET /runs/{id}/rated.csv", s.ratedCSVHandler)
	})

	s.router.HandleFunc("GET /rss", s.rssHandler)
}

// renderJSON sends JSON response with status code
func renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response as JSON
func renderError(w http.ResponseWriter, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, code, rest.JSON{"error": errMsg})
}

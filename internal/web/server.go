// Package web serves health, metrics and the read-only download journal API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/runixer/mediagrab/internal/config"
	"github.com/runixer/mediagrab/internal/storage"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg     *config.Config
	journal storage.DownloadReader // nil when the journal is off
	logger  *slog.Logger
	router  chi.Router
}

// NewServer builds the router. journal may be nil, which leaves /api unmounted.
func NewServer(logger *slog.Logger, cfg *config.Config, journal storage.DownloadReader) *Server {
	s := &Server{
		cfg:     cfg,
		journal: journal,
		logger:  logger.With("component", "web_server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)

	r.Get("/healthz", instrumentHandler("healthz", s.healthzHandler))
	r.Handle("/metrics", promhttp.Handler())

	if s.journal != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(s.basicAuthMiddleware)
			if s.cfg.Server.RateLimit > 0 {
				r.Use(httprate.Limit(
					s.cfg.Server.RateLimit,
					time.Minute,
					httprate.WithKeyByIP(),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeError(w, http.StatusTooManyRequests, "too many requests, please try again later")
					}),
				))
			}
			r.Get("/downloads", instrumentHandler("downloads", s.downloadsHandler))
			r.Get("/downloads/summary", instrumentHandler("downloads_summary", s.summaryHandler))
		})
	}
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.cfg.Server.ListenPort,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("Starting web server", "port", s.cfg.Server.ListenPort, "journal_api", s.journal != nil)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Log healthz and metrics at debug level, other requests at info level
		if path == "/healthz" || path == "/metrics" {
			s.logger.Debug("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", r.RemoteAddr,
			)
		} else {
			s.logger.Info("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Server.Auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != s.cfg.Server.Auth.Username || pass != s.cfg.Server.Auth.Password {
			s.logger.Warn("Unauthorized API request", "path", r.URL.Path, "client_ip", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

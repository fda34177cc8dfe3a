// internal/server/server.go
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alexc/authgate/internal/log"
	"github.com/alexc/authgate/internal/notify"
	"github.com/alexc/authgate/internal/oauth"
)

// Config holds server configuration.
type Config struct {
	// BaseURL is the public base URL used to build default success and
	// error redirect targets. Empty means path-relative redirects.
	BaseURL string

	// AllowedRedirectURLs is the allow-list for caller-supplied success
	// URIs. Empty allows everything (development mode).
	AllowedRedirectURLs []string
}

// Server is the HTTP front end of the OAuth broker.
type Server struct {
	router              *chi.Mux
	registry            *oauth.Registry
	baseURL             string
	allowedRedirectURLs []string
	notifier            notify.Notifier

	httpServer *http.Server
}

// New creates a server for the given provider registry.
func New(registry *oauth.Registry, cfg Config) *Server {
	s := &Server{
		router:              chi.NewRouter(),
		registry:            registry,
		baseURL:             cfg.BaseURL,
		allowedRedirectURLs: cfg.AllowedRedirectURLs,
	}
	s.setupRoutes()
	return s
}

// SetNotifier attaches an optional notifier for completed authorizations.
func (s *Server) SetNotifier(n notify.Notifier) {
	s.notifier = n
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// CORS for the browser client that calls /init and /success.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	s.router.Use(middleware.Recoverer)
	s.router.Use(log.RequestLogger)

	s.router.Route("/auth/{provider}", func(r chi.Router) {
		r.Post("/init", s.handleInit)
		r.Get("/callback", s.handleCallback)
		r.Get("/success", s.handleSuccess)
		r.Get("/error", s.handleError)
	})

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.registry.Names(),
	})
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("server listening", "addr", addr, "providers", s.registry.Names())
	return s.httpServer.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

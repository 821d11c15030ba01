package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/woedy/ProxyHome/internal/api/graph"
	"github.com/woedy/ProxyHome/internal/auth"
	"github.com/woedy/ProxyHome/internal/config"
	"github.com/woedy/ProxyHome/internal/domain"

	// Registers the pipeline metrics with the default registry promhttp serves.
	_ "github.com/woedy/ProxyHome/internal/metrics"
)

// JobRunner is the slice of the fetch pipeline the API drives.
type JobRunner interface {
	EnqueueFetchJob(ctx context.Context, jobType string, validate bool) (domain.FetchJob, error)
	RevalidateStaleProxies(ctx context.Context) (int, error)
}

// Server wraps the HTTP server and mux for the ProxyHome API.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux

	settings config.Settings
	jobs     JobRunner
	redis    *redis.Client
}

// NewServer wires all routes. redisClient may be nil; the health and
// instance endpoints then report the single-instance view.
func NewServer(settings config.Settings, jobs JobRunner, redisClient *redis.Client) (*Server, error) {
	s := &Server{
		settings: settings,
		jobs:     jobs,
		redis:    redisClient,
	}

	graphHandler, err := graph.NewHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/proxies", listProxies)
	mux.HandleFunc("GET /api/proxies/stats", proxyStats)
	mux.HandleFunc("GET /api/proxies/export", exportProxies)
	mux.HandleFunc("GET /api/proxies/{id}", getProxy)
	mux.HandleFunc("GET /api/proxies/{id}/tests", listProxyTests)

	mux.HandleFunc("GET /api/jobs", listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", getJob)
	mux.Handle("POST /api/jobs/fetch", s.requireAuth(http.HandlerFunc(s.createFetchJob)))
	mux.Handle("POST /api/jobs/revalidate", s.requireAuth(http.HandlerFunc(s.revalidateProxies)))

	mux.HandleFunc("GET /api/sources", listSources)
	mux.HandleFunc("GET /api/instances", s.listInstances)

	mux.HandleFunc("POST /api/auth/token", s.issueToken)

	mux.Handle("POST /graphql", graphHandler)

	s.mux = mux
	s.httpServer = &http.Server{
		Addr:              settings.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// ListenAndServe starts the HTTP server. It blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// requireAuth guards mutating routes behind a bearer token minted by
// POST /api/auth/token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.VerifyRequest(r, s.settings.JWTSecret); err != nil {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

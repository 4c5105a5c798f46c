package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const probeTimeout = 2 * time.Second

// StatsFunc reports worker counters
type StatsFunc func() Stats

// Probe checks one dependency; a nil error means healthy
type Probe func(ctx context.Context) error

// HealthServer serves /health, /ready and /stats
type HealthServer struct {
	port    int
	probes  map[string]Probe
	stats   StatsFunc
	started time.Time
	logger  *zap.Logger
	server  *http.Server
}

// HealthResponse is the body of every health endpoint
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Stats  *Stats            `json:"stats,omitempty"`
	Uptime string            `json:"uptime,omitempty"`
}

// NewHealthServer creates a health server probing redisClient. stats may be nil.
func NewHealthServer(port int, redisClient *redis.Client, stats StatsFunc, logger *zap.Logger) *HealthServer {
	hs := &HealthServer{
		port:    port,
		probes:  make(map[string]Probe),
		stats:   stats,
		started: time.Now(),
		logger:  logger,
	}
	hs.AddProbe("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	return hs
}

// AddProbe registers a named dependency check run by /health and /ready
func (hs *HealthServer) AddProbe(name string, probe Probe) {
	hs.probes[name] = probe
}

// Handler returns the HTTP handler serving the health endpoints
func (hs *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	mux.HandleFunc("/stats", hs.handleStats)
	return mux
}

// Start listens on the configured port and serves in the background
func (hs *HealthServer) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", hs.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", hs.port, err)
	}

	hs.server = &http.Server{
		Handler:           hs.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	hs.logger.Info("starting health server", zap.Int("port", hs.port))

	go func() {
		if err := hs.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			hs.logger.Error("health server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down, waiting for open requests until ctx expires
func (hs *HealthServer) Stop(ctx context.Context) error {
	if hs.server == nil {
		return nil
	}
	hs.logger.Info("stopping health server")
	return hs.server.Shutdown(ctx)
}

// runProbes returns the per-probe status and whether all of them passed
func (hs *HealthServer) runProbes(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	names := make([]string, 0, len(hs.probes))
	for name := range hs.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := hs.probes[name](ctx); err != nil {
			checks[name] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}
	return checks, healthy
}

func (hs *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks, healthy := hs.runProbes(r.Context())
	if !healthy {
		hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Checks: checks})
}

func (hs *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, healthy := hs.runProbes(r.Context()); !healthy {
		hs.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "not ready"})
		return
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func (hs *HealthServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := Stats{}
	if hs.stats != nil {
		stats = hs.stats()
	}
	hs.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Stats:  &stats,
		Uptime: time.Since(hs.started).Round(time.Second).String(),
	})
}

func (hs *HealthServer) respondJSON(w http.ResponseWriter, statusCode int, body HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		hs.logger.Error("failed to encode response", zap.Error(err))
	}
}

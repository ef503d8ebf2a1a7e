package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus tracks coarse engine health for the /healthz endpoint.
type HealthStatus struct {
	mu          sync.RWMutex
	startedAt   time.Time
	lastCycleAt time.Time
	lastError   string
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{startedAt: time.Now()}
}

// SetCycleOK records a completed cycle.
func (h *HealthStatus) SetCycleOK(t time.Time) {
	h.mu.Lock()
	h.lastCycleAt = t
	h.lastError = ""
	h.mu.Unlock()
}

// SetCycleError records a failed cycle.
func (h *HealthStatus) SetCycleError(err error) {
	h.mu.Lock()
	h.lastError = err.Error()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if h.lastError != "" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	cycleAge := ""
	if !h.lastCycleAt.IsZero() {
		cycleAge = time.Since(h.lastCycleAt).Round(time.Millisecond).String()
	}

	body := struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		CycleAge  string `json:"cycle_age"`
		LastError string `json:"last_error,omitempty"`
	}{
		Status:    status,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		CycleAge:  cycleAge,
		LastError: h.lastError,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(body)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// Package server exposes the processor's health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 2 * time.Second

// Check tests one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// StatsFunc reports component statistics for /readyz.
type StatsFunc func(ctx context.Context) map[string]interface{}

// HealthHandler serves liveness and readiness.
type HealthHandler struct {
	mu      sync.RWMutex
	checks  map[string]Check
	stats   map[string]StatsFunc
	timeout time.Duration
}

// NewHealthHandler creates a handler with no checks registered.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checks:  make(map[string]Check),
		stats:   make(map[string]StatsFunc),
		timeout: DefaultCheckTimeout,
	}
}

// AddCheck registers a readiness check under name.
func (h *HealthHandler) AddCheck(name string, check Check) {
	h.mu.Lock()
	h.checks[name] = check
	h.mu.Unlock()
}

// AddStats registers a statistics source under name.
func (h *HealthHandler) AddStats(name string, fn StatsFunc) {
	h.mu.Lock()
	h.stats[name] = fn
	h.mu.Unlock()
}

// Health reports liveness. It never consults dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready runs every check concurrently and answers 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make(map[string]Check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	stats := make(map[string]StatsFunc, len(h.stats))
	for name, s := range h.stats {
		stats[name] = s
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
		ready   = true
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			status := "ok"
			if err := check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[name] = status
			if status != "ok" {
				ready = false
			}
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	body := map[string]interface{}{
		"status": "ready",
		"checks": results,
	}
	if len(stats) > 0 {
		collected := make(map[string]interface{}, len(stats))
		for name, fn := range stats {
			collected[name] = fn(ctx)
		}
		body["stats"] = collected
	}

	code := http.StatusOK
	if !ready {
		body["status"] = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

const healthTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Job table
	Jobs        map[string]int `json:"jobs"`
	InputBytes  int64          `json:"inputBytes"`
	OutputBytes int64          `json:"outputBytes"`

	HistoryEnabled bool   `json:"historyEnabled"`
	HistoryError   string `json:"historyError,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// ready reports whether the artifact directories can be reached.
func (h *Handlers) ready() error {
	for _, dir := range []string{h.layout.UploadDir, h.layout.OutputDir} {
		if _, err := filesystem.StatWithRetry(dir, h.retry); err != nil {
			return err
		}
	}
	return nil
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats()

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          h.ready() == nil,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Jobs:           stats.JobsByState,
		InputBytes:     stats.InputBytes,
		OutputBytes:    stats.OutputBytes,
		HistoryEnabled: h.history != nil,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if h.history != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := h.history.Ping(ctx); err != nil {
			response.HistoryError = err.Error()
			response.Status = statusDegraded
		}
	}

	status := http.StatusOK
	if !response.Ready {
		response.Status = statusUnhealthy
		status = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, status, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept jobs
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if err := h.ready(); err != nil {
		writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"glitzhit/internal/memory"
	"glitzhit/internal/metrics"
	"glitzhit/internal/workers"
)

// slotWait bounds how long a request queues for a worker slot.
const slotWait = 30 * time.Second

// retryAfterSeconds is sent with 503 responses from admission control.
const retryAfterSeconds = "30"

// SetMemoryMonitor enables memory-based admission control for new jobs.
func (h *Handlers) SetMemoryMonitor(m *memory.Monitor) {
	h.memory = m
}

func writeBusy(w http.ResponseWriter, reason, message string) {
	metrics.AdmissionRejectedTotal.WithLabelValues(reason).Inc()
	w.Header().Set("Retry-After", retryAfterSeconds)
	writeJSONError(w, message, http.StatusServiceUnavailable)
}

// admit reports whether a new job may be created, answering 503 if not.
func (h *Handlers) admit(w http.ResponseWriter) bool {
	if err := h.memory.Admit(); err != nil {
		writeBusy(w, "memory", "Server is low on memory, try again shortly")
		return false
	}
	return true
}

// acquire takes a slot in pool, answering 503 if none frees up in time.
// The caller must Release the slot when it returns true.
func (h *Handlers) acquire(w http.ResponseWriter, r *http.Request, pool *workers.Pool) bool {
	ctx, cancel := context.WithTimeout(r.Context(), slotWait)
	defer cancel()
	if err := pool.Acquire(ctx); err != nil {
		writeBusy(w, "busy", "Server is busy, try again shortly")
		return false
	}
	return true
}

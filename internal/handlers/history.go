package handlers

import (
	"net/http"
	"strconv"

	"glitzhit/internal/database"
	"glitzhit/internal/logging"
)

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Conversions []database.Conversion `json:"conversions"`
	Summary     map[string]int        `json:"summary"`
}

// GetHistory lists recent conversions, newest first.
// GET /api/history?limit=N
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "Conversion history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit := database.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, database.MaxHistoryLimit)
	}

	conversions, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logging.Error("history query failed: %v", err)
		writeJSONError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	summary, err := h.history.Summary(r.Context())
	if err != nil {
		logging.Error("history summary failed: %v", err)
		writeJSONError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	if conversions == nil {
		conversions = []database.Conversion{}
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, HistoryResponse{Conversions: conversions, Summary: summary})
}

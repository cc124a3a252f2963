package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/preview"
	"glitzhit/internal/transcoder"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, statusCode, map[string]string{"error": message})
}

// errorStatus maps a domain error to an HTTP status code.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, jobs.ErrNoActiveProcess):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrInvalidParameters),
		errors.Is(err, preview.ErrUnsupportedFormat),
		errors.Is(err, preview.ErrFrameOutOfRange),
		errors.Is(err, preview.ErrInvalidGeometry):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrAlreadySubscribed),
		errors.Is(err, jobs.ErrJobExists),
		errors.Is(err, jobs.ErrJobBusy),
		errors.Is(err, transcoder.ErrNoOutput):
		return http.StatusConflict
	case errors.Is(err, transcoder.ErrSpawn):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJobError writes err with the status errorStatus assigns to it.
// Internal errors are logged and replaced by a generic message.
func writeJobError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
		message = "Internal server error"
	}
	writeJSONError(w, message, status)
}

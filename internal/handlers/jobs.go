package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
	"glitzhit/internal/progress"
	"glitzhit/internal/streaming"

	"github.com/gorilla/mux"
)

// Cancel responses. The wording matches what browser clients already display.
const (
	cancelInitiatedMessage = "Job cancellation initiated."
	cancelNotFoundMessage  = "Job not found or already completed."
)

// StatusResponse is the body of the cancel endpoints.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ListJobs returns every job the store holds.
// GET /api/jobs
func (h *Handlers) ListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, h.store.List())
}

// GetJob returns a snapshot of one job.
// GET /api/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, job)
}

// DeleteJob reclaims the artifacts of a job that is not running.
// DELETE /api/jobs/{id}
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.Reclaim(id); err != nil {
		if errors.Is(err, jobs.ErrJobBusy) {
			writeJSONError(w, "Job is running; cancel it first", http.StatusConflict)
			return
		}
		writeJobError(w, err)
		return
	}
	logging.ForJob(id).Info("reclaimed on request")
	writeJSONStatusCode(w, http.StatusOK, StatusResponse{Status: "success", Message: "Job deleted."})
}

// CancelJob asks the encoder of a job to stop.
// POST /api/jobs/{id}/cancel
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, mux.Vars(r)["id"])
}

// CancelJobLegacy accepts {"job_id": "..."} in the body.
// POST /cancel-job
func (h *Handlers) CancelJobLegacy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<10)).Decode(&body); err != nil || body.JobID == "" {
		writeJSONStatusCode(w, http.StatusNotFound, StatusResponse{Status: "error", Message: cancelNotFoundMessage})
		return
	}
	h.cancel(w, body.JobID)
}

func (h *Handlers) cancel(w http.ResponseWriter, id string) {
	err := h.store.Cancel(id)
	switch {
	case err == nil:
		writeJSONStatusCode(w, http.StatusOK, StatusResponse{Status: "success", Message: cancelInitiatedMessage})
	case errors.Is(err, jobs.ErrNotFound), errors.Is(err, jobs.ErrNoActiveProcess):
		writeJSONStatusCode(w, http.StatusNotFound, StatusResponse{Status: "error", Message: cancelNotFoundMessage})
	default:
		logging.ForJob(id).Error("cancel failed: %v", err)
		writeJSONStatusCode(w, http.StatusInternalServerError, StatusResponse{Status: "error", Message: err.Error()})
	}
}

// StreamProgress starts the encoder of a job and relays its progress as
// server-sent events. Closing the stream does not stop the encoder.
// GET /api/jobs/{id}/progress
func (h *Handlers) StreamProgress(w http.ResponseWriter, r *http.Request) {
	h.streamProgress(w, r, mux.Vars(r)["id"])
}

// StreamProgressLegacy takes the job id from the query string.
// GET /stream-progress?job_id=...
func (h *Handlers) StreamProgressLegacy(w http.ResponseWriter, r *http.Request) {
	h.streamProgress(w, r, r.URL.Query().Get("job_id"))
}

func (h *Handlers) streamProgress(w http.ResponseWriter, r *http.Request, id string) {
	emitter, err := h.transcoder.Start(id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "Job not found.", http.StatusNotFound)
			return
		}
		writeJobError(w, err)
		return
	}
	defer emitter.Detach()

	metrics.ProgressSubscribers.Inc()
	defer metrics.ProgressSubscribers.Dec()

	ew := streaming.NewEventWriter(r.Context(), w, streaming.EventStreamConfig())
	defer func() {
		if err := ew.Close(); err != nil {
			logging.Debug("progress stream close: %v", err)
		}
	}()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	log := logging.ForJob(id)
	for {
		select {
		case ev, ok := <-emitter.Events():
			if !ok {
				return
			}
			if err := sendEvent(ew, ev); err != nil {
				log.Debug("progress subscriber gone: %v", err)
				return
			}
			if ev.Terminal() {
				return
			}
		case <-keepAlive.C:
			if err := ew.Comment("keepalive"); err != nil {
				log.Debug("progress subscriber gone: %v", err)
				return
			}
		case <-ew.Done():
			log.Debug("progress subscriber disconnected; encoder keeps running")
			return
		}
	}
}

// sendEvent frames one progress event.
func sendEvent(ew *streaming.EventWriter, ev progress.Event) error {
	switch ev.Kind {
	case progress.KindSuccess:
		return ew.Send("success", ev.Output)
	case progress.KindError:
		return ew.Send("error", ev.Message)
	default:
		return ew.Send("", strconv.Itoa(ev.Percent))
	}
}

package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/logging"
	"glitzhit/internal/preview"
	"glitzhit/internal/streaming"

	"github.com/gorilla/mux"
)

// DefaultPreviewSize is the edge length of a preview when none is requested.
const DefaultPreviewSize = 256

// GetVideo serves the encoded output of a succeeded job. Range requests are
// answered by http.ServeContent; full downloads are streamed with write
// timeouts so a stalled client cannot pin the handler.
// GET /api/jobs/{id}/video
func (h *Handlers) GetVideo(w http.ResponseWriter, r *http.Request) {
	job, path, err := h.transcoder.Output(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	f, err := filesystem.OpenWithRetry(path, h.retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "Output not found", http.StatusNotFound)
			return
		}
		writeJobError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeJobError(w, err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("Range") != "" || r.Method == http.MethodHead {
		http.ServeContent(w, r, job.OutputName, info.ModTime(), f)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Accept-Ranges", "bytes")
	if err := streaming.StreamWithTimeout(r.Context(), w, f, streaming.DefaultTimeoutWriterConfig()); err != nil {
		if streaming.IsClientError(err) {
			logging.ForJob(job.ID).Debug("video download ended early: %v", err)
			return
		}
		logging.ForJob(job.ID).Error("video download failed: %v", err)
	}
}

// GetAudio extracts the audio track of a succeeded job as WAV.
// GET /api/jobs/{id}/audio
func (h *Handlers) GetAudio(w http.ResponseWriter, r *http.Request) {
	job, path, err := h.transcoder.Output(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	filename := strings.TrimSuffix(job.OutputName, ".mp4") + ".wav"
	if err := h.transcoder.ExtractAudio(r.Context(), w, path, filename); err != nil {
		logging.ForJob(job.ID).Error("audio extraction failed: %v", err)
		// Headers are only set once the extractor has started.
		if w.Header().Get("Content-Type") != "audio/wav" {
			writeJobError(w, err)
		}
	}
}

// GetInfo probes the output of a succeeded job.
// GET /api/jobs/{id}/info
func (h *Handlers) GetInfo(w http.ResponseWriter, r *http.Request) {
	job, path, err := h.transcoder.Output(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	info, err := h.transcoder.Probe(r.Context(), path)
	if err != nil {
		logging.ForJob(job.ID).Error("probe failed: %v", err)
		writeJobError(w, err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, info)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// GetPreview renders one frame of a job's raw input as an image.
// GET /api/jobs/{id}/preview?size=N&format=png&frame=K
func (h *Handlers) GetPreview(w http.ResponseWriter, r *http.Request) {
	job, err := h.store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeJobError(w, err)
		return
	}

	size, err := queryInt(r, "size", DefaultPreviewSize)
	if err != nil {
		writeJSONError(w, "size must be an integer", http.StatusBadRequest)
		return
	}
	frame, err := queryInt(r, "frame", 0)
	if err != nil {
		writeJSONError(w, "frame must be an integer", http.StatusBadRequest)
		return
	}
	format, err := preview.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJobError(w, err)
		return
	}

	if !h.acquire(w, r, h.previewPool) {
		return
	}
	defer h.previewPool.Release()

	img, err := preview.ReadFrame(job.InputPath, int64(frame), job.Params, h.retry)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSONError(w, "Input no longer available", http.StatusNotFound)
			return
		}
		writeJobError(w, err)
		return
	}
	img, err = preview.Scale(img, size, size)
	if err != nil {
		writeJobError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := preview.Encode(&buf, img, format); err != nil {
		writeJobError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "private, max-age=60")
	if _, err := buf.WriteTo(w); err != nil {
		logging.ForJob(job.ID).Debug("preview write failed: %v", err)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
	"glitzhit/internal/synth"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// SynthesizeRequest is the body of POST /api/jobs/synthesize.
type SynthesizeRequest struct {
	Algorithm        string  `json:"algorithm"`
	Duration         float64 `json:"duration"`
	InputWidth       int     `json:"inputWidth"`
	InputHeight      int     `json:"inputHeight"`
	Framerate        float64 `json:"framerate"`
	OutputResolution int     `json:"outputResolution"`
	synth.Dials
}

// UnmarshalJSON defaults the frequency multiplier to 1 when it is omitted.
func (r *SynthesizeRequest) UnmarshalJSON(data []byte) error {
	type plain SynthesizeRequest
	req := plain{Dials: synth.DefaultDials()}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	*r = SynthesizeRequest(req)
	return nil
}

// CreateResponse is returned by both job creation endpoints.
type CreateResponse struct {
	JobID string `json:"job_id"`
	Bytes int64  `json:"bytes,omitempty"`
}

func invalidField(field, value string) error {
	return fmt.Errorf("%w: %s %q is not a valid number", jobs.ErrInvalidParameters, field, value)
}

func formInt(r *http.Request, field string) (int, error) {
	value := strings.TrimSpace(r.FormValue(field))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, invalidField(field, value)
	}
	return n, nil
}

func formFloat(r *http.Request, field string) (float64, error) {
	value := strings.TrimSpace(r.FormValue(field))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, invalidField(field, value)
	}
	return f, nil
}

// uploadParams reads the job parameters from a parsed multipart form.
func (h *Handlers) uploadParams(r *http.Request) (jobs.Params, error) {
	params := jobs.Params{
		PixelFormat: strings.TrimSpace(r.FormValue("pixelFormat")),
		Audio:       h.defaultAudio,
	}

	var err error
	if params.Width, err = formInt(r, "inputWidth"); err != nil {
		return params, err
	}
	if params.Height, err = formInt(r, "inputHeight"); err != nil {
		return params, err
	}
	if params.FrameRate, err = formFloat(r, "framerate"); err != nil {
		return params, err
	}
	size, err := formInt(r, "outputResolution")
	if err != nil {
		return params, err
	}
	params.Scale = jobs.SquareScale(size)

	if v := strings.TrimSpace(r.FormValue("audioFormat")); v != "" {
		params.Audio.SampleFormat = v
	}
	if r.FormValue("audioRate") != "" {
		if params.Audio.SampleRate, err = formInt(r, "audioRate"); err != nil {
			return params, err
		}
	}
	if r.FormValue("audioChannels") != "" {
		if params.Audio.Channels, err = formInt(r, "audioChannels"); err != nil {
			return params, err
		}
	}

	return params, params.Validate()
}

// UploadJob creates a job from an uploaded byte stream.
// POST /api/jobs/upload
func (h *Handlers) UploadJob(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	params, err := h.uploadParams(r)
	if err != nil {
		writeJobError(w, err)
		return
	}

	file, header, err := r.FormFile("inputFile")
	if err != nil {
		writeJSONError(w, "inputFile is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	id := jobs.NewID()
	inputPath := h.layout.InputPath(id)
	written, err := writeInput(inputPath, func(dst io.Writer) (int64, error) {
		return io.Copy(dst, file)
	})
	if err != nil {
		logging.ForJob(id).Error("failed to store upload %q: %v", header.Filename, err)
		writeJSONError(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}

	logging.ForJob(id).Debug("stored upload %q (%d bytes)", header.Filename, written)
	h.createJob(w, id, inputPath, params, CreateResponse{JobID: id})
}

// SynthesizeJob creates a job whose input is produced by the waveform synthesizer.
// POST /api/jobs/synthesize
func (h *Handlers) SynthesizeJob(w http.ResponseWriter, r *http.Request) {
	if !h.admit(w) {
		return
	}

	var req SynthesizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params, count, err := h.synthParams(req)
	if err != nil {
		writeJobError(w, err)
		return
	}

	if !h.acquire(w, r, h.synthPool) {
		return
	}
	defer h.synthPool.Release()

	id := jobs.NewID()
	inputPath := h.layout.InputPath(id)
	alg := params.Synthesis.Algorithm
	start := time.Now()
	written, err := writeInput(inputPath, func(dst io.Writer) (int64, error) {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		return synth.Generate(dst, alg, count, params.Synthesis.Dials, rng)
	})
	metrics.SynthDuration.WithLabelValues(string(alg)).Observe(time.Since(start).Seconds())
	if err != nil {
		logging.ForJob(id).Error("synthesis failed: %v", err)
		writeJSONError(w, "Failed to synthesize input", http.StatusInternalServerError)
		return
	}
	metrics.SynthBytesTotal.WithLabelValues(string(alg)).Add(float64(written))

	h.createJob(w, id, inputPath, params, CreateResponse{JobID: id, Bytes: written})
}

func (h *Handlers) synthParams(req SynthesizeRequest) (jobs.Params, int64, error) {
	alg, err := synth.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return jobs.Params{}, 0, fmt.Errorf("%w: %v", jobs.ErrInvalidParameters, err)
	}
	if err := req.Dials.Validate(); err != nil {
		return jobs.Params{}, 0, fmt.Errorf("%w: %v", jobs.ErrInvalidParameters, err)
	}
	if req.Duration <= 0 {
		return jobs.Params{}, 0, fmt.Errorf("%w: duration must be positive, got %v", jobs.ErrInvalidParameters, req.Duration)
	}

	params := jobs.Params{
		PixelFormat: "rgb24",
		Width:       req.InputWidth,
		Height:      req.InputHeight,
		FrameRate:   req.Framerate,
		Scale:       jobs.SquareScale(req.OutputResolution),
		Audio:       h.defaultAudio,
		Synthesis: &jobs.SynthesisParams{
			Algorithm: alg,
			Duration:  req.Duration,
			Dials:     req.Dials,
		},
	}
	if err := params.Validate(); err != nil {
		return params, 0, err
	}

	count := synth.ByteCount(req.Duration, req.Framerate, req.InputWidth, req.InputHeight)
	if count <= 0 {
		return params, 0, fmt.Errorf("%w: duration %v at %v fps is less than one frame", jobs.ErrInvalidParameters, req.Duration, req.Framerate)
	}
	if count > h.maxSynthBytes {
		return params, 0, fmt.Errorf("%w: %d bytes requested, limit is %d", jobs.ErrInvalidParameters, count, h.maxSynthBytes)
	}
	return params, count, nil
}

// createJob registers a job whose input has been written, removing the input
// again if the store rejects it.
func (h *Handlers) createJob(w http.ResponseWriter, id, inputPath string, params jobs.Params, resp CreateResponse) {
	if _, err := h.store.Create(id, inputPath, params); err != nil {
		if rmErr := filesystem.RemoveWithRetry(inputPath, h.retry); rmErr != nil {
			logging.ForJob(id).Warn("failed to remove rejected input: %v", rmErr)
		}
		writeJobError(w, err)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, resp)
}

// writeInput creates path and fills it with fill. A partial file is removed.
func writeInput(path string, fill func(io.Writer) (int64, error)) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := fill(f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove partial input %s: %v", path, rmErr)
		}
		return n, err
	}
	return n, nil
}

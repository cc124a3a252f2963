// Package handlers provides HTTP request handlers for the glitzhit API.
//
// It includes handlers for:
//   - Job creation from uploaded bytes or synthesized waveforms
//   - Job listing, inspection, cancellation and deletion
//   - Server-sent progress streams that start the encoder
//   - Encoded video download, WAV extraction, probing and frame previews
//   - Conversion history backed by SQLite
//   - Health checks, version information and Prometheus metrics
//
// Routes taking a job id read it from gorilla/mux path variables. The
// form-era endpoints (/start-conversion, /cancel-job, /stream-progress) are
// served by the same handlers and keep their original response bodies.
//
// Job creation is refused with 503 and a Retry-After header while the
// memory monitor reports pressure. Synthesis and preview rendering hold a
// slot from a bounded worker pool for their duration.
package handlers

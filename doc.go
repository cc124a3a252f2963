// Package main provides the entry point for the glitzhit server.
//
// Glitzhit turns arbitrary bytes into a short video. Each input byte is read
// twice by the encoder: once as raw video pixels and once as raw audio
// samples, and the two streams are muxed into an H.264/AAC mp4. Inputs are
// either uploaded or produced by the built-in waveform synthesizer.
//
// # Application Lifecycle
//
// The application follows a structured initialization sequence:
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Metrics: Registers Prometheus collectors and the filesystem observer
//  3. Database Initialization: Opens the SQLite conversion history (optional)
//  4. Component Initialization:
//     - Job Store: Holds the single active job and sweeps superseded artifacts
//     - Transcoder: Launches and supervises ffmpeg for each job
//     - Metrics Collector: Samples the job table every 15 seconds
//  5. HTTP Server Setup: Configures routes, middleware, and starts server
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # Job Flow
//
// A client creates a job with POST /api/jobs/upload (multipart) or
// POST /api/jobs/synthesize (JSON) and receives its id. Opening
// GET /api/jobs/{id}/progress starts the encoder and streams percentages as
// server-sent events, ending with a success or error event. The encoded
// file is then available from /api/jobs/{id}/video and /static/output/.
// Creating a job supersedes every existing one: a running encoder is
// stopped and the old input and output files are removed.
//
// # Servers
//
// Two HTTP servers run concurrently:
//
//   - Main Server (default :5000): Job API, health checks, static output
//   - Metrics Server (default :9090): Prometheus /metrics endpoint
//
// # Environment Variables
//
// See package startup for the full list. The most common are:
//
//	PORT            HTTP listen port (default 5000)
//	UPLOAD_DIR      Directory for raw inputs (default uploads)
//	OUTPUT_DIR      Directory for encoded outputs (default static/output)
//	DATABASE_DIR    Directory for history.db (default data)
//	FFMPEG_PATH     ffmpeg binary (default ffmpeg)
//	LOG_LEVEL       debug, info, warn or error
//	MEMORY_LIMIT    Container memory limit used to derive GOMEMLIMIT
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server stops the metrics collector and memory
// monitor, asks every running encoder to exit and sweeps job artifacts,
// shuts down both HTTP servers within 30 seconds and closes the database.
package main

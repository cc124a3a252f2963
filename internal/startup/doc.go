// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - PORT: HTTP server port (default: 5000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - UPLOAD_DIR: Job input artifacts (default: uploads)
//   - OUTPUT_DIR: Job output artifacts (default: static/output)
//   - DATABASE_DIR: Conversion history database (default: data)
//   - FFMPEG_PATH, FFPROBE_PATH: Encoder and probe binaries
//   - VIDEO_CODEC, AUDIO_CODEC: Output codecs (default: libx264, aac)
//   - AUDIO_SAMPLE_FORMAT, AUDIO_SAMPLE_RATE, AUDIO_CHANNELS: Default raw audio interpretation
//   - MAX_UPLOAD_BYTES, MAX_SYNTH_BYTES: Input size caps (default: 512 MiB)
//   - PROGRESS_BUFFER: Progress events buffered per job (default: 32)
//   - SYNTH_WORKERS, PREVIEW_WORKERS: Concurrent synthesis and preview requests
//     (default: one per CPU up to 4, and 1.5 per CPU up to 8)
//   - LOG_LEVEL, DEBUG, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging toggles
//
// The upload and output directories are required and must be writable.
// An unwritable database directory disables conversion history only.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup

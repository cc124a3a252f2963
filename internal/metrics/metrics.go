package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ProgressSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_progress_subscribers",
			Help: "Number of open progress event streams",
		},
	)
)

// Job lifecycle metrics
var (
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_jobs_created_total",
			Help: "Total number of conversion jobs created, by input source",
		},
		[]string{"source"}, // "upload", "synth"
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_jobs_finished_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"state"}, // "succeeded", "failed", "cancelled"
	)

	JobsSupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glitzhit_jobs_superseded_total",
			Help: "Total number of jobs evicted by the creation of a newer job",
		},
	)

	JobsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glitzhit_jobs_tracked",
			Help: "Number of job records currently held, by state",
		},
		[]string{"state"},
	)

	CancelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_cancel_requests_total",
			Help: "Total number of cancellation requests, by result",
		},
		[]string{"result"}, // "signalled", "noop", "not_found", "error"
	)

	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glitzhit_sweeps_total",
			Help: "Total number of job records swept",
		},
	)

	SweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glitzhit_sweep_errors_total",
			Help: "Total number of artifact removals that failed during a sweep",
		},
	)

	ArtifactBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glitzhit_artifact_bytes",
			Help: "Bytes held by job artifacts on disk",
		},
		[]string{"kind"}, // "input", "output"
	)
)

// Encoder metrics
var (
	EncoderRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_encoder_running",
			Help: "Number of encoder processes currently running",
		},
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_encode_duration_seconds",
			Help:    "Wall time of encoder processes, by terminal state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"state"},
	)

	EncoderSpawnFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glitzhit_encoder_spawn_failures_total",
			Help: "Total number of encoder processes that could not be started",
		},
	)

	ProgressEventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "glitzhit_progress_events_dropped_total",
			Help: "Progress events discarded because the subscriber had gone away",
		},
	)

	AudioExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_audio_extractions_total",
			Help: "Total number of audio extraction invocations",
		},
		[]string{"status"},
	)
)

// Synthesis metrics
var (
	SynthBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_synth_bytes_total",
			Help: "Total number of bytes produced by the waveform synthesizer",
		},
		[]string{"algorithm"},
	)

	SynthDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_synth_duration_seconds",
			Help:    "Time spent synthesizing input streams",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"algorithm"},
	)
)

// History database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_db_queries_total",
			Help: "Total number of history database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_db_query_duration_seconds",
			Help:    "History database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations on job artifacts",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after ESTALE",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glitzhit_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Memory and admission metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 when unset)",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_memory_usage_ratio",
			Help: "Go heap allocation as a ratio of the memory limit",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "glitzhit_memory_pressure",
			Help: "1 while new jobs are refused because of memory pressure",
		},
	)

	AdmissionRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glitzhit_admission_rejected_total",
			Help: "Requests refused before doing any work, by reason",
		},
		[]string{"reason"}, // "memory", "busy"
	)

	WorkerSlotsInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "glitzhit_worker_slots_in_use",
			Help: "CPU-bound request slots currently held, by pool",
		},
		[]string{"pool"}, // "synth", "preview"
	)
)

// AppInfo exposes build information as labels on a constant gauge.
var AppInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "glitzhit_app_info",
		Help: "Application build information",
	},
	[]string{"version", "commit", "go_version"},
)

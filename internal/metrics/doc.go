// Package metrics provides Prometheus instrumentation for the glitzhit
// conversion service.
//
// All metrics are prefixed with "glitzhit_" and registered with promauto, so
// importing the package is enough to expose them on the default registry.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//   - ProgressSubscribers: Gauge of open progress event streams
//
// ## Job Metrics
//
//   - JobsCreatedTotal: jobs created per input source (upload, synth)
//   - JobsFinishedTotal: terminal transitions per state
//   - JobsSupersededTotal: jobs evicted when a newer job was created
//   - JobsTracked: records held per state, sampled by Collector
//   - CancelRequestsTotal: cancellation requests by result
//   - SweepsTotal / SweepErrorsTotal: artifact reclamation
//   - ArtifactBytes: bytes on disk for inputs and outputs, sampled by Collector
//
// ## Encoder Metrics
//
//   - EncoderRunning: gauge of live encoder processes
//   - EncodeDuration: wall time per terminal state
//   - EncoderSpawnFailuresTotal: processes that could not be started
//   - ProgressEventsDropped: events discarded after a subscriber left
//
// ## Synthesis, History and Filesystem Metrics
//
//   - SynthBytesTotal / SynthDuration per algorithm
//   - DBQueryTotal / DBQueryDuration for the history database
//   - Filesystem* counters fed by the filesystem.Observer implementation
//
// ## Admission Metrics
//
//   - GoMemLimit, MemoryUsageRatio, MemoryPressure from the memory monitor
//   - AdmissionRejectedTotal: requests refused with 503 by reason (memory, busy)
//   - WorkerSlotsInUse: held slots per worker pool (synth, preview)
//
// Call InitializeMetrics once at startup so every label combination is
// exported from the first scrape.
package metrics

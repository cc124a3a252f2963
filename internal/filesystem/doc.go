/*
Package filesystem wraps the handful of filesystem operations the conversion
service performs on job artifacts (stat, open, remove) with retry logic for
NFS stale file handle errors.

Upload and output directories are frequently mounted from network storage.
The cleanup sweeper removes artifacts with RemoveWithRetry so that a transient
ESTALE does not leave a stale input or output behind; any other error fails
immediately and is reported to the caller for logging.

	err := filesystem.RemoveWithRetry(job.InputPath, filesystem.DefaultRetryConfig())

Only ESTALE triggers retries, with exponential backoff (50ms, 100ms, 200ms by
default, capped at MaxBackoff). RemoveWithRetry treats a missing file as
success so sweeping is idempotent.

Metrics are recorded through an Observer installed with SetObserver; the
metrics package provides the Prometheus implementation. Paths are labeled by
volume through a VolumeResolver ("uploads", "output", "database").
*/
package filesystem

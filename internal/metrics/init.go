package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, source := range []string{"upload", "synth"} {
		JobsCreatedTotal.WithLabelValues(source)
	}

	for _, state := range []string{"succeeded", "failed", "cancelled"} {
		JobsFinishedTotal.WithLabelValues(state)
		EncodeDuration.WithLabelValues(state)
	}

	for _, state := range []string{"created", "running", "succeeded", "failed", "cancelled"} {
		JobsTracked.WithLabelValues(state)
	}

	for _, result := range []string{"signalled", "noop", "not_found", "error"} {
		CancelRequestsTotal.WithLabelValues(result)
	}

	for _, kind := range []string{"input", "output"} {
		ArtifactBytes.WithLabelValues(kind)
	}

	for _, status := range []string{"success", "error"} {
		AudioExtractionsTotal.WithLabelValues(status)
	}

	for _, alg := range []string{"sine", "square", "triangle", "sawtooth", "random"} {
		SynthBytesTotal.WithLabelValues(alg)
		SynthDuration.WithLabelValues(alg)
	}

	for _, op := range []string{"record_outcome", "recent", "summary", "initialize_schema"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, reason := range []string{"memory", "busy"} {
		AdmissionRejectedTotal.WithLabelValues(reason)
	}

	for _, pool := range []string{"synth", "preview"} {
		WorkerSlotsInUse.WithLabelValues(pool)
	}

	volumes := []string{"uploads", "output", "database", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "open", "remove"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}

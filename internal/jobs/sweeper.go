package jobs

import (
	"glitzhit/internal/filesystem"
	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
)

// Sweeper removes job artifacts from disk. Removal failures are logged and
// counted but never returned: a failed removal must not keep a record alive.
type Sweeper struct {
	retry  filesystem.RetryConfig
	remove func(string, filesystem.RetryConfig) error
}

// NewSweeper creates a sweeper using retry for every removal.
func NewSweeper(retry filesystem.RetryConfig) *Sweeper {
	return &Sweeper{retry: retry, remove: filesystem.RemoveWithRetry}
}

// RemoveArtifacts deletes the input and output of job if present and
// returns the number of removals that failed.
func (s *Sweeper) RemoveArtifacts(job Job) int {
	failures := 0
	log := logging.ForJob(job.ID)

	for _, path := range []string{job.InputPath, job.OutputPath} {
		if path == "" {
			continue
		}
		if err := s.remove(path, s.retry); err != nil {
			failures++
			metrics.SweepErrorsTotal.Inc()
			log.Warn("failed to remove artifact %s: %v", path, err)
			continue
		}
		log.Debug("removed artifact %s", path)
	}

	return failures
}

package jobs

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
)

// record is the store-owned state of one job. It never leaves the store;
// callers receive Job snapshots.
type record struct {
	job     Job
	process Process
}

func (r *record) snapshot() Job {
	j := r.job
	j.HasProcess = r.process != nil
	return j
}

// Store is the in-memory job table. Every mutation happens under one mutex,
// and at most one job is held at a time: Create evicts all existing jobs.
type Store struct {
	mu      sync.Mutex
	jobs    map[string]*record
	layout  Layout
	sweeper *Sweeper
	now     func() time.Time
}

// NewStore creates an empty job table.
func NewStore(layout Layout, sweeper *Sweeper) *Store {
	return &Store{
		jobs:    make(map[string]*record),
		layout:  layout,
		sweeper: sweeper,
		now:     time.Now,
	}
}

// Layout returns the artifact layout used by the store.
func (s *Store) Layout() Layout {
	return s.layout
}

// Create registers a job whose input already exists at inputPath. Every
// existing job is superseded first: its encoder is asked to stop and its
// record is removed before the new record becomes visible. Their artifacts
// are deleted before Create returns.
func (s *Store) Create(id, inputPath string, params Params) (Job, error) {
	if err := params.Validate(); err != nil {
		return Job{}, err
	}
	if id == "" {
		return Job{}, fmt.Errorf("%w: empty job id", ErrInvalidParameters)
	}

	s.mu.Lock()
	if _, exists := s.jobs[id]; exists {
		s.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrJobExists, id)
	}

	swept := make([]Job, 0, len(s.jobs))
	for oldID, rec := range s.jobs {
		swept = append(swept, s.supersedeLocked(oldID, rec))
	}

	rec := &record{job: Job{
		ID:         id,
		InputPath:  inputPath,
		OutputPath: s.layout.OutputPath(id),
		OutputName: s.layout.OutputName(id),
		Params:     params,
		State:      StateCreated,
		CreatedAt:  s.now(),
	}}
	s.jobs[id] = rec
	job := rec.snapshot()
	s.mu.Unlock()

	s.removeArtifacts(swept...)

	metrics.JobsCreatedTotal.WithLabelValues(params.Source()).Inc()
	logging.ForJob(id).Info("created (%s input, %dx%d %s @ %v fps)",
		params.Source(), params.Width, params.Height, params.PixelFormat, params.FrameRate)

	return job, nil
}

func (s *Store) supersedeLocked(id string, rec *record) Job {
	log := logging.ForJob(id)
	if rec.process != nil {
		rec.job.CancelRequested = true
		if err := rec.process.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Warn("failed to stop superseded encoder (pid %d): %v", rec.process.Pid(), err)
		}
	}
	job := s.sweepLocked(id, rec)
	metrics.JobsSupersededTotal.Inc()
	log.Info("superseded by a newer job")
	return job
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.snapshot(), nil
}

// List returns snapshots of every job ordered by creation time.
func (s *Store) List() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, rec := range s.jobs {
		out = append(out, rec.snapshot())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Subscribe claims the single progress subscription of a job.
func (s *Store) Subscribe(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.job.Subscribed {
		return Job{}, fmt.Errorf("%w: %s", ErrAlreadySubscribed, id)
	}
	rec.job.Subscribed = true
	return rec.snapshot(), nil
}

// Attach stores the encoder handle of a job and moves it to running.
// A job accepts exactly one handle over its lifetime.
func (s *Store) Attach(id string, p Process, totalFrames int64) error {
	if p == nil {
		return fmt.Errorf("attach %s: nil process", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.process != nil || !rec.job.StartedAt.IsZero() {
		return fmt.Errorf("%w: %s", ErrProcessAttached, id)
	}
	if !rec.job.State.CanTransitionTo(StateRunning) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.job.State, StateRunning)
	}

	rec.process = p
	rec.job.State = StateRunning
	rec.job.StartedAt = s.now()
	rec.job.TotalFrames = totalFrames
	logging.ForJob(id).Info("running (pid %d, %d frames expected)", p.Pid(), totalFrames)
	return nil
}

// Progress records the latest frame counter and percentage of a running job.
func (s *Store) Progress(id string, frame int64, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.jobs[id]; ok && rec.job.State == StateRunning {
		rec.job.Frame = frame
		rec.job.Percent = percent
	}
}

// Finish moves a job to a terminal state and releases its process handle.
func (s *Store) Finish(id string, state State, message string) (Job, error) {
	if !state.Terminal() {
		return Job{}, fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !rec.job.State.CanTransitionTo(state) {
		return Job{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.job.State, state)
	}

	rec.process = nil
	rec.job.State = state
	rec.job.Message = message
	rec.job.FinishedAt = s.now()
	if state == StateSucceeded {
		rec.job.Percent = 100
	}
	logging.ForJob(id).Info("finished: %s", state)
	return rec.snapshot(), nil
}

// Cancel asks the encoder of a job to stop. It does not change the job's
// state; the orchestrator does that once it observes the exit status.
// A job that already finished is a no-op; a job that never started
// returns ErrNoActiveProcess.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		metrics.CancelRequestsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	log := logging.ForJob(id)
	if rec.process == nil {
		if rec.job.State.Terminal() {
			metrics.CancelRequestsTotal.WithLabelValues("noop").Inc()
			log.Debug("cancel ignored: already %s", rec.job.State)
			return nil
		}
		metrics.CancelRequestsTotal.WithLabelValues("not_found").Inc()
		return fmt.Errorf("%w: %s", ErrNoActiveProcess, id)
	}

	rec.job.CancelRequested = true
	log.Info("cancellation requested (pid %d)", rec.process.Pid())
	if err := rec.process.Terminate(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			metrics.CancelRequestsTotal.WithLabelValues("noop").Inc()
			return nil
		}
		metrics.CancelRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("terminate encoder for %s: %w", id, err)
	}
	metrics.CancelRequestsTotal.WithLabelValues("signalled").Inc()
	return nil
}

// Remove deletes the record of a job without touching its artifacts.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// Sweep removes the artifacts and the record of a job. Sweeping an unknown
// or already swept job is a no-op and returns false.
func (s *Store) Sweep(id string) bool {
	s.mu.Lock()
	rec, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	job := s.sweepLocked(id, rec)
	s.mu.Unlock()

	s.removeArtifacts(job)
	return true
}

// Reclaim sweeps a job on request. A job whose encoder is running, or that
// has a subscriber and has not finished yet, returns ErrJobBusy and is kept.
func (s *Store) Reclaim(id string) (Job, error) {
	s.mu.Lock()
	rec, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.process != nil || rec.job.State == StateRunning ||
		(rec.job.Subscribed && !rec.job.State.Terminal()) {
		job := rec.snapshot()
		s.mu.Unlock()
		return job, fmt.Errorf("%w: %s", ErrJobBusy, id)
	}
	job := s.sweepLocked(id, rec)
	s.mu.Unlock()

	s.removeArtifacts(job)
	return job, nil
}

// sweepLocked drops the record of a job and returns it so the caller can
// delete its artifacts once the lock is released.
func (s *Store) sweepLocked(id string, rec *record) Job {
	delete(s.jobs, id)
	metrics.SweepsTotal.Inc()
	logging.ForJob(id).Debug("swept")
	return rec.job
}

// removeArtifacts deletes the files of swept jobs. Removal retries with
// backoff, so it must not run under s.mu.
func (s *Store) removeArtifacts(swept ...Job) {
	if s.sweeper == nil {
		return
	}
	for _, job := range swept {
		s.sweeper.RemoveArtifacts(job)
	}
}

// Shutdown stops every running encoder and sweeps every job.
func (s *Store) Shutdown() {
	s.mu.Lock()
	swept := make([]Job, 0, len(s.jobs))
	for id, rec := range s.jobs {
		if rec.process != nil {
			rec.job.CancelRequested = true
			logging.ForJob(id).Info("stopping encoder (pid %d) for shutdown", rec.process.Pid())
			if err := rec.process.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logging.ForJob(id).Warn("failed to stop encoder: %v", err)
			}
		}
		swept = append(swept, s.sweepLocked(id, rec))
	}
	s.mu.Unlock()

	s.removeArtifacts(swept...)
}

// Stats implements metrics.StatsProvider.
func (s *Store) Stats() metrics.Stats {
	snapshot := s.List()

	stats := metrics.Stats{JobsByState: make(map[string]int)}
	for _, job := range snapshot {
		stats.JobsByState[string(job.State)]++
		if info, err := os.Stat(job.InputPath); err == nil {
			stats.InputBytes += info.Size()
		}
		if info, err := os.Stat(job.OutputPath); err == nil {
			stats.OutputBytes += info.Size()
		}
	}
	return stats
}

package transcoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
	"glitzhit/internal/logging"
	"glitzhit/internal/metrics"
	"glitzhit/internal/progress"
	"glitzhit/internal/streaming"
)

// stderrTailLines is how many non-progress lines are kept for failure logs.
const stderrTailLines = 20

// progressField matches the key=value lines written by -progress.
var progressField = regexp.MustCompile(`^[a-z0-9_]+=\S*$`)

// Config holds the encoder settings shared by every job.
type Config struct {
	FFmpegPath        string
	FFprobePath       string
	VideoCodec        string
	AudioCodec        string
	OutputPixelFormat string
	// Audio is used when a job does not carry its own audio parameters.
	Audio          jobs.AudioParams
	ProgressBuffer int
	Retry          filesystem.RetryConfig
}

// DefaultConfig returns the settings for an x264/aac mp4 with u8 mono audio.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		VideoCodec:        "libx264",
		AudioCodec:        "aac",
		OutputPixelFormat: "yuv420p",
		Audio:             jobs.DefaultAudioParams(),
		ProgressBuffer:    progress.DefaultBuffer,
		Retry:             filesystem.DefaultRetryConfig(),
	}
}

// Recorder persists terminal job outcomes.
type Recorder interface {
	RecordOutcome(ctx context.Context, job jobs.Job, exitCode int) error
}

// Transcoder launches and supervises encoder processes for the jobs in a store.
type Transcoder struct {
	store   *jobs.Store
	sweeper *jobs.Sweeper
	config  Config
	parser  progress.Parser

	recorderMu sync.RWMutex
	recorder   Recorder

	streamConfig streaming.TimeoutWriterConfig

	workers sync.WaitGroup
}

// New creates a Transcoder for store.
func New(store *jobs.Store, config Config) *Transcoder {
	return &Transcoder{
		store:        store,
		sweeper:      jobs.NewSweeper(config.Retry),
		config:       config,
		parser:       progress.FrameParser{},
		streamConfig: streaming.DefaultTimeoutWriterConfig(),
	}
}

// Config returns the encoder settings.
func (t *Transcoder) Config() Config {
	return t.config
}

// SetRecorder sets where terminal outcomes are persisted. A nil recorder
// disables history.
func (t *Transcoder) SetRecorder(r Recorder) {
	t.recorderMu.Lock()
	t.recorder = r
	t.recorderMu.Unlock()
}

// Start claims the progress subscription of a job and launches its encoder.
// Lookup and subscription errors are returned directly; everything that
// happens after that, including a failed launch, arrives as events on the
// returned emitter.
func (t *Transcoder) Start(id string) (*progress.Emitter, error) {
	job, err := t.store.Subscribe(id)
	if err != nil {
		return nil, err
	}

	log := logging.ForJob(id)
	emitter := progress.NewEmitter(t.config.ProgressBuffer)

	info, err := filesystem.StatWithRetry(job.InputPath, t.config.Retry)
	if err != nil {
		t.failBeforeStart(job, emitter, fmt.Errorf("%w: input unavailable: %v", ErrSpawn, err))
		return emitter, nil
	}
	totalFrames := jobs.TotalFrames(info.Size(), job.Params.FrameSize())

	args := t.BuildArgs(job)
	log.Debug("%s %s", t.config.FFmpegPath, strings.Join(args, " "))

	cmd := newCommand(t.config.FFmpegPath, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.failBeforeStart(job, emitter, fmt.Errorf("%w: %v", ErrSpawn, err))
		return emitter, nil
	}
	if err := cmd.Start(); err != nil {
		t.failBeforeStart(job, emitter, fmt.Errorf("%w: %v", ErrSpawn, err))
		return emitter, nil
	}

	proc := process{cmd: cmd}
	if err := t.store.Attach(id, proc, totalFrames); err != nil {
		// Superseded between Subscribe and Attach.
		log.Warn("discarding encoder (pid %d): %v", proc.Pid(), err)
		_ = proc.Terminate()
		_, _ = io.Copy(io.Discard, stderr)
		_ = cmd.Wait()
		t.sweeper.RemoveArtifacts(job)
		emitter.Finish(progress.Cancelled())
		return emitter, nil
	}

	metrics.EncoderRunning.Inc()
	t.workers.Add(1)
	go t.supervise(job, proc, stderr, emitter, totalFrames, time.Now())

	return emitter, nil
}

// failBeforeStart finishes a job whose encoder never ran.
func (t *Transcoder) failBeforeStart(job jobs.Job, emitter *progress.Emitter, cause error) {
	log := logging.ForJob(job.ID)
	log.Error("%v", cause)
	metrics.EncoderSpawnFailuresTotal.Inc()

	finished, err := t.store.Finish(job.ID, jobs.StateFailed, cause.Error())
	if err != nil {
		log.Warn("could not mark job failed: %v", err)
		finished = job
		finished.State = jobs.StateFailed
		finished.Message = cause.Error()
	}
	metrics.JobsFinishedTotal.WithLabelValues(string(jobs.StateFailed)).Inc()
	t.record(finished, -1)

	if !t.store.Sweep(job.ID) {
		t.sweeper.RemoveArtifacts(job)
	}
	emitter.Finish(progress.Failure(cause.Error()))
}

// supervise owns the encoder from launch until its terminal event.
func (t *Transcoder) supervise(job jobs.Job, proc process, stderr io.Reader, emitter *progress.Emitter, totalFrames int64, started time.Time) {
	defer t.workers.Done()
	log := logging.ForJob(job.ID)

	tail := t.readProgress(job.ID, stderr, emitter, totalFrames)
	waitErr := proc.cmd.Wait()
	metrics.EncoderRunning.Dec()

	current, lookupErr := t.store.Get(job.ID)
	superseded := errors.Is(lookupErr, jobs.ErrNotFound)
	cancelRequested := superseded || current.CancelRequested

	state, code := ClassifyExit(waitErr, cancelRequested)
	if superseded && state != jobs.StateCancelled {
		log.Debug("superseded encoder exited as %s (code %d)", state, code)
		state = jobs.StateCancelled
	}

	var message string
	var event progress.Event
	switch state {
	case jobs.StateSucceeded:
		event = progress.Success(job.OutputName)
	case jobs.StateCancelled:
		message = progress.CancelledMessage
		event = progress.Cancelled()
	default:
		message = fmt.Sprintf("FFmpeg failed with code %d. Check server logs.", code)
		event = progress.Failure(message)
		log.Error("%v: exit code %d (%v)", ErrEncode, code, waitErr)
		for _, line := range tail.lines() {
			log.Error("ffmpeg: %s", line)
		}
	}

	duration := time.Since(started)
	metrics.JobsFinishedTotal.WithLabelValues(string(state)).Inc()
	metrics.EncodeDuration.WithLabelValues(string(state)).Observe(duration.Seconds())
	log.Info("encoder exited after %v: %s (code %d)", duration.Round(time.Millisecond), state, code)

	finished := job
	if superseded {
		finished.State = state
		finished.Message = message
		finished.FinishedAt = time.Now()
		// The eviction already swept; catch anything written since.
		t.sweeper.RemoveArtifacts(job)
	} else {
		var err error
		finished, err = t.store.Finish(job.ID, state, message)
		if err != nil {
			log.Error("could not record terminal state %s: %v", state, err)
			finished = current
			finished.State = state
		}
		if state != jobs.StateSucceeded {
			t.store.Sweep(job.ID)
		}
	}

	t.record(finished, code)
	emitter.Finish(event)
}

// readProgress forwards frame counters until stderr closes and returns the
// last diagnostic lines that were not progress markers.
func (t *Transcoder) readProgress(id string, stderr io.Reader, emitter *progress.Emitter, totalFrames int64) *lineTail {
	tail := newLineTail(stderrTailLines)

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(progress.ScanLines)

	for scanner.Scan() {
		line := scanner.Text()
		frame, ok := t.parser.ParseFrame(line)
		if !ok {
			if line = strings.TrimSpace(line); line != "" && !progressField.MatchString(line) {
				tail.add(line)
			}
			continue
		}

		pct := progress.Percent(frame, totalFrames)
		t.store.Progress(id, frame, pct)
		emitter.Progress(pct)
	}

	if err := scanner.Err(); err != nil {
		logging.ForJob(id).Warn("stopped reading encoder output: %v", err)
		// Keep draining so the encoder never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, stderr)
	}

	return tail
}

func (t *Transcoder) record(job jobs.Job, exitCode int) {
	t.recorderMu.RLock()
	r := t.recorder
	t.recorderMu.RUnlock()
	if r == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.RecordOutcome(ctx, job, exitCode); err != nil {
		logging.ForJob(job.ID).Warn("failed to record outcome: %v", err)
	}
}

// Cleanup stops every running encoder, sweeps every job, and waits up to
// timeout for the supervising goroutines to finish.
func (t *Transcoder) Cleanup(timeout time.Duration) bool {
	t.store.Shutdown()

	done := make(chan struct{})
	go func() {
		t.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		logging.Warn("Timed out waiting for encoders to exit")
		return false
	}
}

// lineTail keeps the last n lines added.
type lineTail struct {
	buf  []string
	next int
	full bool
}

func newLineTail(n int) *lineTail {
	return &lineTail{buf: make([]string, n)}
}

func (l *lineTail) add(line string) {
	l.buf[l.next] = line
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

func (l *lineTail) lines() []string {
	if !l.full {
		return append([]string(nil), l.buf[:l.next]...)
	}
	return append(append([]string(nil), l.buf[l.next:]...), l.buf[:l.next]...)
}

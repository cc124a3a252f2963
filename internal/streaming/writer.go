package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"glitzhit/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single write, or the whole stream,
	// exceeded its configured time limit.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed or its context ended.
	ErrStreamCanceled = errors.New("stream canceled")
)

// TimeoutWriterConfig configures the timeout writer behavior
type TimeoutWriterConfig struct {
	// WriteTimeout bounds a single write to the client.
	WriteTimeout time.Duration
	// IdleTimeout is the longest gap allowed between successful writes (0 = no limit).
	IdleTimeout time.Duration
	// MaxDuration is the absolute maximum streaming duration (0 = unlimited)
	MaxDuration time.Duration
	// ChunkSize splits large writes and flushes after each chunk (0 = write as received)
	ChunkSize int
}

// DefaultTimeoutWriterConfig returns the settings used for binary downloads.
func DefaultTimeoutWriterConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// EventStreamConfig returns the settings used for progress streams. Encoders
// can go quiet for a long time between frames, so idle detection is off and
// only individual writes are bounded.
func EventStreamConfig() TimeoutWriterConfig {
	return TimeoutWriterConfig{
		WriteTimeout: 10 * time.Second,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so that a stalled client
// cannot hold the writing goroutine forever.
type TimeoutWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	config  TimeoutWriterConfig

	mu           sync.Mutex
	startTime    time.Time
	lastWrite    time.Time
	bytesWritten int64
	closed       bool
}

// NewTimeoutWriter creates a timeout-protected writer bound to ctx.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config TimeoutWriterConfig) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	now := time.Now()

	tw := &TimeoutWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: now,
		lastWrite: now,
	}
	if flusher, ok := w.(http.Flusher); ok {
		tw.flusher = flusher
	}

	if config.IdleTimeout > 0 {
		go tw.idleChecker()
	}

	return tw
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	if err := tw.ctx.Err(); err != nil {
		return 0, tw.contextError()
	}

	if tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration {
		return 0, ErrWriteTimeout
	}

	if tw.config.ChunkSize <= 0 || len(p) <= tw.config.ChunkSize {
		return tw.writeWithTimeout(p)
	}

	total := 0
	for len(p) > 0 {
		if tw.ctx.Err() != nil {
			return total, tw.contextError()
		}

		size := min(tw.config.ChunkSize, len(p))
		n, err := tw.writeWithTimeout(p[:size])
		total += n
		if err != nil {
			return total, err
		}
		p = p[size:]
		tw.Flush()
	}
	return total, nil
}

// Flush sends buffered data to the client if the response supports it.
func (tw *TimeoutWriter) Flush() {
	if tw.flusher != nil {
		tw.flusher.Flush()
	}
}

func (tw *TimeoutWriter) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := tw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	var timeout <-chan time.Time
	if tw.config.WriteTimeout > 0 {
		timer := time.NewTimer(tw.config.WriteTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case result := <-resultCh:
		if result.err == nil {
			tw.mu.Lock()
			tw.lastWrite = time.Now()
			tw.bytesWritten += int64(result.n)
			tw.mu.Unlock()
		}
		return result.n, result.err

	case <-timeout:
		tw.cancel()
		return 0, ErrWriteTimeout

	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

func (tw *TimeoutWriter) idleChecker() {
	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			tw.mu.Unlock()

			if closed {
				return
			}
			if idle > tw.config.IdleTimeout {
				logging.Warn("Stream idle timeout exceeded: %v", idle)
				tw.cancel()
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}

func (tw *TimeoutWriter) contextError() error {
	if errors.Is(tw.ctx.Err(), context.Canceled) {
		return ErrClientGone
	}
	return ErrStreamCanceled
}

// Close marks the writer as closed. Further writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if !tw.closed {
		tw.closed = true
		tw.cancel()
	}
	return nil
}

// Stats returns the bytes written so far and the time since the writer was created.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// StreamWithTimeout copies r to the response with timeout protection.
func StreamWithTimeout(ctx context.Context, w http.ResponseWriter, r io.Reader, config TimeoutWriterConfig) error {
	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, err := io.Copy(tw, r)

	bytesWritten, duration := tw.Stats()
	logging.Debug("Stream completed: %d bytes in %v", bytesWritten, duration)

	return err
}

// IsClientError reports whether err only means the client went away or stalled.
func IsClientError(err error) bool {
	return errors.Is(err, ErrClientGone) || errors.Is(err, ErrWriteTimeout) || errors.Is(err, ErrStreamCanceled)
}

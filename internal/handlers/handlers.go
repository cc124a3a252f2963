package handlers

import (
	"context"
	"time"

	"glitzhit/internal/database"
	"glitzhit/internal/filesystem"
	"glitzhit/internal/jobs"
	"glitzhit/internal/memory"
	"glitzhit/internal/startup"
	"glitzhit/internal/transcoder"
	"glitzhit/internal/workers"
)

// DefaultKeepAlive is the interval between comment lines on an idle progress stream.
const DefaultKeepAlive = 15 * time.Second

// History is the read side of the conversion history.
type History interface {
	Recent(ctx context.Context, limit int) ([]database.Conversion, error)
	Summary(ctx context.Context) (map[string]int, error)
	Ping(ctx context.Context) error
}

// Handlers serves the job API.
type Handlers struct {
	store      *jobs.Store
	transcoder *transcoder.Transcoder
	history    History
	layout     jobs.Layout
	retry      filesystem.RetryConfig

	memory      *memory.Monitor
	synthPool   *workers.Pool
	previewPool *workers.Pool

	defaultAudio   jobs.AudioParams
	maxUploadBytes int64
	maxSynthBytes  int64
	keepAlive      time.Duration
	startTime      time.Time
}

// New creates the handlers. history may be nil when conversion history is disabled.
func New(store *jobs.Store, trans *transcoder.Transcoder, history History, config *startup.Config) *Handlers {
	return &Handlers{
		store:      store,
		transcoder: trans,
		history:    history,
		layout:     store.Layout(),
		retry:      trans.Config().Retry,
		defaultAudio: jobs.AudioParams{
			SampleFormat: config.AudioSampleFormat,
			SampleRate:   config.AudioSampleRate,
			Channels:     config.AudioChannels,
		},
		maxUploadBytes: config.MaxUploadBytes,
		maxSynthBytes:  config.MaxSynthBytes,
		synthPool:      workers.NewPool("synth", config.SynthWorkers),
		previewPool:    workers.NewPool("preview", config.PreviewWorkers),
		keepAlive:      DefaultKeepAlive,
		startTime:      time.Now(),
	}
}

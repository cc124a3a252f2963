package jobs

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Process is the handle of a running encoder. Terminate requests a graceful stop.
type Process interface {
	Terminate() error
	Pid() int
}

// Job is a point-in-time copy of a job record. Mutating it has no effect on the store.
type Job struct {
	ID         string    `json:"id"`
	InputPath  string    `json:"-"`
	OutputPath string    `json:"-"`
	OutputName string    `json:"outputName"`
	Params     Params    `json:"params"`
	State      State     `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`

	// HasProcess is true while an encoder handle is attached.
	HasProcess bool `json:"hasProcess"`
	// CancelRequested is set when this service asked the encoder to stop.
	CancelRequested bool `json:"cancelRequested"`
	Subscribed      bool `json:"subscribed"`

	TotalFrames int64  `json:"totalFrames"`
	Frame       int64  `json:"frame"`
	Percent     int    `json:"percent"`
	Message     string `json:"message,omitempty"`
}

// NewID returns a fresh job identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// Layout decides where job artifacts live on disk.
type Layout struct {
	UploadDir string
	OutputDir string
}

// InputPath is where the raw input bytes for id are stored.
func (l Layout) InputPath(id string) string {
	return filepath.Join(l.UploadDir, id+".dat")
}

// OutputName is the file name of the encoded output, as reported to clients.
func (l Layout) OutputName(id string) string {
	return id + ".mp4"
}

// OutputPath is where the encoder writes the output for id.
func (l Layout) OutputPath(id string) string {
	return filepath.Join(l.OutputDir, l.OutputName(id))
}

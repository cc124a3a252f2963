package progress

import "glitzhit/internal/jobs"

// Kind distinguishes percentage updates from terminal events.
type Kind string

// Event kinds.
const (
	KindProgress Kind = "progress"
	KindSuccess  Kind = "success"
	KindError    Kind = "error"
)

// CancelledMessage is the client-facing message for a job stopped on request.
const CancelledMessage = "Processing canceled by user."

// Event is one message on a job's progress channel.
type Event struct {
	Kind    Kind
	Percent int
	// Output is the output identifier carried by a success event.
	Output string
	// Message is the human-readable reason carried by an error event.
	Message string
	// State is the job state a terminal event reports.
	State jobs.State
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Kind != KindProgress
}

// Success builds the terminal event for a finished job.
func Success(output string) Event {
	return Event{Kind: KindSuccess, Percent: 100, Output: output, State: jobs.StateSucceeded}
}

// Failure builds the terminal event for a job that failed.
func Failure(message string) Event {
	return Event{Kind: KindError, Message: message, State: jobs.StateFailed}
}

// Cancelled builds the terminal event for a job stopped on request.
func Cancelled() Event {
	return Event{Kind: KindError, Message: CancelledMessage, State: jobs.StateCancelled}
}

package jobs

import "errors"

// Sentinel errors returned by the job store. Callers match them with errors.Is.
var (
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidParameters reports missing or malformed job parameters.
	ErrInvalidParameters = errors.New("invalid job parameters")

	// ErrNoActiveProcess reports a cancellation for a job whose encoder never started.
	ErrNoActiveProcess = errors.New("job has no active process")

	// ErrAlreadySubscribed reports a second progress subscription for the same job.
	ErrAlreadySubscribed = errors.New("job already has a progress subscriber")

	// ErrProcessAttached reports an attempt to attach a second process handle to a job.
	ErrProcessAttached = errors.New("job already has a process handle")

	// ErrInvalidTransition reports a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrJobBusy reports a reclaim of a job whose encoder is running or about to start.
	ErrJobBusy = errors.New("job is running")

	// ErrJobExists reports a create with an id that is already in the table.
	ErrJobExists = errors.New("job already exists")
)

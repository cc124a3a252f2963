package jobs

// State is the lifecycle position of a job.
type State string

// Job states. Succeeded, Failed and Cancelled are terminal.
const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> next is a legal lifecycle step.
// A created job may fail directly when its encoder cannot be spawned.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateCreated:
		return next == StateRunning || next == StateFailed
	case StateRunning:
		return next.Terminal()
	}
	return false
}

func (s State) String() string {
	return string(s)
}

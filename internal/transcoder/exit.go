package transcoder

import (
	"errors"
	"os/exec"
	"syscall"

	"glitzhit/internal/jobs"
)

// Exit codes that mean the encoder was stopped rather than failing on its own.
const (
	exitSIGTERM = 128 + 15
	exitSIGKILL = 128 + 9
	// ffmpeg traps SIGTERM and exits 255 after closing its output.
	exitInterrupted = 255
)

// ClassifyExit maps the result of cmd.Wait to a terminal job state and the
// exit code to report (-1 when the process did not exit normally).
//
// Termination by SIGTERM or SIGKILL always counts as cancelled, since this
// service is assumed to be the only sender of those signals to its encoders.
// Exit status 255 counts as cancelled only when cancelRequested is set;
// otherwise it is an ordinary failure.
func ClassifyExit(waitErr error, cancelRequested bool) (jobs.State, int) {
	if waitErr == nil {
		return jobs.StateSucceeded, 0
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return jobs.StateFailed, -1
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		switch ws.Signal() {
		case syscall.SIGTERM, syscall.SIGKILL:
			return jobs.StateCancelled, -1
		}
		return jobs.StateFailed, -1
	}

	code := exitErr.ExitCode()
	switch {
	case code == exitSIGTERM, code == exitSIGKILL:
		return jobs.StateCancelled, code
	case code == exitInterrupted && cancelRequested:
		return jobs.StateCancelled, code
	}
	return jobs.StateFailed, code
}

package transcoder

import (
	"os/exec"
	"runtime"
	"syscall"
)

// newCommand builds encoder commands. Tests replace it.
var newCommand = exec.Command

// process adapts a started exec.Cmd to jobs.Process.
type process struct {
	cmd *exec.Cmd
}

func (p process) Pid() int {
	return p.cmd.Process.Pid
}

// Terminate asks the encoder to stop. ffmpeg finishes the current packet and
// closes its output on SIGTERM; Windows has no equivalent, so the process is killed.
func (p process) Terminate() error {
	if runtime.GOOS == "windows" {
		return p.cmd.Process.Kill()
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

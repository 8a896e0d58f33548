//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/cockroachdb/errors"
)

// configureProcess puts the generator in its own process group so that
// killing it also stops the node processes it spawns.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		// The group is gone; fall back to the leader in case it was never
		// made a group leader.
		return p.Kill()
	}
	return err
}

//go:build windows

package supervisor

import (
	"os"
	"os/exec"
)

func configureProcess(*exec.Cmd) {}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return os.ErrProcessDone
	}
	return p.Kill()
}

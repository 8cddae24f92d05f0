//go:build unix

package toolchain

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the tool in its own process group and kills the
// whole group on cancellation, so children of wrapper scripts die too.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

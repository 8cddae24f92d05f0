//go:build !unix

package toolchain

import "os/exec"

// killProcessGroup keeps the default cancellation; WaitDelay still bounds the wait.
func killProcessGroup(*exec.Cmd) {}

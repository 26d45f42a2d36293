//go:build unix

package sysexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// killProcessGroup makes c the leader of a new process group and, on
// context cancellation, kills the whole group. rsync forks a receiver and
// a generator which would otherwise keep files on the destination open.
func killProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return unix.Kill(-c.Process.Pid, unix.SIGKILL)
	}
}

//go:build unix

package procman

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// detach puts the child in its own process group so that it outlives the
// caller and a terminal interrupt does not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// alive reports whether pid runs as a server started by detach. Such a
// server leads its own process group; a live pid that does not has been
// reused by an unrelated process.
func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return false
	}
	pgid, err := unix.Getpgid(pid)
	return err == nil && pgid == pid
}

// terminate asks the server's process group to exit. Only the group is
// signalled.
func terminate(pid int) error {
	return unix.Kill(-pid, unix.SIGTERM)
}

func kill(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}

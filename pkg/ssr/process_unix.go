//go:build !windows

package ssr

import (
	"os"
	"os/exec"
	"syscall"
)

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessTree kills the renderer's process group, then any descendants
// that left it. Descendants are collected first, while the parent links
// still point at the renderer.
func killProcessTree(p *os.Process) error {
	escaped := descendants(int32(p.Pid))

	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err != nil {
		err = p.Kill()
	}

	for _, d := range escaped {
		_ = d.Kill()
	}
	return err
}

// killProcessGroup reaps stragglers after the group leader has exited.
func killProcessGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

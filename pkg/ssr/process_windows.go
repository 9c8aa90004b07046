//go:build windows

package ssr

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}

// killProcessTree kills the renderer and every descendant. Windows has no
// process group kill, so descendants are collected and killed one by one.
func killProcessTree(p *os.Process) error {
	escaped := descendants(int32(p.Pid))
	err := p.Kill()
	for _, d := range escaped {
		_ = d.Kill()
	}
	return err
}

func killProcessGroup(int) {}

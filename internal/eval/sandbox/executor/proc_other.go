//go:build !linux

package executor

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

func terminateProcessGroup(pid int) {
	signalProcess(pid, os.Interrupt)
}

func killProcessGroup(pid int) {
	signalProcess(pid, os.Kill)
}

func signalProcess(pid int, sig os.Signal) {
	if pid <= 0 {
		return
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	_ = proc.Signal(sig)
}

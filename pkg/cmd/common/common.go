package common

import (
	"os"
	"syscall"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/internal/utils"
)

func IsDaemonRunning() bool {
	pid, err := utils.ReadPidFile(settings.PidFile)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process exists
	return process.Signal(syscall.Signal(0)) == nil
}

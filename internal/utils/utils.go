package utils

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

func WritePidFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

func ReadPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid PID file %s", path)
	}

	return pid, nil
}

// FileInfo describes a report file for listings: its size and age, or
// "missing" when it is gone.
func FileInfo(path string, now time.Time) (size, age string) {
	info, err := os.Stat(path)
	if err != nil {
		return "missing", "-"
	}
	if info.IsDir() {
		size = "dir"
	} else {
		size = humanize.Bytes(uint64(info.Size()))
	}

	return size, humanize.RelTime(info.ModTime(), now, "ago", "from now")
}

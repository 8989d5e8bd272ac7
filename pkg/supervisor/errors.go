package supervisor

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotRunning      = errors.New("no target process is running")
	ErrUnknownStrategy = errors.New("unknown profiling strategy")
)

// ToolNotFoundError is returned when no candidate resolves a profiler tool.
type ToolNotFoundError struct {
	Tool  string
	Tried []string
}

func (e *ToolNotFoundError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("%s not found", e.Tool)
	}
	return fmt.Sprintf("%s not found (tried %s)", e.Tool, strings.Join(e.Tried, ", "))
}

// LaunchFailedError is returned when the target or a control process
// could not be started.
type LaunchFailedError struct {
	Step     string
	ExitCode int
	Err      error
}

func (e *LaunchFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("failed to %s: exit code %d", e.Step, e.ExitCode)
}

func (e *LaunchFailedError) Unwrap() error {
	return e.Err
}

// ReportGenerationError carries the output of a failed report invocation.
type ReportGenerationError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ReportGenerationError) Error() string {
	msg := fmt.Sprintf("report generation exited with code %d", e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// UnsupportedArchitectureError is returned for targets that are neither
// 32-bit nor 64-bit x86 or ARM binaries.
type UnsupportedArchitectureError struct {
	Path    string
	Machine string
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("%s: unsupported architecture %s", e.Path, e.Machine)
}

// AlreadyProfilingError is returned by Start while a launch is active.
type AlreadyProfilingError struct {
	State State
}

func (e *AlreadyProfilingError) Error() string {
	return fmt.Sprintf("already profiling (%s)", e.State)
}

package supervisor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Control commands of the sampling tool.
const (
	samplingStart     = "/start:sample"
	samplingOutput    = "/output:"
	samplingWaitStart = "/waitstart"
	samplingShutdown  = "/shutdown"
)

// SamplingDaemon profiles a target with a trace control tool: the trace
// is started and awaited before the target runs, and shut down once the
// target has exited.
type SamplingDaemon struct {
	*process
}

func NewSamplingDaemon(locator *Locator, opts ...Option) *SamplingDaemon {
	return &SamplingDaemon{process: newProcess("sampling", locator, opts...)}
}

// monitor is the trace started for one launch.
type monitor struct {
	tool   string
	cmd    *exec.Cmd
	waited chan error
	stderr bytes.Buffer
}

func (s *SamplingDaemon) Start(ctx context.Context, l Launch) error {
	tool, err := s.begin(l)
	if err != nil {
		return err
	}
	if l.Output == "" {
		s.setState(StateIdle)
		return &LaunchFailedError{Step: "start trace", Err: errors.New("no output file")}
	}

	m, err := s.startTrace(ctx, tool, l.Output)
	if err != nil {
		s.setState(StateIdle)
		return err
	}

	target := s.command(l, l.Exe, l.Args...)
	if err := s.startTarget(target, func(exitCode int, _ error) Result {
		return s.finalize(m, l.Output, exitCode)
	}); err != nil {
		return s.abort(m, err)
	}

	return nil
}

// startTrace begins the trace and blocks until the tool reports it is
// ready. A trace that is not ready is torn down.
func (s *SamplingDaemon) startTrace(ctx context.Context, tool, output string) (*monitor, error) {
	m := &monitor{tool: tool, waited: make(chan error, 1)}
	m.cmd = exec.Command(tool, samplingStart, samplingOutput+output)
	m.cmd.Stderr = &m.stderr
	if err := m.cmd.Start(); err != nil {
		return nil, &LaunchFailedError{Step: "start trace", Err: err}
	}
	go func() {
		m.waited <- m.cmd.Wait()
	}()
	s.logger.Debug().Str("tool", tool).Str("output", output).Msg("trace started")

	_, stderr, exitCode, err := runTool(ctx, tool, samplingWaitStart)
	if err != nil || exitCode != 0 {
		launchErr := &LaunchFailedError{Step: "wait for trace start", ExitCode: exitCode, Err: err}
		if err == nil && strings.TrimSpace(stderr) != "" {
			launchErr.Err = errors.New(strings.TrimSpace(stderr))
		}
		return nil, s.abort(m, launchErr)
	}
	s.logger.Debug().Msg("trace ready")

	return m, nil
}

// abort tears a partially started trace down and returns cause together
// with any teardown failure.
func (s *SamplingDaemon) abort(m *monitor, cause error) error {
	s.setState(StateIdle)

	if err := s.shutdown(m); err != nil {
		s.logger.Debug().Err(err).Msg("failed to tear down trace")
		return multierror.Append(cause, err)
	}

	return cause
}

// shutdown stops the trace and reaps the control process.
func (s *SamplingDaemon) shutdown(m *monitor) error {
	var result error

	_, stderr, exitCode, err := runTool(context.Background(), m.tool, samplingShutdown)
	switch {
	case err != nil:
		result = multierror.Append(result, errors.Wrap(err, "failed to shut down trace"))
	case exitCode != 0:
		result = multierror.Append(result, errors.Errorf("trace shutdown exited with code %d: %s", exitCode, strings.TrimSpace(stderr)))
	}
	if err := s.waitOrKill(m.cmd, m.waited); err != nil {
		result = multierror.Append(result, err)
	}

	return result
}

func (s *SamplingDaemon) finalize(m *monitor, output string, exitCode int) Result {
	result := Result{ExitCode: exitCode}

	// A failed shutdown is reported, the trace file may still be usable.
	if err := s.shutdown(m); err != nil {
		s.logger.Warn().Err(err).Msg("failed to stop trace")
		result.Warnings = append(result.Warnings, err)
	}
	if _, err := os.Stat(output); err != nil {
		result.Err = errors.Wrapf(err, "no trace written to %s", output)
		return result
	}
	result.Report = output

	return result
}

var _ Supervisor = (*SamplingDaemon)(nil)

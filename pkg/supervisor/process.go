package supervisor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// process holds what both strategies share: the launch state machine,
// the target process and its termination.
type process struct {
	mu     sync.Mutex
	state  State
	target *exec.Cmd
	// done is closed when the target has been waited for.
	done   chan struct{}
	exited chan Result

	locator   *Locator
	stdout    io.Writer
	stderr    io.Writer
	grace     time.Duration
	checkArch func(path string) (Arch, error)
	logger    log.Logger
}

func newProcess(component string, locator *Locator, opts ...Option) *process {
	p := &process{
		state:     StateIdle,
		exited:    make(chan Result, 1),
		locator:   locator,
		grace:     defaultGracePeriod,
		checkArch: CheckArch,
		logger:    log.Nop(),
	}
	for _, f := range opts {
		f(p)
	}
	p.logger = p.logger.With().Str("component", component).Logger()

	return p
}

func (p *process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *process) Exited() <-chan Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *process) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Debug().Stringer("state", s).Msg("state changed")
}

// begin moves an idle or exited supervisor to launching, checks the
// target and locates the tool.
func (p *process) begin(l Launch) (string, error) {
	p.mu.Lock()
	if p.state.Active() {
		state := p.state
		p.mu.Unlock()
		return "", &AlreadyProfilingError{State: state}
	}
	p.state = StateLaunching
	p.exited = make(chan Result, 1)
	p.done = make(chan struct{})
	p.target = nil
	p.mu.Unlock()

	tool, err := p.prepare(l)
	if err != nil {
		p.setState(StateIdle)
		return "", err
	}

	return tool, nil
}

func (p *process) prepare(l Launch) (string, error) {
	if l.Exe == "" {
		return "", &LaunchFailedError{Step: "start target", Err: errors.New("no executable")}
	}
	if p.checkArch != nil {
		arch, err := p.checkArch(l.Exe)
		if err != nil {
			return "", err
		}
		p.logger.Debug().Str("exe", l.Exe).Stringer("arch", arch).Msg("target checked")
	}
	if p.locator == nil {
		return "", &ToolNotFoundError{Tool: "profiler"}
	}

	return p.locator.Locate()
}

// command builds the command of a process started for the target.
func (p *process) command(l Launch, exe string, args ...string) *exec.Cmd {
	cmd := exec.Command(exe, args...)
	cmd.Dir = l.WorkDir
	cmd.Env = l.Env
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr

	return cmd
}

// startTarget starts cmd as the supervised process and watches it until
// it exits, then runs finalize off the caller goroutine.
func (p *process) startTarget(cmd *exec.Cmd, finalize func(exitCode int, waitErr error) Result) error {
	if err := cmd.Start(); err != nil {
		return &LaunchFailedError{Step: "start target", Err: err}
	}

	p.mu.Lock()
	p.target = cmd
	done := p.done
	exited := p.exited
	p.mu.Unlock()
	p.setState(StateRunning)
	p.logger.Info().Int("pid", cmd.Process.Pid).Str("exe", cmd.Path).Msg("target started")

	go func() {
		waitErr := cmd.Wait()
		close(done)
		exitCode := -1
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		p.logger.Info().Int("exit-code", exitCode).Msg("target exited")

		p.setState(StateFinalizing)
		result := p.safeFinalize(finalize, exitCode, waitErr)
		p.setState(StateExited)
		exited <- result
	}()

	return nil
}

// safeFinalize turns a panic of the exit path into the result error.
func (p *process) safeFinalize(finalize func(int, error) Result, exitCode int, waitErr error) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("exit handler panicked")
			result = Result{ExitCode: exitCode, Err: errors.Errorf("exit handler panicked: %v", r)}
		}
	}()

	return finalize(exitCode, waitErr)
}

// Stop asks the target to terminate and kills it once the grace period
// has elapsed. It returns when the target has exited.
func (p *process) Stop() error {
	p.mu.Lock()
	target, done := p.target, p.done
	running := p.state == StateRunning
	p.mu.Unlock()

	if !running || target == nil || target.Process == nil {
		return ErrNotRunning
	}

	p.logger.Info().Int("pid", target.Process.Pid).Dur("grace", p.grace).Msg("stopping target")
	if err := target.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		// Not every platform can deliver SIGTERM.
		p.logger.Debug().Err(err).Msg("failed to signal target")
		return p.kill(target, done)
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		p.logger.Warn().Int("pid", target.Process.Pid).Msg("target did not stop in time, killing it")
		return p.kill(target, done)
	}
}

func (p *process) kill(target *exec.Cmd, done <-chan struct{}) error {
	if err := target.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "failed to kill target")
	}
	<-done

	return nil
}

// waitOrKill waits up to the grace period for a helper process, then
// kills it.
func (p *process) waitOrKill(cmd *exec.Cmd, waited <-chan error) error {
	timer := time.NewTimer(p.grace)
	defer timer.Stop()

	select {
	case err := <-waited:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	case <-timer.C:
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return errors.Wrapf(err, "failed to kill %s", cmd.Path)
		}
		<-waited
		return errors.Errorf("%s did not exit in time and was killed", cmd.Path)
	}
}

// runTool runs the tool synchronously with captured output.
func runTool(ctx context.Context, tool string, args ...string) (stdout, stderr string, exitCode int, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitCode()
		err = nil
	default:
		exitCode = -1
	}

	return outBuf.String(), errBuf.String(), exitCode, err
}

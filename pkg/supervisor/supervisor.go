// Package supervisor runs a target process under an external profiler.
//
// Two strategies exist. A SamplingDaemon drives a trace control tool that
// samples the target from the outside, a BatchCollector runs the target
// through a collector and turns the collected data into a report once
// the target exits.
package supervisor

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
)

// State is the lifecycle state of one launch.
type State int32

const (
	StateIdle State = iota
	StateLaunching
	StateRunning
	StateFinalizing
	StateExited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Active reports whether a launch is in progress.
func (s State) Active() bool {
	return s == StateLaunching || s == StateRunning || s == StateFinalizing
}

type Strategy int

const (
	StrategySampling Strategy = iota
	StrategyBatch
)

func (s Strategy) String() string {
	switch s {
	case StrategySampling:
		return "sampling"
	case StrategyBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// ReportExt is the extension of the raw artifact the strategy produces,
// empty when it produces a directory.
func (s Strategy) ReportExt() string {
	if s == StrategySampling {
		return ".vsp"
	}
	return ""
}

func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sampling", "":
		return StrategySampling, nil
	case "batch":
		return StrategyBatch, nil
	default:
		return 0, errors.Wrapf(ErrUnknownStrategy, "%q", s)
	}
}

// Launch describes the target process.
type Launch struct {
	Exe     string
	Args    []string
	WorkDir string
	Env     []string
	// Output is the trace file for the sampling strategy and the result
	// directory for the batch strategy.
	Output string
}

// Result is delivered once per launch when the target has exited and
// the strategy has finalized.
type Result struct {
	// Report is the artifact to register, empty when Err is set.
	Report   string
	ExitCode int
	Err      error
	// Warnings are non-fatal failures of the finalization.
	Warnings []error
}

// Supervisor runs one launch at a time.
type Supervisor interface {
	// Start launches the target. It fails with AlreadyProfilingError
	// while a previous launch has not exited.
	Start(ctx context.Context, l Launch) error
	// Stop terminates the running target, killing it when it outlives
	// the grace period.
	Stop() error
	State() State
	// Exited delivers the result of the current launch. The channel of
	// a launch receives exactly one value.
	Exited() <-chan Result
}

const defaultGracePeriod = 5 * time.Second

type Option func(p *process)

func WithLogger(logger log.Logger) Option {
	return func(p *process) {
		p.logger = logger
	}
}

func WithGracePeriod(d time.Duration) Option {
	return func(p *process) {
		if d > 0 {
			p.grace = d
		}
	}
}

// WithTargetOutput sets where the output of the target goes. It is
// discarded by default.
func WithTargetOutput(stdout, stderr io.Writer) Option {
	return func(p *process) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// WithArchCheck replaces the check run on the target executable.
func WithArchCheck(check func(path string) (Arch, error)) Option {
	return func(p *process) {
		p.checkArch = check
	}
}

// New returns a supervisor for strategy, finding its tool with locator.
func New(strategy Strategy, locator *Locator, opts ...Option) (Supervisor, error) {
	switch strategy {
	case StrategySampling:
		return NewSamplingDaemon(locator, opts...), nil
	case StrategyBatch:
		return NewBatchCollector(locator, opts...), nil
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%d", int(strategy))
	}
}

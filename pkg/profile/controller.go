// Package profile starts profiling runs for sessions and registers the
// reports they produce.
//
// Supervisors deliver exit results on their own goroutines. The
// Controller hands them to the owner goroutine of the session tree
// through a dispatch.Dispatcher, so that sessions are only ever
// mutated there.
package profile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/rs/zerolog"

	"github.com/maxgio92/pyperf/pkg/dispatch"
	"github.com/maxgio92/pyperf/pkg/hierarchy"
	"github.com/maxgio92/pyperf/pkg/launch"
	"github.com/maxgio92/pyperf/pkg/session"
	"github.com/maxgio92/pyperf/pkg/supervisor"
)

const (
	readyRetries  = 10
	readyInterval = 100 * time.Millisecond
)

// Factory returns a supervisor for strategy.
type Factory func(strategy supervisor.Strategy) (supervisor.Supervisor, error)

// Controller runs at most one profiling run at a time.
type Controller struct {
	tree       *session.Tree
	resolver   launch.Resolver
	factory    Factory
	dispatcher *dispatch.Dispatcher

	workspace string
	outputDir string
	autosave  bool
	opener    Opener
	now       func() time.Time
	logger    log.Logger

	mu       sync.Mutex
	busy     bool
	current  *Run
	watchers sync.WaitGroup
}

type Option func(c *Controller)

func WithLogger(logger log.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithWorkspace sets the directory new session files are created in.
func WithWorkspace(dir string) Option {
	return func(c *Controller) {
		c.workspace = dir
	}
}

// WithOutputDir sets the directory raw profiler output is written to.
func WithOutputDir(dir string) Option {
	return func(c *Controller) {
		c.outputDir = dir
	}
}

// WithAutoSave saves a session once a report has been added to it.
// Sessions that were never saved are left alone.
func WithAutoSave(autosave bool) Option {
	return func(c *Controller) {
		c.autosave = autosave
	}
}

// WithOpener opens every report once its run has finished.
func WithOpener(opener Opener) Option {
	return func(c *Controller) {
		c.opener = opener
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(tree *session.Tree, resolver launch.Resolver, factory Factory, d *dispatch.Dispatcher, opts ...Option) *Controller {
	c := &Controller{
		tree:       tree,
		resolver:   resolver,
		factory:    factory,
		dispatcher: d,
		outputDir:  os.TempDir(),
		now:        time.Now,
		logger:     log.Nop(),
	}
	for _, f := range opts {
		f(c)
	}
	c.logger = c.logger.With().Str("component", "profiler").Logger()

	return c
}

// Run is one profiling run of a session.
type Run struct {
	Session  *session.Session
	Strategy supervisor.Strategy
	Launch   supervisor.Launch

	sup  supervisor.Supervisor
	done chan struct{}

	// Set on the owner goroutine before done is closed.
	result   supervisor.Result
	reportID hierarchy.ItemID
	err      error
}

// Done is closed once the run has finished and its report, if any, has
// been added to the session.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Err returns why the run produced no report. Only valid after Done.
func (r *Run) Err() error {
	return r.err
}

// ReportID returns the item id of the added report, or hierarchy.NilID.
// Only valid after Done.
func (r *Run) ReportID() hierarchy.ItemID {
	return r.reportID
}

// Result returns what the supervisor delivered. Only valid after Done.
func (r *Run) Result() supervisor.Result {
	return r.result
}

// Wait blocks until the run has finished or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the state of the supervisor of the run.
func (r *Run) State() supervisor.State {
	return r.sup.State()
}

// ProfileTarget adds a session for target to the tree, named after the
// target in the workspace, and starts profiling it. Call it on the
// owner goroutine.
func (c *Controller) ProfileTarget(ctx context.Context, target *session.Target, strategy supervisor.Strategy, persist bool) (*session.Session, *Run, error) {
	suggested := target.ProfilingName()
	if c.workspace != "" {
		suggested = filepath.Join(c.workspace, suggested)
	}
	s, err := c.tree.AddTarget(target, suggested, persist)
	if err != nil {
		return nil, nil, err
	}

	run, err := c.Start(ctx, s, strategy)
	if err != nil {
		return s, nil, err
	}

	return s, run, nil
}

// Start launches the session target under strategy. Configuration and
// launch failures are returned before anything keeps running. Call it
// on the owner goroutine.
func (c *Controller) Start(ctx context.Context, s *session.Session, strategy supervisor.Strategy) (*Run, error) {
	if err := c.reserve(); err != nil {
		return nil, err
	}
	run, err := c.start(ctx, s, strategy)
	if err != nil {
		c.release(nil)
		return nil, err
	}

	c.mu.Lock()
	c.current = run
	c.mu.Unlock()
	c.watchers.Add(1)
	go c.watch(run)

	return run, nil
}

func (c *Controller) start(ctx context.Context, s *session.Session, strategy supervisor.Strategy) (*Run, error) {
	if _, ok := s.ID(); !ok {
		return nil, session.ErrSessionNotFound
	}
	cfg, err := launch.FromTarget(c.resolver, s.Target())
	if err != nil {
		return nil, err
	}
	exe, args, err := cfg.Command()
	if err != nil {
		return nil, err
	}
	if c.factory == nil {
		return nil, ErrNoFactory
	}
	sup, err := c.factory(strategy)
	if err != nil {
		return nil, err
	}

	l := supervisor.Launch{
		Exe:     exe,
		Args:    args,
		WorkDir: cfg.WorkingDir,
		Env:     cfg.Environ(),
		Output:  OutputPath(c.outputDir, s.Name(), strategy.ReportExt(), c.now()),
	}
	c.logger.Info().
		Str("session", s.Name()).
		Stringer("strategy", strategy).
		Str("command", cfg.CommandLine()).
		Str("output", l.Output).
		Msg("starting profiling")
	if err := sup.Start(ctx, l); err != nil {
		return nil, err
	}

	return &Run{
		Session:  s,
		Strategy: strategy,
		Launch:   l,
		sup:      sup,
		done:     make(chan struct{}),
		reportID: hierarchy.NilID,
	}, nil
}

func (c *Controller) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		state := supervisor.StateLaunching
		if c.current != nil {
			state = c.current.sup.State()
		}
		return &supervisor.AlreadyProfilingError{State: state}
	}
	c.busy = true

	return nil
}

func (c *Controller) release(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run == nil || c.current == run {
		c.current = nil
		c.busy = false
	}
}

// watch waits for the exit result off the owner goroutine and hands it
// over to it.
func (c *Controller) watch(run *Run) {
	defer c.watchers.Done()
	res := <-run.sup.Exited()

	if err := c.dispatcher.Post(func() { c.finish(run, res) }); err != nil {
		c.logger.Warn().Err(err).Str("report", res.Report).Msg("report dropped, owner loop has stopped")
		run.result = res
		run.err = err
		c.release(run)
		close(run.done)
		return
	}

	if res.Err == nil && c.opener != nil {
		c.open(res.Report)
	}
}

// finish registers the report of a run. It runs on the owner goroutine.
func (c *Controller) finish(run *Run, res supervisor.Result) {
	defer close(run.done)
	defer c.release(run)

	run.result = res
	for _, w := range res.Warnings {
		c.dispatcher.Warn(w)
	}

	logger := c.logger.With().Str("session", run.Session.Name()).Int("exit-code", res.ExitCode).Logger()
	if res.Err != nil {
		logger.Error().Err(res.Err).Msg("profiling produced no report")
		run.err = res.Err
		return
	}
	if _, ok := run.Session.ID(); !ok {
		logger.Warn().Str("report", res.Report).Msg("session was removed, report not added")
		run.err = ErrSessionNotInTree
		return
	}

	run.reportID = run.Session.AddReport(res.Report)
	logger.Info().Str("report", res.Report).Stringer("id", run.reportID).Msg("report added")

	if c.autosave && !run.Session.NeverSaved() {
		if err := run.Session.Save(""); err != nil {
			c.dispatcher.Warn(err)
		}
	}
}

func (c *Controller) open(report string) {
	if err := waitReadable(report, readyRetries, readyInterval); err != nil {
		c.logger.Warn().Err(err).Msg("not opening report")
		return
	}
	if err := c.opener(report); err != nil {
		c.logger.Warn().Err(err).Msg("failed to open report")
	}
}

// Stop terminates the running target.
func (c *Controller) Stop() error {
	c.mu.Lock()
	run := c.current
	c.mu.Unlock()

	if run == nil {
		return supervisor.ErrNotRunning
	}

	return run.sup.Stop()
}

// IsProfiling reports whether a run has not finished yet.
func (c *Controller) IsProfiling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Wait blocks until the watchers of every started run have returned,
// reports being opened included.
func (c *Controller) Wait() {
	c.watchers.Wait()
}

// Current returns the unfinished run, or nil.
func (c *Controller) Current() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

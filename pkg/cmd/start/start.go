package start

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/pyperf/internal/config"
	"github.com/maxgio92/pyperf/internal/output"
	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/internal/utils"
	"github.com/maxgio92/pyperf/pkg/cmd/common"
	"github.com/maxgio92/pyperf/pkg/cmd/options"
	"github.com/maxgio92/pyperf/pkg/dispatch"
	"github.com/maxgio92/pyperf/pkg/healthcheck"
	"github.com/maxgio92/pyperf/pkg/profile"
	"github.com/maxgio92/pyperf/pkg/session"
	"github.com/maxgio92/pyperf/pkg/supervisor"
)

const (
	CmdName = "start"

	detachFlag = "detach"
)

var ErrNoSession = errors.New("no session to profile, pass --session or target flags")

type Options struct {
	sessionName string
	target      common.TargetFlags
	strategy    string
	noSave      bool

	detach bool
	open   bool
	status bool

	out io.Writer

	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := &Options{CommonOptions: opts}
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Profile a session under the external profiler",
		Long: fmt.Sprintf(`
%s launches the target of a session under the sampling trace tool or the hotspot collector.
The report is added to the session once the target exits.
Without --session nor target flags the first session of the workspace is profiled.
`, CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.Run,
	}

	cmd.Flags().StringVar(&o.sessionName, "session", "", "Name of the session to profile")
	o.target.AddFlags(cmd)
	cmd.Flags().StringVar(&o.strategy, "strategy", "", "Profiling strategy (sampling, batch), defaults to the configured one")
	cmd.Flags().BoolVar(&o.noSave, "no-save", false, "Do not write the file of a session created from target flags")

	cmd.Flags().BoolVarP(&o.detach, detachFlag, "d", false, fmt.Sprintf("Run %s as daemon", settings.CmdName))
	cmd.Flags().BoolVar(&o.open, "open", false, "Open the report once collected")
	cmd.Flags().BoolVar(&o.status, "status", true, "Periodically print the status of the run")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if o.sessionName != "" && o.target.IsSet() {
		return errors.New("--session cannot be combined with target flags")
	}
	if o.detach {
		return o.daemonize(cmd)
	}
	o.out = cmd.OutOrStdout()

	cfg, err := o.Init()
	if err != nil {
		return err
	}
	strategy, err := o.parseStrategy(cfg)
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}
	defer tree.Close()

	if err := utils.WritePidFile(settings.PidFile, os.Getpid()); err != nil {
		o.Logger.Warn().Err(err).Msg("failed to write PID file")
	}
	defer os.Remove(settings.PidFile)

	d := dispatch.New(
		dispatch.WithLogger(o.Logger),
		dispatch.WithWarningHandler(func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}),
	)
	controllerOpts := []profile.Option{
		profile.WithLogger(o.Logger),
		profile.WithWorkspace(cfg.Workspace),
		profile.WithOutputDir(cfg.OutputDir),
		profile.WithAutoSave(true),
	}
	if o.open || cfg.OpenReport {
		opener, err := profile.OpenWith(cfg.OpenCommand)
		if err != nil {
			return err
		}
		controllerOpts = append(controllerOpts, profile.WithOpener(opener))
	}
	c := profile.NewController(tree, cfg.Resolver(), o.factory(cfg), d, controllerOpts...)
	hc := healthcheck.NewHealthCheckServer(settings.HealthCheckSockPath, o.Logger)

	// The loop outlives o.Ctx: an interrupted run still has to stop its
	// target and register what it collected.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.Run(gctx)
	})
	g.Go(func() error {
		// Readiness is best effort, the run goes on without it.
		if err := hc.Serve(gctx); err != nil {
			o.Logger.Warn().Err(err).Str("socket", settings.HealthCheckSockPath).Msg("health check unavailable")
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return o.profile(gctx, cfg, tree, c, d, hc, strategy)
	})

	err = g.Wait()
	c.Wait()

	return err
}

func (o *Options) parseStrategy(cfg *config.Config) (supervisor.Strategy, error) {
	name := cfg.Strategy
	if o.strategy != "" {
		name = o.strategy
	}

	return supervisor.ParseStrategy(name)
}

func (o *Options) factory(cfg *config.Config) profile.Factory {
	return func(strategy supervisor.Strategy) (supervisor.Supervisor, error) {
		locator := cfg.Sampler.Locator("sampler")
		if strategy == supervisor.StrategyBatch {
			locator = cfg.Collector.Locator("collector")
		}

		return supervisor.New(strategy, locator,
			supervisor.WithLogger(o.Logger),
			supervisor.WithGracePeriod(cfg.StopGracePeriod),
			supervisor.WithTargetOutput(os.Stdout, os.Stderr),
		)
	}
}

func (o *Options) profile(ctx context.Context, cfg *config.Config, tree *session.Tree, c *profile.Controller, d *dispatch.Dispatcher, hc *healthcheck.HealthCheckServer, strategy supervisor.Strategy) error {
	var (
		run  *profile.Run
		name string
	)
	if err := d.Call(ctx, func() error {
		var err error
		if run, err = o.startRun(ctx, cfg, tree, c, strategy); err != nil {
			return err
		}
		name = run.Session.Name()
		return nil
	}); err != nil {
		return errors.Wrap(err, "failed to start profiling")
	}

	started := time.Now()
	o.Logger.Info().Str("session", name).Stringer("strategy", run.Strategy).Str("output", run.Launch.Output).Msg("profiling started")
	hc.NotifyReadiness()

	if o.status && output.IsTerminal() {
		statusCtx, stopStatus := context.WithCancel(ctx)
		defer stopStatus()
		go output.StatusBar(statusCtx, time.Second, func() {
			output.PrintRight(output.PrettyRunStatus(name, run.State().String(), time.Since(started)))
		})
	}

	select {
	case <-run.Done():
	case <-o.Ctx.Done():
		o.Logger.Info().Msg("interrupted, stopping the target")
		if err := c.Stop(); err != nil && !errors.Is(err, supervisor.ErrNotRunning) {
			o.Logger.Warn().Err(err).Msg("failed to stop the target")
		}
		<-run.Done()
	}

	if err := run.Err(); err != nil {
		return err
	}
	fmt.Fprintf(o.out, "\n%s\n", run.Result().Report)

	return nil
}

// startRun picks the session to profile: the named one, a new one for
// the target flags, or the active session of the workspace.
func (o *Options) startRun(ctx context.Context, cfg *config.Config, tree *session.Tree, c *profile.Controller, strategy supervisor.Strategy) (*profile.Run, error) {
	switch {
	case o.sessionName != "":
		s, err := options.FindSession(tree, o.sessionName)
		if err != nil {
			return nil, err
		}
		return c.Start(ctx, s, strategy)
	case o.target.IsSet():
		target, err := o.target.Target(cfg)
		if err != nil {
			return nil, err
		}
		_, run, err := c.ProfileTarget(ctx, target, strategy, !o.noSave)
		return run, err
	default:
		s := tree.Active()
		if s == nil {
			return nil, ErrNoSession
		}
		return c.Start(ctx, s, strategy)
	}
}

func (o *Options) daemonize(cmd *cobra.Command) error {
	// Check if already running.
	if common.IsDaemonRunning() {
		fmt.Fprintln(cmd.OutOrStdout(), "Daemon already running")
		return nil
	}

	// Start the daemon process with the same flags, minus detach.
	// Flags() holds the persistent flags of the parents too.
	args := []string{CmdName}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == detachFlag {
			return
		}
		args = append(args, fmt.Sprintf("--%s=%s", f.Name, f.Value.String()))
	})

	daemon := exec.Command(os.Args[0], args...)
	daemon.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirect output to log file.
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			o.Logger.Error().Err(err).Msg("failed to open log file")
			return err
		}
		defer f.Close()
		daemon.Stdout = f
		daemon.Stderr = f
	}

	if err := daemon.Start(); err != nil {
		o.Logger.Error().Err(err).Msgf("failed to start %s", settings.CmdName)
		return err
	}

	// Store PID file.
	if err := utils.WritePidFile(settings.PidFile, daemon.Process.Pid); err != nil {
		o.Logger.Error().Err(err).Msg("failed to write PID file")
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s started (PID %d)\n", settings.CmdName, daemon.Process.Pid)

	return nil
}

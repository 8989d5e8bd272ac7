package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/pkg/cmd/render"
	"github.com/maxgio92/pyperf/pkg/cmd/report"
	sessioncmd "github.com/maxgio92/pyperf/pkg/cmd/session"
	"github.com/maxgio92/pyperf/pkg/cmd/start"
	"github.com/maxgio92/pyperf/pkg/cmd/status"
	"github.com/maxgio92/pyperf/pkg/cmd/stop"
	"github.com/maxgio92/pyperf/pkg/cmd/wait"
)

const logLevelInfo = "info"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a profiling session manager for Python programs", settings.CmdName),
		Long: fmt.Sprintf(`
%s keeps profiling sessions of Python programs and runs them under an external profiler.
A session records what to run, a script with its interpreter or a configured project, and the reports collected for it.
Reports are produced by a sampling trace tool or by a hotspot collector.
`, settings.CmdName),
		DisableAutoGenTag: true,
	}
	cmd.PersistentFlags().StringVar(&o.LogLevel, "log-level", logLevelInfo, "Set the log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.PersistentFlags().StringVar(&o.ConfigPath, "config", settings.ConfigFile, "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&o.Workspace, "workspace", "", "Directory of the session files (overrides the configuration)")

	cmd.AddCommand(start.NewCommand(o.CommonOptions))
	cmd.AddCommand(stop.NewCommand(stop.NewOptions(stop.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(status.NewCommand(status.NewOptions(status.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(wait.NewCommand(wait.NewOptions(wait.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(sessioncmd.NewCommand(o.CommonOptions))
	cmd.AddCommand(report.NewCommand(o.CommonOptions))
	cmd.AddCommand(render.NewCommand(o.CommonOptions))

	return cmd
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := NewOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewCommand(opts).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

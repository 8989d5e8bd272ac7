package status

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/internal/utils"
	"github.com/maxgio92/pyperf/pkg/cmd/common"
	"github.com/maxgio92/pyperf/pkg/healthcheck"
)

const CmdName = "status"

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Check the %s profiler status", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.Run,
	}
	cmd.Flags().DurationVar(&o.readyTimeout, "ready-timeout", time.Second, "Time to wait for the readiness answer")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.InitLogger(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !common.IsDaemonRunning() {
		fmt.Fprintf(out, "%s is not running\n", settings.CmdName)
		return nil
	}
	pid, _ := utils.ReadPidFile(settings.PidFile)

	ctx, cancel := context.WithTimeout(cmd.Context(), o.readyTimeout)
	defer cancel()

	if err := healthcheck.WaitReady(ctx, settings.HealthCheckSockPath, o.readyTimeout/4); err != nil {
		o.Logger.Debug().Err(err).Msg("readiness check failed")
		fmt.Fprintf(out, "%s is running (PID %d), target not started\n", settings.CmdName, pid)
		return nil
	}
	fmt.Fprintf(out, "%s is running (PID %d), profiling\n", settings.CmdName, pid)

	return nil
}

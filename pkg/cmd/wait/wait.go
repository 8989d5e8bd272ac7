package wait

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/pkg/healthcheck"
)

const (
	CmdName = "wait"

	retryInterval = 500 * time.Millisecond
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Wait for the %s profiler to run its target", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", settings.HealthCheckSockPath, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	cmd.Flags().DurationVar(&o.timeout, "timeout", time.Second*120, "Timeout")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.InitLogger(); err != nil {
		return err
	}
	logger := o.Logger.With().Str("component", "wait").Logger()

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	logger.Info().Msg("waiting for the profiler to be ready")
	if err := healthcheck.WaitReady(ctx, o.socketPath, retryInterval); err != nil {
		return err
	}
	logger.Info().Msg("profiler is ready")

	return nil
}

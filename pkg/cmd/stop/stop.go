package stop

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/internal/utils"
	"github.com/maxgio92/pyperf/pkg/cmd/common"
)

const (
	CmdName = "stop"

	pollInterval = 100 * time.Millisecond
)

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Stop the %s profiler daemon", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.Run,
	}
	// The daemon needs the stop grace period of the target on top of
	// the report collection.
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "Time to wait for the daemon to exit before killing it")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := o.InitLogger(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	pid, err := utils.ReadPidFile(settings.PidFile)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			fmt.Fprintf(out, "%s not running or PID file not found\n", settings.CmdName)
			return nil
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return errors.Wrapf(err, "process %d not found", pid)
	}

	// The daemon stops its target and registers the report on SIGTERM.
	if err := process.Signal(syscall.SIGTERM); err != nil {
		o.Logger.Debug().Err(err).Int("pid", pid).Msg("failed to signal daemon")
		os.Remove(settings.PidFile)
		fmt.Fprintf(out, "%s not running (stale PID %d)\n", settings.CmdName, pid)
		return nil
	}

	// Wait for process to stop.
	deadline := time.Now().Add(o.timeout)
	for time.Now().Before(deadline) {
		if !common.IsDaemonRunning() {
			fmt.Fprintf(out, "%s stopped (PID %d)\n", settings.CmdName, pid)
			os.Remove(settings.PidFile)
			return nil
		}
		time.Sleep(pollInterval)
	}

	// Force kill if still running.
	if err := process.Kill(); err != nil {
		o.Logger.Warn().Err(err).Int("pid", pid).Msg("failed to kill daemon")
	}
	os.Remove(settings.PidFile)
	fmt.Fprintf(out, "%s force killed (PID %d)\n", settings.CmdName, pid)

	return nil
}

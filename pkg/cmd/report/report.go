package report

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/output"
	"github.com/maxgio92/pyperf/internal/utils"
	"github.com/maxgio92/pyperf/pkg/cmd/options"
	"github.com/maxgio92/pyperf/pkg/hierarchy"
)

const CmdName = "report"

type Options struct {
	deleteFile bool

	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             "Manage the reports of a session",
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newListCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newAddCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newRmCommand(&Options{CommonOptions: opts}))

	return cmd
}

func newListCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:               "list SESSION",
		Aliases:           []string{"ls"},
		Short:             "List the reports of a session",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(1),
		RunE:              o.RunList,
	}
}

func (o *Options) RunList(cmd *cobra.Command, args []string) error {
	cfg, err := o.Init()
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}
	s, err := options.FindSession(tree, args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	reports := s.Reports()
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		size, age := utils.FileInfo(r.Filename, now)
		rows = append(rows, []string{r.ID.String(), filepath.Base(r.Filename), size, age})
	}
	output.Table(cmd.OutOrStdout(), []string{"id", "report", "size", "age"}, rows)

	return nil
}

func newAddCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:               "add SESSION FILE",
		Short:             "Attach an existing report file to a session",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(2),
		RunE:              o.RunAdd,
	}
}

func (o *Options) RunAdd(cmd *cobra.Command, args []string) error {
	cfg, err := o.Init()
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}
	s, err := options.FindSession(tree, args[0])
	if err != nil {
		return err
	}

	path, err := filepath.Abs(args[1])
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", args[1])
	}
	id := s.AddReport(path)
	if err := s.Save(""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report %s added to session %s\n", id, s.Name())

	return nil
}

func newRmCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rm SESSION ID",
		Short:             "Remove a report from a session",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(2),
		RunE:              o.RunRm,
	}
	cmd.Flags().BoolVar(&o.deleteFile, "delete-file", false, "Also delete the report file")

	return cmd
}

func (o *Options) RunRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return errors.Wrapf(err, "invalid report id %q", args[1])
	}

	cfg, err := o.Init()
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}
	s, err := options.FindSession(tree, args[0])
	if err != nil {
		return err
	}

	if err := s.RemoveReport(hierarchy.ItemID(id), o.deleteFile); err != nil {
		return err
	}
	if err := s.Save(""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "report %d removed from session %s\n", id, s.Name())

	return nil
}

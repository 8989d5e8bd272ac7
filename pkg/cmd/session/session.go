package session

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/output"
	"github.com/maxgio92/pyperf/pkg/cmd/common"
	"github.com/maxgio92/pyperf/pkg/cmd/options"
	"github.com/maxgio92/pyperf/pkg/session"
	"github.com/maxgio92/pyperf/pkg/summary"
)

const (
	CmdName = "session"

	outputText = "text"
	outputJSON = "json"
)

var ErrUnknownOutput = errors.New("unknown output format")

type Options struct {
	name   string
	noSave bool
	output string
	delete bool
	target common.TargetFlags

	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             "Manage profiling sessions",
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(newNewCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newListCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newShowCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newEditCommand(&Options{CommonOptions: opts}))
	cmd.AddCommand(newRmCommand(&Options{CommonOptions: opts}))

	return cmd
}

func newNewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "new",
		Short:             "Create a session for a script or a project",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.RunNew,
	}
	cmd.Flags().StringVar(&o.name, "name", "", "Session name (defaults to the script or project name)")
	cmd.Flags().BoolVar(&o.noSave, "no-save", false, "Do not write the session file")
	o.target.AddFlags(cmd)

	return cmd
}

func (o *Options) RunNew(cmd *cobra.Command, _ []string) error {
	cfg, err := o.Init()
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}
	target, err := o.target.Target(cfg)
	if err != nil {
		return err
	}

	name := o.name
	if name == "" {
		name = target.ProfilingName()
	}
	s, err := tree.AddTarget(target, filepath.Join(cfg.Workspace, name), !o.noSave)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}

	if o.noSave {
		fmt.Fprintf(cmd.OutOrStdout(), "session %s created, not saved\n", s.Name())
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s saved to %s\n", s.Name(), s.Filename())

	return nil
}

func newListCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:               "list",
		Aliases:           []string{"ls"},
		Short:             "List the sessions of the workspace",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.NoArgs,
		RunE:              o.RunList,
	}
}

func (o *Options) RunList(cmd *cobra.Command, _ []string) error {
	cfg, err := o.Init()
	if err != nil {
		return err
	}
	tree, err := o.OpenTree(cfg)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, tree.Len())
	for _, s := range tree.Sessions() {
		active := ""
		if s == tree.Active() {
			active = "*"
		}
		rows = append(rows, []string{
			active,
			s.Caption(),
			describeTarget(s.Target()),
			strconv.Itoa(len(s.Reports())),
			s.Filename(),
		})
	}
	output.Table(cmd.OutOrStdout(), []string{"", "name", "target", "reports", "file"}, rows)

	return nil
}

func newShowCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "show NAME",
		Short:             "Show a session",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(1),
		RunE:              o.RunShow,
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", outputText, "Output format (text, json)")

	return cmd
}

func (o *Options) RunShow(cmd *cobra.Command, args []string) error {
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

	sum := summary.FromSession(s, s == tree.Active())
	switch o.output {
	case outputJSON:
		return sum.WriteSummary(cmd.OutOrStdout())
	case outputText:
		writeText(cmd.OutOrStdout(), sum)
		return nil
	default:
		return errors.Wrapf(ErrUnknownOutput, "%q", o.output)
	}
}

func writeText(w io.Writer, s *summary.SessionSummary) {
	fmt.Fprintf(w, "Name:     %s\n", s.Name)
	fmt.Fprintf(w, "File:     %s\n", s.Filename)
	fmt.Fprintf(w, "Saved:    %t\n", s.Saved)
	switch s.Target.Kind {
	case summary.KindProject:
		fmt.Fprintf(w, "Project:  %s (%s)\n", s.Target.ProjectName, s.Target.ProjectGUID)
	case summary.KindStandalone:
		interpreter := s.Target.InterpreterPath
		if interpreter == "" {
			interpreter = s.Target.Interpreter
		}
		fmt.Fprintf(w, "Script:   %s %s\n", s.Target.Script, s.Target.Arguments)
		fmt.Fprintf(w, "Python:   %s\n", interpreter)
		if s.Target.WorkingDirectory != "" {
			fmt.Fprintf(w, "Workdir:  %s\n", s.Target.WorkingDirectory)
		}
	}
	fmt.Fprintf(w, "Reports:  %d\n", len(s.Reports))
	for _, r := range s.Reports {
		missing := ""
		if !r.Exists {
			missing = " (missing)"
		}
		fmt.Fprintf(w, "  %d  %s%s\n", r.ID, r.Filename, missing)
	}
}

func newEditCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "edit NAME",
		Short:             "Change what a session profiles, keeping its reports",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(1),
		RunE:              o.RunEdit,
	}
	o.target.AddFlags(cmd)

	return cmd
}

func (o *Options) RunEdit(cmd *cobra.Command, args []string) error {
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
	if !o.target.IsSet() {
		return errors.New("no target flags given")
	}

	target, err := o.target.Target(cfg)
	if err != nil {
		return err
	}
	changed, err := s.UpdateTarget(target)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(cmd.OutOrStdout(), "session %s unchanged\n", s.Name())
		return nil
	}
	if err := s.Save(""); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s updated\n", s.Name())

	return nil
}

func newRmCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "rm NAME",
		Short:             "Remove a session and its file",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(1),
		RunE:              o.RunRm,
	}
	cmd.Flags().BoolVar(&o.delete, "delete-reports", false, "Also delete the report files of the session")

	return cmd
}

func (o *Options) RunRm(cmd *cobra.Command, args []string) error {
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
	if o.delete {
		for _, r := range s.Reports() {
			if err := s.RemoveReport(r.ID, true); err != nil {
				o.Logger.Warn().Err(err).Str("report", r.Filename).Msg("failed to delete report")
			}
		}
	}
	if err := tree.Remove(s, true); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s removed\n", s.Name())

	return nil
}

func describeTarget(t *session.Target) string {
	switch {
	case t == nil:
		return "-"
	case t.Project != nil:
		if t.Project.FriendlyName != "" {
			return "project " + t.Project.FriendlyName
		}
		return "project " + t.Project.ProjectGUID.String()
	case t.Standalone != nil:
		return t.Standalone.Script
	}
	return "-"
}

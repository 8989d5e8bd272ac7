package render

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/pkg/cmd/options"
	"github.com/maxgio92/pyperf/pkg/profile"
	"github.com/maxgio92/pyperf/pkg/render"
)

const CmdName = "render"

type Options struct {
	open bool

	*options.CommonOptions
}

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	o := &Options{CommonOptions: opts}
	cmd := &cobra.Command{
		Use:               CmdName + " FILE.csv",
		Short:             "Render a CSV hotspot report as an HTML table",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Args:              cobra.ExactArgs(1),
		RunE:              o.Run,
	}
	cmd.Flags().BoolVar(&o.open, "open", false, "Open the rendered document with the configured command")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	cfg, err := o.Init()
	if err != nil {
		return err
	}

	htmlPath, err := render.RenderCsvAsHtml(args[0])
	if err != nil {
		return errors.Wrap(err, "failed to render report")
	}
	fmt.Fprintln(cmd.OutOrStdout(), htmlPath)

	if !o.open {
		return nil
	}
	opener, err := profile.OpenWith(cfg.OpenCommand)
	if err != nil {
		return err
	}

	return opener(htmlPath)
}

package common

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/pyperf/internal/config"
	"github.com/maxgio92/pyperf/pkg/session"
)

var ErrProjectAndScript = errors.New("--project cannot be combined with --script")

// TargetFlags are the command line flags describing a profiling target.
type TargetFlags struct {
	Script          string
	Args            string
	WorkDir         string
	Interpreter     string
	InterpreterPath string
	Project         string
}

func (f *TargetFlags) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Script, "script", "", "Path to the Python script to profile")
	cmd.Flags().StringVar(&f.Args, "args", "", "Arguments of the script, quoted as in a shell")
	cmd.Flags().StringVar(&f.WorkDir, "workdir", "", "Working directory (defaults to the script directory)")
	cmd.Flags().StringVar(&f.Interpreter, "interpreter", "", "Id of a configured interpreter")
	cmd.Flags().StringVar(&f.InterpreterPath, "interpreter-path", "", "Path to the interpreter executable")
	cmd.Flags().StringVar(&f.Project, "project", "", "GUID or name of a configured project")
}

// IsSet reports whether any target flag was given.
func (f *TargetFlags) IsSet() bool {
	return f.Script != "" || f.Project != "" || f.Interpreter != "" || f.InterpreterPath != ""
}

// Target builds the target the flags describe. A project is looked up
// by name in cfg when it is not a GUID.
func (f *TargetFlags) Target(cfg *config.Config) (*session.Target, error) {
	if f.Project == "" {
		target := session.NewStandaloneTarget(session.StandaloneTarget{
			InterpreterPath:  f.InterpreterPath,
			WorkingDirectory: f.WorkDir,
			Script:           f.Script,
			Arguments:        f.Args,
		})
		if f.Interpreter != "" {
			target.Standalone.Interpreter = &session.InterpreterRef{ID: f.Interpreter}
		}
		return target, target.Validate()
	}

	if f.Script != "" {
		return nil, ErrProjectAndScript
	}
	if guid, err := uuid.Parse(f.Project); err == nil {
		name := ""
		if cfg != nil {
			for _, p := range cfg.Projects {
				if p.GUID == guid {
					name = p.Name
				}
			}
		}
		return session.NewProjectTarget(guid, name), nil
	}
	if cfg != nil {
		if p, ok := cfg.Project(f.Project); ok {
			return session.NewProjectTarget(p.GUID, p.Name), nil
		}
	}

	return nil, errors.Errorf("unknown project %q", f.Project)
}

// Package launch builds the command line of a profiling target.
package launch

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	shellquote "github.com/kballard/go-shellquote"
	"github.com/pkg/errors"

	"github.com/maxgio92/pyperf/pkg/session"
)

// Config is everything needed to start a target process.
type Config struct {
	InterpreterPath string
	Script          string
	ScriptArgs      string
	WorkingDir      string
	Env             map[string]string
}

// Resolver resolves what the session file only references.
type Resolver interface {
	// ResolveProject returns the launch configuration of a project.
	ResolveProject(guid uuid.UUID) (*Config, error)
	// ResolveInterpreter returns the executable of a named interpreter.
	ResolveInterpreter(id string) (string, error)
}

// Command returns the executable and its arguments: the script followed
// by the script arguments, split with shell quoting rules.
func (c *Config) Command() (string, []string, error) {
	args := []string{c.Script}
	if c.ScriptArgs != "" {
		extra, err := shellquote.Split(c.ScriptArgs)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to parse arguments %q", c.ScriptArgs)
		}
		args = append(args, extra...)
	}

	return c.InterpreterPath, args, nil
}

// CommandLine renders the command quoted for display.
func (c *Config) CommandLine() string {
	exe, args, err := c.Command()
	if err != nil {
		return shellquote.Join(c.InterpreterPath, c.Script) + " " + c.ScriptArgs
	}
	return shellquote.Join(append([]string{exe}, args...)...)
}

// Environ returns the current environment overridden by Env.
func (c *Config) Environ() []string {
	env := os.Environ()
	if len(c.Env) == 0 {
		return env
	}

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}

	return env
}

// FromTarget builds the launch configuration of target. Every failure
// happens before anything is started.
func FromTarget(r Resolver, target *session.Target) (*Config, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	if target.Project != nil {
		if r == nil {
			return nil, ErrNoResolver
		}
		return r.ResolveProject(target.Project.ProjectGUID)
	}

	st := target.Standalone
	cfg := &Config{
		InterpreterPath: st.InterpreterPath,
		Script:          st.Script,
		ScriptArgs:      st.Arguments,
		WorkingDir:      st.WorkingDirectory,
	}
	if cfg.InterpreterPath == "" {
		if r == nil {
			return nil, ErrNoResolver
		}
		path, err := r.ResolveInterpreter(st.Interpreter.ID)
		if err != nil {
			return nil, err
		}
		cfg.InterpreterPath = path
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = filepath.Dir(cfg.Script)
	}

	return cfg, nil
}

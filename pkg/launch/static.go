package launch

import (
	"maps"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Project is a buildable project known to the resolver.
type Project struct {
	GUID        uuid.UUID
	Name        string
	Home        string
	Interpreter string
	Script      string
	WorkingDir  string
	Env         map[string]string
}

// StaticResolver resolves projects and interpreters from fixed tables,
// usually loaded from the configuration file.
type StaticResolver struct {
	interpreters map[string]string
	projects     map[uuid.UUID]Project
}

func NewStaticResolver(interpreters map[string]string, projects []Project) *StaticResolver {
	r := &StaticResolver{
		interpreters: make(map[string]string, len(interpreters)),
		projects:     make(map[uuid.UUID]Project, len(projects)),
	}
	maps.Copy(r.interpreters, interpreters)
	for _, p := range projects {
		r.projects[p.GUID] = p
	}

	return r
}

// Project returns the project registered with guid.
func (r *StaticResolver) Project(guid uuid.UUID) (Project, bool) {
	p, ok := r.projects[guid]
	return p, ok
}

func (r *StaticResolver) ResolveInterpreter(id string) (string, error) {
	path, ok := r.interpreters[id]
	if !ok || path == "" {
		return "", &InterpreterMissingError{ID: id}
	}
	if _, err := os.Stat(path); err != nil {
		return "", &InterpreterMissingError{ID: id, Path: path}
	}

	return path, nil
}

func (r *StaticResolver) ResolveProject(guid uuid.UUID) (*Config, error) {
	p, ok := r.projects[guid]
	if !ok {
		return nil, ErrProjectNotFound
	}
	name := p.Name
	if name == "" {
		name = guid.String()
	}

	if p.Interpreter == "" {
		return nil, &NoInterpreterConfiguredError{Project: name}
	}
	interpreter, err := r.ResolveInterpreter(p.Interpreter)
	if err != nil {
		return nil, err
	}
	if p.Script == "" {
		return nil, &NoStartupScriptError{Project: name}
	}

	script := p.Script
	if !filepath.IsAbs(script) && p.Home != "" {
		script = filepath.Join(p.Home, script)
	}

	// An unset working directory falls back to the project home, then to
	// the directory of the script.
	workDir := p.WorkingDir
	if workDir == "" || workDir == "." {
		workDir = p.Home
		if workDir == "" {
			workDir = filepath.Dir(script)
		}
	}

	return &Config{
		InterpreterPath: interpreter,
		Script:          script,
		WorkingDir:      workDir,
		Env:             maps.Clone(p.Env),
	}, nil
}

var _ Resolver = (*StaticResolver)(nil)

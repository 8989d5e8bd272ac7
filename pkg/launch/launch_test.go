package launch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/session"
)

// MockResolver implements Resolver for testing purposes.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveProject(guid uuid.UUID) (*Config, error) {
	args := m.Called(guid)
	cfg, _ := args.Get(0).(*Config)
	return cfg, args.Error(1)
}

func (m *MockResolver) ResolveInterpreter(id string) (string, error) {
	args := m.Called(id)
	return args.String(0), args.Error(1)
}

func TestConfig_Command(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantArgs []string
		wantErr  bool
	}{
		{
			name:     "no arguments",
			cfg:      Config{InterpreterPath: "/usr/bin/python3", Script: "app.py"},
			wantArgs: []string{"app.py"},
		},
		{
			name:     "quoted arguments",
			cfg:      Config{InterpreterPath: "python", Script: "/my dir/app.py", ScriptArgs: `-n 3 --name "two words"`},
			wantArgs: []string{"/my dir/app.py", "-n", "3", "--name", "two words"},
		},
		{
			name:    "unterminated quote",
			cfg:     Config{InterpreterPath: "python", Script: "app.py", ScriptArgs: `"open`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe, args, err := tt.cfg.Command()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.cfg.InterpreterPath, exe)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestConfig_CommandLine(t *testing.T) {
	cfg := Config{InterpreterPath: "python", Script: "/my dir/app.py", ScriptArgs: "-v"}
	assert.Equal(t, `python '/my dir/app.py' -v`, cfg.CommandLine())
}

func TestConfig_Environ(t *testing.T) {
	t.Setenv("PYPERF_TEST_BASE", "base")
	cfg := Config{Env: map[string]string{"PYTHONPATH": "/lib", "PYPERF_TEST_BASE": "override"}}

	env := cfg.Environ()
	require.Contains(t, env, "PYTHONPATH=/lib")
	// Later entries win when the environment is passed to a process.
	require.Equal(t, "PYPERF_TEST_BASE=override", env[len(env)-1])
}

func TestFromTarget_Standalone(t *testing.T) {
	target := session.NewStandaloneTarget(session.StandaloneTarget{
		InterpreterPath: "/usr/bin/python3",
		Script:          "/src/app.py",
		Arguments:       "-v",
	})

	cfg, err := FromTarget(nil, target)
	require.NoError(t, err)
	require.Equal(t, &Config{
		InterpreterPath: "/usr/bin/python3",
		Script:          "/src/app.py",
		ScriptArgs:      "-v",
		WorkingDir:      "/src",
	}, cfg)
}

func TestFromTarget_NamedInterpreter(t *testing.T) {
	r := new(MockResolver)
	r.On("ResolveInterpreter", "py3").Return("/opt/py3/bin/python", nil)

	target := session.NewStandaloneTarget(session.StandaloneTarget{
		Interpreter:      &session.InterpreterRef{ID: "py3"},
		Script:           "app.py",
		WorkingDirectory: "/work",
	})
	cfg, err := FromTarget(r, target)
	require.NoError(t, err)
	require.Equal(t, "/opt/py3/bin/python", cfg.InterpreterPath)
	require.Equal(t, "/work", cfg.WorkingDir)
	r.AssertExpectations(t)

	// An explicit path wins over the name.
	explicit := target.Clone()
	explicit.Standalone.InterpreterPath = "/usr/bin/python3"
	cfg, err = FromTarget(r, explicit)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/python3", cfg.InterpreterPath)
	r.AssertNumberOfCalls(t, "ResolveInterpreter", 1)
}

func TestFromTarget_Project(t *testing.T) {
	guid := uuid.New()
	r := new(MockResolver)
	r.On("ResolveProject", guid).Return(nil, &NoStartupScriptError{Project: "web"})

	_, err := FromTarget(r, session.NewProjectTarget(guid, "web"))
	var noScript *NoStartupScriptError
	require.ErrorAs(t, err, &noScript)
	require.True(t, IsConfigurationError(err))

	_, err = FromTarget(nil, session.NewProjectTarget(guid, "web"))
	require.ErrorIs(t, err, ErrNoResolver)

	_, err = FromTarget(r, &session.Target{})
	require.ErrorIs(t, err, session.ErrNoTarget)
}

func TestStaticResolver_ResolveProject(t *testing.T) {
	dir := t.TempDir()
	python := filepath.Join(dir, "python")
	require.NoError(t, os.WriteFile(python, []byte("#!/bin/sh\n"), 0755))

	guid := uuid.New()
	base := Project{GUID: guid, Name: "web", Home: "/src/web", Interpreter: "py", Script: "app.py"}

	tests := []struct {
		name    string
		project func(p Project) Project
		check   func(t *testing.T, cfg *Config, err error)
	}{
		{
			name:    "home as working dir",
			project: func(p Project) Project { return p },
			check: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				require.Equal(t, python, cfg.InterpreterPath)
				require.Equal(t, "/src/web/app.py", cfg.Script)
				require.Equal(t, "/src/web", cfg.WorkingDir)
			},
		},
		{
			name: "dot working dir without home",
			project: func(p Project) Project {
				p.Home, p.WorkingDir, p.Script = "", ".", "/opt/app/main.py"
				return p
			},
			check: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				require.Equal(t, "/opt/app", cfg.WorkingDir)
			},
		},
		{
			name: "explicit working dir",
			project: func(p Project) Project {
				p.WorkingDir = "/data"
				p.Env = map[string]string{"DEBUG": "1"}
				return p
			},
			check: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				require.Equal(t, "/data", cfg.WorkingDir)
				require.Equal(t, map[string]string{"DEBUG": "1"}, cfg.Env)
			},
		},
		{
			name:    "no interpreter",
			project: func(p Project) Project { p.Interpreter = ""; return p },
			check: func(t *testing.T, _ *Config, err error) {
				var target *NoInterpreterConfiguredError
				require.ErrorAs(t, err, &target)
				require.Equal(t, "web", target.Project)
			},
		},
		{
			name:    "unknown interpreter",
			project: func(p Project) Project { p.Interpreter = "py2"; return p },
			check: func(t *testing.T, _ *Config, err error) {
				var target *InterpreterMissingError
				require.ErrorAs(t, err, &target)
				require.Equal(t, "py2", target.ID)
			},
		},
		{
			name:    "interpreter executable gone",
			project: func(p Project) Project { p.Interpreter = "gone"; return p },
			check: func(t *testing.T, _ *Config, err error) {
				var target *InterpreterMissingError
				require.ErrorAs(t, err, &target)
				require.Equal(t, filepath.Join(dir, "missing"), target.Path)
			},
		},
		{
			name:    "no script",
			project: func(p Project) Project { p.Script = ""; return p },
			check: func(t *testing.T, _ *Config, err error) {
				var target *NoStartupScriptError
				require.ErrorAs(t, err, &target)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewStaticResolver(
				map[string]string{"py": python, "gone": filepath.Join(dir, "missing")},
				[]Project{tt.project(base)},
			)
			cfg, err := r.ResolveProject(guid)
			tt.check(t, cfg, err)
		})
	}
}

func TestStaticResolver_UnknownProject(t *testing.T) {
	r := NewStaticResolver(nil, nil)
	_, err := r.ResolveProject(uuid.New())
	require.ErrorIs(t, err, ErrProjectNotFound)
	require.True(t, IsConfigurationError(err))
}

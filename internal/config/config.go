package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/maxgio92/pyperf/internal/settings"
	"github.com/maxgio92/pyperf/pkg/launch"
	"github.com/maxgio92/pyperf/pkg/supervisor"
)

type Config struct {
	Workspace       string            `yaml:"workspace"`
	OutputDir       string            `yaml:"output_dir"`
	Strategy        string            `yaml:"strategy"`
	StopGracePeriod time.Duration     `yaml:"stop_grace_period"`
	OpenReport      bool              `yaml:"open_report"`
	OpenCommand     string            `yaml:"open_command"`
	Sampler         Tool              `yaml:"sampler"`
	Collector       Tool              `yaml:"collector"`
	Interpreters    map[string]string `yaml:"interpreters"`
	Projects        []Project         `yaml:"projects"`
}

// Tool tells where to look for an external profiler executable.
type Tool struct {
	Path         string `yaml:"path"`
	Env          string `yaml:"env"`
	Search       string `yaml:"search"`
	InstallDir   string `yaml:"install_dir"`
	RelativePath string `yaml:"relative_path"`
}

type Project struct {
	GUID        uuid.UUID         `yaml:"guid"`
	Name        string            `yaml:"name"`
	Home        string            `yaml:"home"`
	Interpreter string            `yaml:"interpreter"`
	Script      string            `yaml:"script"`
	WorkingDir  string            `yaml:"working_dir"`
	Env         map[string]string `yaml:"env"`
}

const (
	defaultGracePeriod = 5 * time.Second
	defaultOpenCommand = "xdg-open"
	samplerEnv         = "PYPERF_SAMPLER"
	collectorEnv       = "PYPERF_COLLECTOR"
)

func Default() *Config {
	return &Config{
		Workspace:       settings.WorkspaceDir,
		OutputDir:       os.TempDir(),
		Strategy:        supervisor.StrategySampling.String(),
		StopGracePeriod: defaultGracePeriod,
		OpenCommand:     defaultOpenCommand,
		Sampler: Tool{
			Env:          samplerEnv,
			Search:       "VSPerfCmd",
			RelativePath: filepath.Join("Team Tools", "Performance Tools", "VSPerfCmd.exe"),
		},
		Collector: Tool{
			Env:          collectorEnv,
			Search:       "vtune",
			RelativePath: filepath.Join("bin64", "vtune"),
		},
		Interpreters: map[string]string{},
	}
}

// Load reads the YAML file at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(expandHome(path))
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config %s", path)
			}
		}
	}

	c.Workspace = expandHome(c.Workspace)
	c.OutputDir = expandHome(c.OutputDir)
	if c.OutputDir == "" {
		c.OutputDir = os.TempDir()
	}

	return c, nil
}

// Encode writes c as YAML, in the format Load reads.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	return enc.Close()
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var result error

	if c.Workspace == "" {
		result = multierror.Append(result, errors.New("workspace must be set"))
	}
	if _, err := supervisor.ParseStrategy(c.Strategy); err != nil {
		result = multierror.Append(result, err)
	}
	if c.StopGracePeriod < 0 {
		result = multierror.Append(result, errors.Errorf("stop_grace_period must not be negative, got %s", c.StopGracePeriod))
	}
	for id, path := range c.Interpreters {
		if path == "" {
			result = multierror.Append(result, errors.Errorf("interpreter %s has no path", id))
		}
	}

	seen := make(map[uuid.UUID]bool, len(c.Projects))
	for i, p := range c.Projects {
		label := p.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if p.GUID == uuid.Nil {
			result = multierror.Append(result, errors.Errorf("project %s has no guid", label))
		} else if seen[p.GUID] {
			result = multierror.Append(result, errors.Errorf("project %s: duplicate guid %s", label, p.GUID))
		}
		seen[p.GUID] = true
		if p.Interpreter != "" {
			if _, ok := c.Interpreters[p.Interpreter]; !ok {
				result = multierror.Append(result, errors.Errorf("project %s: unknown interpreter %s", label, p.Interpreter))
			}
		}
	}

	return result
}

// Resolver returns the launch resolver for the configured interpreters
// and projects.
func (c *Config) Resolver() *launch.StaticResolver {
	projects := make([]launch.Project, 0, len(c.Projects))
	for _, p := range c.Projects {
		projects = append(projects, launch.Project{
			GUID:        p.GUID,
			Name:        p.Name,
			Home:        expandHome(p.Home),
			Interpreter: p.Interpreter,
			Script:      p.Script,
			WorkingDir:  p.WorkingDir,
			Env:         p.Env,
		})
	}

	return launch.NewStaticResolver(c.Interpreters, projects)
}

// Project returns the project named name.
func (c *Config) Project(name string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// Locator returns the candidate chain of the tool called name.
func (t Tool) Locator(name string) *supervisor.Locator {
	candidates := []supervisor.Candidate{
		supervisor.ExplicitPath(t.Path),
		supervisor.EnvVar(t.Env),
		supervisor.SearchPath(t.Search),
		supervisor.InstallDir(expandHome(t.InstallDir), t.RelativePath),
	}

	return supervisor.NewLocator(name, candidates...)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

package supervisor

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Candidate is one place where a tool may be installed.
type Candidate struct {
	Name string
	// Find returns a candidate path, or an empty string.
	Find func() string
}

// ExplicitPath checks a configured path.
func ExplicitPath(path string) Candidate {
	return Candidate{Name: "path " + path, Find: func() string { return path }}
}

// EnvVar checks the path held by an environment variable.
func EnvVar(name string) Candidate {
	return Candidate{Name: "$" + name, Find: func() string {
		if name == "" {
			return ""
		}
		return os.Getenv(name)
	}}
}

// SearchPath searches the directories of PATH for an executable.
func SearchPath(name string) Candidate {
	return Candidate{Name: "PATH lookup of " + name, Find: func() string {
		if name == "" {
			return ""
		}
		path, err := exec.LookPath(name)
		if err != nil {
			return ""
		}
		return path
	}}
}

// InstallDir checks rel below an installation directory.
func InstallDir(dir, rel string) Candidate {
	return Candidate{Name: filepath.Join(dir, rel), Find: func() string {
		if dir == "" || rel == "" {
			return ""
		}
		return filepath.Join(dir, rel)
	}}
}

// Locator finds a tool by trying its candidates in order.
type Locator struct {
	tool   string
	candidates []Candidate
}

func NewLocator(tool string, candidates ...Candidate) *Locator {
	return &Locator{tool: tool, candidates: candidates}
}

func (l *Locator) Tool() string {
	return l.tool
}

// Locate returns the first candidate that is an existing regular file.
func (l *Locator) Locate() (string, error) {
	tried := make([]string, 0, len(l.candidates))
	for _, p := range l.candidates {
		candidate := p.Find()
		if candidate == "" {
			continue
		}
		tried = append(tried, candidate)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}

	return "", &ToolNotFoundError{Tool: l.tool, Tried: tried}
}

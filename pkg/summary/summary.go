// Package summary describes a session as a JSON document.
package summary

import (
	"encoding/json"
	"io"
	"os"

	"github.com/maxgio92/pyperf/pkg/session"
)

const (
	KindProject    = "project"
	KindStandalone = "standalone"
)

type SessionSummary struct {
	Name     string          `json:"name"`
	Filename string          `json:"filename"`
	Dirty    bool            `json:"dirty"`
	Saved    bool            `json:"saved"`
	Active   bool            `json:"active"`
	Target   TargetSummary   `json:"target"`
	Reports  []ReportSummary `json:"reports"`
}

type TargetSummary struct {
	Kind             string `json:"kind"`
	ProjectGUID      string `json:"project_guid,omitempty"`
	ProjectName      string `json:"project_name,omitempty"`
	Interpreter      string `json:"interpreter,omitempty"`
	InterpreterPath  string `json:"interpreter_path,omitempty"`
	Script           string `json:"script,omitempty"`
	Arguments        string `json:"arguments,omitempty"`
	WorkingDirectory string `json:"working_directory,omitempty"`
}

type ReportSummary struct {
	ID       uint32 `json:"id"`
	Filename string `json:"filename"`
	Exists   bool   `json:"exists"`
}

type SessionSummaryOption func(*SessionSummary)

func NewSessionSummary(opts ...SessionSummaryOption) *SessionSummary {
	summary := &SessionSummary{Reports: []ReportSummary{}}
	for _, opt := range opts {
		opt(summary)
	}

	return summary
}

func WithSummaryName(name string) SessionSummaryOption {
	return func(o *SessionSummary) {
		o.Name = name
	}
}

func WithSummaryFilename(filename string) SessionSummaryOption {
	return func(o *SessionSummary) {
		o.Filename = filename
	}
}

func WithSummaryState(dirty, saved, active bool) SessionSummaryOption {
	return func(o *SessionSummary) {
		o.Dirty = dirty
		o.Saved = saved
		o.Active = active
	}
}

func WithSummaryTarget(target *session.Target) SessionSummaryOption {
	return func(o *SessionSummary) {
		o.Target = summarizeTarget(target)
	}
}

// WithSummaryReports lists reports, checking whether their files exist.
func WithSummaryReports(reports []session.ReportEntry) SessionSummaryOption {
	return func(o *SessionSummary) {
		o.Reports = make([]ReportSummary, 0, len(reports))
		for _, r := range reports {
			_, err := os.Stat(r.Filename)
			o.Reports = append(o.Reports, ReportSummary{
				ID:       uint32(r.ID),
				Filename: r.Filename,
				Exists:   err == nil,
			})
		}
	}
}

// FromSession summarizes s. active tells whether s is the active
// session of its tree.
func FromSession(s *session.Session, active bool) *SessionSummary {
	return NewSessionSummary(
		WithSummaryName(s.Name()),
		WithSummaryFilename(s.Filename()),
		WithSummaryState(s.IsDirty(), s.IsSaved(), active),
		WithSummaryTarget(s.Target()),
		WithSummaryReports(s.Reports()),
	)
}

func summarizeTarget(t *session.Target) TargetSummary {
	switch {
	case t == nil:
		return TargetSummary{}
	case t.Project != nil:
		return TargetSummary{
			Kind:        KindProject,
			ProjectGUID: t.Project.ProjectGUID.String(),
			ProjectName: t.Project.FriendlyName,
		}
	case t.Standalone != nil:
		st := t.Standalone
		summary := TargetSummary{
			Kind:             KindStandalone,
			InterpreterPath:  st.InterpreterPath,
			Script:           st.Script,
			Arguments:        st.Arguments,
			WorkingDirectory: st.WorkingDirectory,
		}
		if st.Interpreter != nil {
			summary.Interpreter = st.Interpreter.ID
		}
		return summary
	}

	return TargetSummary{}
}

func (s *SessionSummary) WriteSummary(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

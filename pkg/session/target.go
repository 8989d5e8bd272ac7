package session

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
	"github.com/maxgio92/pyperf/pkg/slots"
)

// DefaultBaseName names sessions whose target gives no better hint.
const DefaultBaseName = "Performance"

// InterpreterRef names a configured interpreter.
type InterpreterRef struct {
	ID      string
	Version string
}

// ProjectTarget references a buildable project.
type ProjectTarget struct {
	ProjectGUID  uuid.UUID
	FriendlyName string
}

// StandaloneTarget is an interpreter running a script.
// InterpreterPath, when set, wins over Interpreter.
type StandaloneTarget struct {
	Interpreter      *InterpreterRef
	InterpreterPath  string
	WorkingDirectory string
	Script           string
	Arguments        string
}

// Report references a collected performance artifact on disk.
type Report struct {
	Filename string
}

// Target describes what to profile: exactly one of Project and
// Standalone is set. It owns the reports collected for it.
type Target struct {
	Project    *ProjectTarget
	Standalone *StandaloneTarget

	reports *slots.Table[*Report]
}

func NewProjectTarget(guid uuid.UUID, friendlyName string) *Target {
	return &Target{
		Project: &ProjectTarget{ProjectGUID: guid, FriendlyName: friendlyName},
	}
}

func NewStandaloneTarget(standalone StandaloneTarget) *Target {
	if standalone.Interpreter != nil {
		ref := *standalone.Interpreter
		standalone.Interpreter = &ref
	}
	return &Target{Standalone: &standalone}
}

// Validate checks that exactly one kind of target is set and that a
// standalone target can be launched.
func (t *Target) Validate() error {
	if t == nil {
		return ErrTargetNil
	}
	switch {
	case t.Project != nil && t.Standalone != nil:
		return ErrAmbiguousTarget
	case t.Project == nil && t.Standalone == nil:
		return ErrNoTarget
	case t.Standalone != nil:
		if t.Standalone.Script == "" {
			return ErrNoScript
		}
		if t.Standalone.InterpreterPath == "" && (t.Standalone.Interpreter == nil || t.Standalone.Interpreter.ID == "") {
			return ErrNoInterpreter
		}
	}

	return nil
}

// ProfilingName is the base name used for a session of this target.
func (t *Target) ProfilingName() string {
	switch {
	case t == nil:
	case t.Standalone != nil && t.Standalone.Script != "":
		base := filepath.Base(t.Standalone.Script)
		return strings.TrimSuffix(base, filepath.Ext(base))
	case t.Project != nil && t.Project.FriendlyName != "":
		return t.Project.FriendlyName
	}

	return DefaultBaseName
}

// Equal reports whether t and o describe the same target. Reports are
// not compared.
func (t *Target) Equal(o *Target) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !equalPtr(t.Project, o.Project, func(a, b *ProjectTarget) bool { return *a == *b }) {
		return false
	}

	return equalPtr(t.Standalone, o.Standalone, func(a, b *StandaloneTarget) bool {
		return a.InterpreterPath == b.InterpreterPath &&
			a.WorkingDirectory == b.WorkingDirectory &&
			a.Script == b.Script &&
			a.Arguments == b.Arguments &&
			equalPtr(a.Interpreter, b.Interpreter, func(x, y *InterpreterRef) bool { return *x == *y })
	})
}

func equalPtr[T any](a, b *T, eq func(a, b *T) bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return eq(a, b)
}

// Clone returns a deep copy of t, reports included. Report ids are kept.
func (t *Target) Clone() *Target {
	if t == nil {
		return nil
	}
	c := new(Target)
	if t.Project != nil {
		p := *t.Project
		c.Project = &p
	}
	if t.Standalone != nil {
		c.Standalone = NewStandaloneTarget(*t.Standalone).Standalone
	}
	if t.reports != nil {
		c.reports = t.reports.Clone(func(r *Report) *Report {
			cp := *r
			return &cp
		})
	}

	return c
}

// Reports returns the report collection, creating it on first use.
func (t *Target) Reports() *slots.Table[*Report] {
	if t.reports == nil {
		t.reports = slots.New[*Report](uint32(StartingReportID))
	}
	return t.reports
}

// ReportEntry is a report together with its item id.
type ReportEntry struct {
	ID hierarchy.ItemID
	Report
}

// ReportList returns the reports in id order.
func (t *Target) ReportList() []ReportEntry {
	var entries []ReportEntry
	for id, r := range t.Reports().Enumerate() {
		entries = append(entries, ReportEntry{ID: hierarchy.ItemID(id), Report: *r})
	}
	return entries
}

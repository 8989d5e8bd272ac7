package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
)

// Items of a session:
//
//	root     the configuration of what to profile
//	  1      the reports container
//	    2+   one item per collected report
const (
	ReportsID        hierarchy.ItemID = 1
	StartingReportID hierarchy.ItemID = 2
)

const (
	reportsCaption = "Reports"
	dirtyMarker    = "*"
)

// Session is one profiling configuration and the reports collected for
// it. A session, like the tree owning it, must only be used from the
// owner goroutine.
type Session struct {
	*hierarchy.Base

	tree     *Tree
	filename string
	target   *Target

	dirty           bool
	neverSaved      bool
	reportsExpanded bool

	docs   DocumentTracker
	logger log.Logger
}

func newSession(tree *Tree, target *Target, filename string) *Session {
	return &Session{
		Base:     hierarchy.NewBase(),
		tree:     tree,
		filename: filename,
		target:   target,
		docs:     tree.docs,
		logger:   tree.logger.With().Str("session", filepath.Base(filename)).Logger(),
	}
}

func (s *Session) Filename() string {
	return s.filename
}

// Name is the file name of the session without directory and extension.
func (s *Session) Name() string {
	base := filepath.Base(s.filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Caption is the display name, marked when there are unsaved changes.
func (s *Session) Caption() string {
	if s.dirty {
		return s.Name() + dirtyMarker
	}
	return s.Name()
}

func (s *Session) IsDirty() bool {
	return s.dirty
}

func (s *Session) NeverSaved() bool {
	return s.neverSaved
}

func (s *Session) IsSaved() bool {
	return !s.dirty && !s.neverSaved
}

// Target returns a copy of the session target.
func (s *Session) Target() *Target {
	return s.target.Clone()
}

// ID returns the item id of the session in its tree.
func (s *Session) ID() (hierarchy.ItemID, bool) {
	if s.tree == nil {
		return hierarchy.NilID, false
	}
	return s.tree.idOf(s)
}

// Reports returns the reports in id order.
func (s *Session) Reports() []ReportEntry {
	return s.target.ReportList()
}

// Report returns the report stored at id.
func (s *Session) Report(id hierarchy.ItemID) (Report, error) {
	if !s.IsReportItem(id) {
		return Report{}, &ReportNotFoundError{ID: id}
	}
	r, _ := s.target.Reports().Get(uint32(id))
	return *r, nil
}

// IsReportItem reports whether id is a live report of the session.
func (s *Session) IsReportItem(id hierarchy.ItemID) bool {
	if id < StartingReportID || id >= hierarchy.RootID {
		return false
	}
	_, ok := s.target.Reports().Get(uint32(id))
	return ok
}

// QueryDelete reports whether id can be deleted: only reports can.
func (s *Session) QueryDelete(id hierarchy.ItemID) bool {
	return s.IsReportItem(id)
}

// AddReport registers a collected report and returns its item id.
func (s *Session) AddReport(filename string) hierarchy.ItemID {
	reports := s.target.Reports()
	prev := hierarchy.NilID
	if ids := reports.IDs(); len(ids) > 0 {
		prev = hierarchy.ItemID(ids[len(ids)-1])
	}
	id := hierarchy.ItemID(reports.Add(&Report{Filename: filename}))

	s.logger.Debug().Stringer("id", id).Str("report", filename).Msg("report added")
	s.NotifyAdded(ReportsID, prev, id)
	s.markDirty()

	return id
}

// RemoveReport drops the report stored at id, and its file too when
// alsoDeleteFile is set. A viewer holding the file open is closed first.
func (s *Session) RemoveReport(id hierarchy.ItemID, alsoDeleteFile bool) error {
	report, err := s.Report(id)
	if err != nil {
		return err
	}

	s.target.Reports().RemoveAt(uint32(id))
	s.NotifyDeleted(id)
	s.NotifyInvalidateSubtree(ReportsID)
	s.markDirty()
	s.logger.Debug().Stringer("id", id).Str("report", report.Filename).Msg("report removed")

	if !alsoDeleteFile {
		return nil
	}
	if _, err := os.Stat(report.Filename); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &IOError{Op: "delete", Path: report.Filename, Err: err}
	}
	if s.docs.IsOpen(report.Filename) {
		if err := s.docs.Close(report.Filename); err != nil {
			return &IOError{Op: "close", Path: report.Filename, Err: err}
		}
	}
	if err := os.Remove(report.Filename); err != nil {
		return &IOError{Op: "delete", Path: report.Filename, Err: err}
	}

	return nil
}

// Save writes the session to filename, or to its own file when filename
// is empty. The dirty state is only cleared on success.
func (s *Session) Save(filename string) error {
	if filename == "" {
		filename = s.filename
	}
	if err := WriteTarget(filename, s.target); err != nil {
		return err
	}

	s.dirty = false
	s.neverSaved = false
	s.changed(hierarchy.PropCaption)
	s.logger.Debug().Str("path", filename).Msg("session saved")

	return nil
}

// UpdateTarget replaces what the session profiles. Collected reports
// are kept. It returns false when target describes the current target.
func (s *Session) UpdateTarget(target *Target) (bool, error) {
	if err := target.Validate(); err != nil {
		return false, err
	}
	if s.target.Equal(target) {
		return false, nil
	}

	next := target.Clone()
	next.reports = s.target.reports
	s.target = next
	s.markDirty()

	return true, nil
}

func (s *Session) markDirty() {
	s.dirty = true
	s.changed(hierarchy.PropCaption)
}

// changed notifies the session subscribers and the tree subscribers.
func (s *Session) changed(key hierarchy.PropKey) {
	s.NotifyPropertyChanged(hierarchy.RootID, key)
	if s.tree != nil {
		s.tree.sessionChanged(s, key)
	}
}

func (s *Session) GetProperty(id hierarchy.ItemID, key hierarchy.PropKey) (any, error) {
	if id != hierarchy.RootID && id != ReportsID && !s.IsReportItem(id) {
		return nil, errors.Wrapf(hierarchy.ErrUnknownItem, "item %s", id)
	}
	reports := s.target.Reports()

	switch key {
	case hierarchy.PropParent:
		switch id {
		case hierarchy.RootID:
			return hierarchy.NilID, nil
		case ReportsID:
			return hierarchy.RootID, nil
		default:
			return ReportsID, nil
		}

	case hierarchy.PropFirstChild:
		switch id {
		case hierarchy.RootID:
			return ReportsID, nil
		case ReportsID:
			if first, ok := reports.First(); ok {
				return hierarchy.ItemID(first), nil
			}
		}
		return hierarchy.NilID, nil

	case hierarchy.PropNextSibling:
		if id != hierarchy.RootID && id != ReportsID {
			if next, ok := reports.Next(uint32(id)); ok {
				return hierarchy.ItemID(next), nil
			}
		}
		return hierarchy.NilID, nil

	case hierarchy.PropCaption:
		switch id {
		case hierarchy.RootID:
			return s.Caption(), nil
		case ReportsID:
			return reportsCaption, nil
		default:
			r, _ := reports.Get(uint32(id))
			base := filepath.Base(r.Filename)
			return strings.TrimSuffix(base, filepath.Ext(base)), nil
		}

	case hierarchy.PropExpandable:
		switch id {
		case hierarchy.RootID:
			return true, nil
		case ReportsID:
			return reports.Len() > 0, nil
		default:
			return false, nil
		}

	case hierarchy.PropExpanded:
		if id == ReportsID {
			return s.reportsExpanded, nil
		}

	case hierarchy.PropExpandByDefault:
		return true, nil

	case hierarchy.PropDirty:
		if id == hierarchy.RootID {
			return s.dirty, nil
		}

	case hierarchy.PropFilename:
		switch id {
		case hierarchy.RootID:
			return s.filename, nil
		case ReportsID:
		default:
			r, _ := reports.Get(uint32(id))
			return r.Filename, nil
		}
	}

	return nil, errors.Wrapf(hierarchy.ErrNotSupported, "get %s on item %s", key, id)
}

func (s *Session) SetProperty(id hierarchy.ItemID, key hierarchy.PropKey, value any) error {
	if key == hierarchy.PropExpanded && id == ReportsID {
		expanded, ok := value.(bool)
		if !ok {
			return errors.Wrapf(ErrInvalidPropValue, "%s expects a bool, got %T", key, value)
		}
		s.reportsExpanded = expanded
		return nil
	}

	return s.Base.SetProperty(id, key, value)
}

var _ hierarchy.Node = (*Session)(nil)

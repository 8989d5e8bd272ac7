package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
	"github.com/maxgio92/pyperf/pkg/slots"
)

const (
	firstSessionID = 0
	treeCaption    = "Sessions"
)

// Tree is the root node owning every session. It is not safe for
// concurrent use: mutate it from a single owner goroutine, see the
// dispatch package.
type Tree struct {
	*hierarchy.Base

	sessions *slots.Table[*Session]
	active   *Session

	docs     DocumentTracker
	registry DocumentRegistry
	logger   log.Logger
}

type TreeOption func(t *Tree)

func WithDocumentTracker(docs DocumentTracker) TreeOption {
	return func(t *Tree) {
		t.docs = docs
	}
}

func WithDocumentRegistry(registry DocumentRegistry) TreeOption {
	return func(t *Tree) {
		t.registry = registry
	}
}

func WithLogger(logger log.Logger) TreeOption {
	return func(t *Tree) {
		t.logger = logger
	}
}

func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{
		Base:     hierarchy.NewBase(),
		sessions: slots.New[*Session](firstSessionID),
		logger:   log.Nop(),
	}
	for _, f := range opts {
		f(t)
	}
	if t.docs == nil || t.registry == nil {
		docs := NewDocumentSet()
		if t.docs == nil {
			t.docs = docs
		}
		if t.registry == nil {
			t.registry = docs
		}
	}
	t.logger = t.logger.With().Str("component", "sessions").Logger()
	t.Init()

	return t
}

// AddTarget creates a session for target. The session file is named
// after suggested, or after the target when suggested is empty, with the
// smallest numeric suffix that keeps it unique in the tree. When persist
// is set the file is written right away, otherwise the session starts
// dirty and never saved.
func (t *Tree) AddTarget(target *Target, suggested string, persist bool) (*Session, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if suggested == "" {
		suggested = target.ProfilingName()
	}
	filename := t.uniqueFilename(suggested)

	s := newSession(t, target.Clone(), filename)
	if persist {
		if err := WriteTarget(filename, s.target); err != nil {
			return nil, err
		}
	} else {
		s.dirty = true
		s.neverSaved = true
	}
	if err := t.insert(s); err != nil {
		return nil, err
	}

	return s, nil
}

// OpenTarget creates a session for target backed by filename, which must
// not back another session of the tree.
func (t *Tree) OpenTarget(target *Target, filename string) (*Session, error) {
	if t.Find(filename) != nil {
		return nil, &DuplicateSessionError{Filename: filename}
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	s := newSession(t, target.Clone(), filename)
	if err := t.insert(s); err != nil {
		return nil, err
	}

	return s, nil
}

// Open loads the session file at filename into the tree.
func (t *Tree) Open(filename string) (*Session, error) {
	if t.Find(filename) != nil {
		return nil, &DuplicateSessionError{Filename: filename}
	}
	target, err := ReadTarget(filename)
	if err != nil {
		return nil, err
	}

	return t.OpenTarget(target, filename)
}

// Load opens every session file of dir in name order. Files that fail
// to load are skipped and reported together.
func (t *Tree) Load(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+Ext))
	if err != nil {
		return errors.Wrapf(err, "failed to list sessions in %s", dir)
	}
	sort.Strings(matches)

	var result error
	for _, path := range matches {
		if _, err := t.Open(path); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result
}

func (t *Tree) insert(s *Session) error {
	if err := t.registry.Register(s.filename); err != nil {
		return errors.Wrapf(err, "failed to register %s", s.filename)
	}

	id := hierarchy.ItemID(t.sessions.Add(s))
	prev := hierarchy.NilID
	if p, ok := t.sessions.Prev(uint32(id)); ok {
		prev = hierarchy.ItemID(p)
	}
	s.Init()
	t.logger.Debug().Stringer("id", id).Str("path", s.filename).Msg("session added")
	t.NotifyAdded(hierarchy.RootID, prev, id)

	if t.active == nil {
		t.setActive(s)
	}

	return nil
}

func (t *Tree) uniqueFilename(suggested string) string {
	dir, base := filepath.Split(suggested)
	base = strings.TrimSuffix(base, Ext)

	filename := filepath.Join(dir, base+Ext)
	for i := 1; t.Find(filename) != nil; i++ {
		filename = filepath.Join(dir, fmt.Sprintf("%s%d%s", base, i, Ext))
	}

	return filename
}

// Find returns the session backed by filename, or nil.
func (t *Tree) Find(filename string) *Session {
	for _, s := range t.sessions.Enumerate() {
		if SamePath(s.filename, filename) {
			return s
		}
	}
	return nil
}

// FindByName returns the session whose name is name, or nil.
func (t *Tree) FindByName(name string) *Session {
	for _, s := range t.sessions.Enumerate() {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Session returns the session with item id.
func (t *Tree) Session(id hierarchy.ItemID) (*Session, bool) {
	return t.sessions.Get(uint32(id))
}

// Sessions returns the sessions in insertion order.
func (t *Tree) Sessions() []*Session {
	sessions := make([]*Session, 0, t.sessions.Len())
	for _, s := range t.sessions.Enumerate() {
		sessions = append(sessions, s)
	}
	return sessions
}

func (t *Tree) Len() int {
	return t.sessions.Len()
}

// Active returns the active session, nil when the tree is empty.
func (t *Tree) Active() *Session {
	return t.active
}

// SetActive makes s the active session.
func (t *Tree) SetActive(s *Session) error {
	if _, ok := t.idOf(s); !ok {
		return ErrSessionNotFound
	}
	t.setActive(s)

	return nil
}

func (t *Tree) setActive(s *Session) {
	prev := t.active
	if prev == s {
		return
	}
	t.active = s

	if prev != nil {
		if id, ok := t.idOf(prev); ok {
			t.NotifyPropertyChanged(id, hierarchy.PropBold)
		}
	}
	if s != nil {
		if id, ok := t.idOf(s); ok {
			t.NotifyPropertyChanged(id, hierarchy.PropBold)
		}
	}
}

// Remove drops s from the tree, and its file too when deleteFromDisk is
// set. Removing the active session activates the first remaining one.
func (t *Tree) Remove(s *Session, deleteFromDisk bool) error {
	id, ok := t.idOf(s)
	if !ok {
		return ErrSessionNotFound
	}

	if err := t.registry.Unregister(s.filename); err != nil {
		t.logger.Warn().Err(err).Str("path", s.filename).Msg("failed to unregister session")
	}
	t.sessions.RemoveAt(uint32(id))
	t.NotifyDeleted(id)
	t.NotifyInvalidateSubtree(hierarchy.RootID)

	if t.active == s {
		t.active = nil
		if first, ok := t.sessions.First(); ok {
			next, _ := t.sessions.Get(first)
			t.setActive(next)
		}
	}
	s.tree = nil
	s.Close()
	t.logger.Debug().Stringer("id", id).Str("path", s.filename).Msg("session removed")

	if !deleteFromDisk {
		return nil
	}
	if err := os.Remove(s.filename); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: "delete", Path: s.filename, Err: err}
	}

	return nil
}

// Close closes every session and the tree itself.
func (t *Tree) Close() error {
	for _, s := range t.sessions.Enumerate() {
		s.Close()
	}
	return t.Base.Close()
}

func (t *Tree) idOf(s *Session) (hierarchy.ItemID, bool) {
	if s == nil {
		return hierarchy.NilID, false
	}
	id, ok := t.sessions.IDOf(s)
	return hierarchy.ItemID(id), ok
}

func (t *Tree) sessionChanged(s *Session, key hierarchy.PropKey) {
	if id, ok := t.idOf(s); ok {
		t.NotifyPropertyChanged(id, key)
	}
}

func (t *Tree) GetProperty(id hierarchy.ItemID, key hierarchy.PropKey) (any, error) {
	if id == hierarchy.RootID {
		switch key {
		case hierarchy.PropParent, hierarchy.PropNextSibling:
			return hierarchy.NilID, nil
		case hierarchy.PropFirstChild:
			if first, ok := t.sessions.First(); ok {
				return hierarchy.ItemID(first), nil
			}
			return hierarchy.NilID, nil
		case hierarchy.PropCaption:
			return treeCaption, nil
		case hierarchy.PropExpandable:
			return t.sessions.Len() > 0, nil
		case hierarchy.PropExpandByDefault:
			return true, nil
		}
		return nil, errors.Wrapf(hierarchy.ErrNotSupported, "get %s on item %s", key, id)
	}

	s, ok := t.sessions.Get(uint32(id))
	if !ok {
		return nil, errors.Wrapf(hierarchy.ErrUnknownItem, "item %s", id)
	}
	switch key {
	case hierarchy.PropParent:
		return hierarchy.RootID, nil
	case hierarchy.PropFirstChild:
		return hierarchy.NilID, nil
	case hierarchy.PropNextSibling:
		if next, ok := t.sessions.Next(uint32(id)); ok {
			return hierarchy.ItemID(next), nil
		}
		return hierarchy.NilID, nil
	case hierarchy.PropCaption:
		return s.Caption(), nil
	case hierarchy.PropBold:
		return s == t.active, nil
	case hierarchy.PropDirty:
		return s.dirty, nil
	case hierarchy.PropFilename:
		return s.filename, nil
	case hierarchy.PropExpandable:
		return true, nil
	}

	return nil, errors.Wrapf(hierarchy.ErrNotSupported, "get %s on item %s", key, id)
}

var _ hierarchy.Node = (*Tree)(nil)

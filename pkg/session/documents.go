package session

import (
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// DocumentTracker knows which report files are open in a viewer.
type DocumentTracker interface {
	IsOpen(path string) bool
	Close(path string) error
}

// DocumentRegistry tracks the session files backing live sessions.
type DocumentRegistry interface {
	Register(path string) error
	Unregister(path string) error
}

// DocumentSet is an in-memory DocumentTracker and DocumentRegistry.
type DocumentSet struct {
	mu         sync.Mutex
	open       map[string]struct{}
	registered map[string]struct{}
}

func NewDocumentSet() *DocumentSet {
	return &DocumentSet{
		open:       make(map[string]struct{}),
		registered: make(map[string]struct{}),
	}
}

// Open marks path as open in a viewer.
func (d *DocumentSet) Open(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open[pathKey(path)] = struct{}{}
}

func (d *DocumentSet) IsOpen(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.open[pathKey(path)]
	return ok
}

func (d *DocumentSet) Close(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.open, pathKey(path))
	return nil
}

func (d *DocumentSet) Register(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.registered[pathKey(path)] = struct{}{}
	return nil
}

func (d *DocumentSet) Unregister(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.registered, pathKey(path))
	return nil
}

// IsRegistered reports whether path backs a live session.
func (d *DocumentSet) IsRegistered(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.registered[pathKey(path)]
	return ok
}

// pathKey normalizes path for comparison on the host filesystem.
func pathKey(path string) string {
	p := filepath.Clean(path)
	if caseInsensitiveFS() {
		p = strings.ToLower(p)
	}
	return p
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// SamePath reports whether a and b name the same file on the host
// filesystem.
func SamePath(a, b string) bool {
	return pathKey(a) == pathKey(b)
}

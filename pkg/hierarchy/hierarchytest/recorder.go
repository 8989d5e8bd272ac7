// Package hierarchytest provides a Sink that records notifications.
package hierarchytest

import (
	"fmt"
	"sync"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
)

// Event is a recorded notification.
type Event struct {
	Kind        string
	Parent      hierarchy.ItemID
	PrevSibling hierarchy.ItemID
	ID          hierarchy.ItemID
	Key         hierarchy.PropKey
}

func (e Event) String() string {
	switch e.Kind {
	case KindAdded:
		return fmt.Sprintf("%s(%s,%s,%s)", e.Kind, e.Parent, e.PrevSibling, e.ID)
	case KindProperty:
		return fmt.Sprintf("%s(%s,%s)", e.Kind, e.ID, e.Key)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.ID)
	}
}

const (
	KindAdded      = "added"
	KindDeleted    = "deleted"
	KindInvalidate = "invalidate"
	KindProperty   = "property"
)

// Recorder appends every notification it receives, optionally to a log
// shared with other recorders so the global order can be checked.
type Recorder struct {
	Name string

	mu     sync.Mutex
	events []Event
	shared *Log
}

// Log collects events from several recorders in arrival order.
type Log struct {
	mu      sync.Mutex
	entries []string
}

func (l *Log) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func NewRecorder(name string, shared *Log) *Recorder {
	return &Recorder{Name: name, shared: shared}
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()

	if r.shared != nil {
		r.shared.add(r.Name + ":" + e.String())
	}
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the kind of every recorded event.
func (r *Recorder) Kinds() []string {
	var kinds []string
	for _, e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *Recorder) OnItemAdded(parent, prevSibling, added hierarchy.ItemID) {
	r.record(Event{Kind: KindAdded, Parent: parent, PrevSibling: prevSibling, ID: added})
}

func (r *Recorder) OnItemDeleted(id hierarchy.ItemID) {
	r.record(Event{Kind: KindDeleted, ID: id})
}

func (r *Recorder) OnInvalidateItems(parent hierarchy.ItemID) {
	r.record(Event{Kind: KindInvalidate, ID: parent})
}

func (r *Recorder) OnPropertyChanged(id hierarchy.ItemID, key hierarchy.PropKey) {
	r.record(Event{Kind: KindProperty, ID: id, Key: key})
}

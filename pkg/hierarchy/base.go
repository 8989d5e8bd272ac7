package hierarchy

import (
	"github.com/pkg/errors"

	"github.com/maxgio92/pyperf/pkg/slots"
)

// State is the lifecycle state of a node.
type State int

const (
	StateUninitialized State = iota
	StateLive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLive:
		return "live"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Cookies handed to subscribers start here, zero is never a valid cookie.
const firstCookie = 1

// Base implements the subscriber registry and the default capabilities
// of a Node. It is meant to be embedded.
type Base struct {
	state State
	sinks *slots.Table[Sink]
}

func NewBase() *Base {
	return &Base{
		sinks: slots.New[Sink](firstCookie),
	}
}

// Init moves the node to the live state.
func (b *Base) Init() {
	if b.state == StateUninitialized {
		b.state = StateLive
	}
}

func (b *Base) State() State {
	return b.state
}

// Close drops every subscriber. Notifications after Close are discarded.
func (b *Base) Close() error {
	if b.state == StateClosed {
		return nil
	}
	b.state = StateClosed
	for cookie := range b.sinks.Enumerate() {
		b.sinks.RemoveAt(cookie)
	}

	return nil
}

// SetProperty rejects every key, concrete nodes override it for the keys
// they accept.
func (b *Base) SetProperty(_ ItemID, key PropKey, _ any) error {
	return errors.Wrapf(ErrNotSupported, "set %s", key)
}

func (b *Base) Subscribe(sink Sink) (uint32, error) {
	if sink == nil {
		return 0, ErrNilSink
	}
	if b.state == StateClosed {
		return 0, ErrClosed
	}

	return b.sinks.Add(sink), nil
}

func (b *Base) Unsubscribe(cookie uint32) error {
	if _, ok := b.sinks.Get(cookie); !ok {
		return errors.Wrapf(ErrUnknownCookie, "cookie %d", cookie)
	}
	b.sinks.RemoveAt(cookie)

	return nil
}

// Subscribers returns the number of registered sinks.
func (b *Base) Subscribers() int {
	return b.sinks.Len()
}

// NotifyAdded tells every subscriber that added was inserted under parent
// after prevSibling.
func (b *Base) NotifyAdded(parent, prevSibling, added ItemID) {
	b.fanOut(func(s Sink) { s.OnItemAdded(parent, prevSibling, added) })
}

// NotifyDeleted tells every subscriber that id is gone.
func (b *Base) NotifyDeleted(id ItemID) {
	b.fanOut(func(s Sink) { s.OnItemDeleted(id) })
}

// NotifyInvalidateSubtree asks every subscriber to refetch the children
// of parent.
func (b *Base) NotifyInvalidateSubtree(parent ItemID) {
	b.fanOut(func(s Sink) { s.OnInvalidateItems(parent) })
}

// NotifyPropertyChanged tells every subscriber that key changed on id.
func (b *Base) NotifyPropertyChanged(id ItemID, key PropKey) {
	b.fanOut(func(s Sink) { s.OnPropertyChanged(id, key) })
}

// fanOut walks a snapshot of the registry in registration order, so sinks
// may unsubscribe themselves or others while being notified.
func (b *Base) fanOut(notify func(Sink)) {
	if b.state != StateLive {
		return
	}
	snapshot := make([]Sink, 0, b.sinks.Len())
	for _, sink := range b.sinks.Enumerate() {
		snapshot = append(snapshot, sink)
	}
	for _, sink := range snapshot {
		notify(sink)
	}
}

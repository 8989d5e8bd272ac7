package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/hierarchy"
	"github.com/maxgio92/pyperf/pkg/hierarchy/hierarchytest"
)

// listNode exposes a flat list of children under the root.
type listNode struct {
	*hierarchy.Base
	children []hierarchy.ItemID
}

func newListNode(children ...hierarchy.ItemID) *listNode {
	n := &listNode{Base: hierarchy.NewBase(), children: children}
	n.Init()
	return n
}

func (n *listNode) GetProperty(id hierarchy.ItemID, key hierarchy.PropKey) (any, error) {
	switch key {
	case hierarchy.PropParent:
		if id == hierarchy.RootID {
			return hierarchy.NilID, nil
		}
		return hierarchy.RootID, nil
	case hierarchy.PropFirstChild:
		if id == hierarchy.RootID && len(n.children) > 0 {
			return n.children[0], nil
		}
		return hierarchy.NilID, nil
	case hierarchy.PropNextSibling:
		for i, c := range n.children {
			if c == id && i+1 < len(n.children) {
				return n.children[i+1], nil
			}
		}
		return hierarchy.NilID, nil
	}
	return nil, hierarchy.ErrNotSupported
}

var _ hierarchy.Node = (*listNode)(nil)

func TestNavigation(t *testing.T) {
	n := newListNode(4, 7, 9)

	require.Equal(t, []hierarchy.ItemID{4, 7, 9}, hierarchy.Children(n, hierarchy.RootID))
	require.Empty(t, hierarchy.Children(n, 4))
	require.Equal(t, hierarchy.RootID, hierarchy.Parent(n, 7))
	require.Equal(t, hierarchy.NilID, hierarchy.Parent(n, hierarchy.RootID))
}

func TestSetPropertyNotSupportedByDefault(t *testing.T) {
	n := newListNode()

	err := n.SetProperty(hierarchy.RootID, hierarchy.PropCaption, "x")
	require.ErrorIs(t, err, hierarchy.ErrNotSupported)
}

func TestFanOutInRegistrationOrder(t *testing.T) {
	n := newListNode()
	log := new(hierarchytest.Log)
	a := hierarchytest.NewRecorder("a", log)
	b := hierarchytest.NewRecorder("b", log)

	_, err := n.Subscribe(a)
	require.NoError(t, err)
	_, err = n.Subscribe(b)
	require.NoError(t, err)

	n.NotifyDeleted(3)
	n.NotifyInvalidateSubtree(hierarchy.RootID)

	require.Equal(t, []string{
		"a:deleted(3)",
		"b:deleted(3)",
		"a:invalidate(root)",
		"b:invalidate(root)",
	}, log.Entries())
}

// selfRemovingSink unsubscribes a cookie while being notified.
type selfRemovingSink struct {
	*hierarchytest.Recorder
	node   hierarchy.Node
	cookie uint32
}

func (s *selfRemovingSink) OnItemDeleted(id hierarchy.ItemID) {
	s.Recorder.OnItemDeleted(id)
	_ = s.node.Unsubscribe(s.cookie)
}

func TestUnsubscribeDuringFanOut(t *testing.T) {
	n := newListNode()
	first := &selfRemovingSink{Recorder: hierarchytest.NewRecorder("first", nil), node: n}
	second := hierarchytest.NewRecorder("second", nil)

	cookie, err := n.Subscribe(first)
	require.NoError(t, err)
	secondCookie, err := n.Subscribe(second)
	require.NoError(t, err)
	first.cookie = secondCookie

	require.NotPanics(t, func() { n.NotifyDeleted(5) })

	// The snapshot still reached the removed subscriber.
	require.Equal(t, []string{hierarchytest.KindDeleted}, second.Kinds())
	require.Equal(t, 1, n.Subscribers())

	n.NotifyDeleted(6)
	require.Len(t, second.Events(), 1)
	require.Len(t, first.Events(), 2)

	require.NoError(t, n.Unsubscribe(cookie))
	require.ErrorIs(t, n.Unsubscribe(cookie), hierarchy.ErrUnknownCookie)
}

func TestLifecycle(t *testing.T) {
	n := &listNode{Base: hierarchy.NewBase()}
	require.Equal(t, hierarchy.StateUninitialized, n.State())

	r := hierarchytest.NewRecorder("r", nil)
	_, err := n.Subscribe(r)
	require.NoError(t, err)

	// Not live yet, nothing is delivered.
	n.NotifyDeleted(1)
	require.Empty(t, r.Events())

	n.Init()
	require.Equal(t, hierarchy.StateLive, n.State())
	n.NotifyPropertyChanged(hierarchy.RootID, hierarchy.PropCaption)
	require.Len(t, r.Events(), 1)

	require.NoError(t, n.Close())
	require.Equal(t, hierarchy.StateClosed, n.State())
	require.Zero(t, n.Subscribers())

	_, err = n.Subscribe(r)
	require.ErrorIs(t, err, hierarchy.ErrClosed)
	_, err = n.Subscribe(nil)
	require.ErrorIs(t, err, hierarchy.ErrNilSink)
}

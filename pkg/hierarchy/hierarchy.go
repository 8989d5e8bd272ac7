// Package hierarchy models a navigable tree of items exposed by a node.
//
// A Node answers property queries for the items it owns, identified by
// ItemID, and fans structural changes out to every subscribed Sink.
// Concrete nodes embed *Base, which provides the subscriber registry,
// the lifecycle, and no-op defaults for every optional capability; they
// only have to implement GetProperty.
package hierarchy

import "fmt"

// ItemID identifies an item within a node.
type ItemID uint32

const (
	// RootID is the item representing the node itself.
	RootID ItemID = 0xFFFFFFFE
	// NilID is the absence of an item.
	NilID ItemID = 0xFFFFFFFF
)

func (id ItemID) String() string {
	switch id {
	case RootID:
		return "root"
	case NilID:
		return "nil"
	default:
		return fmt.Sprintf("%d", uint32(id))
	}
}

// PropKey names a property of an item.
type PropKey int

const (
	PropParent PropKey = iota
	PropFirstChild
	PropNextSibling
	PropCaption
	PropExpandable
	PropExpanded
	PropExpandByDefault
	PropBold
	PropDirty
	PropFilename
)

var propNames = map[PropKey]string{
	PropParent:          "parent",
	PropFirstChild:      "first-child",
	PropNextSibling:     "next-sibling",
	PropCaption:         "caption",
	PropExpandable:      "expandable",
	PropExpanded:        "expanded",
	PropExpandByDefault: "expand-by-default",
	PropBold:            "bold",
	PropDirty:           "dirty",
	PropFilename:        "filename",
}

func (k PropKey) String() string {
	if name, ok := propNames[k]; ok {
		return name
	}
	return fmt.Sprintf("prop(%d)", int(k))
}

// Sink receives change notifications from a node.
// Implementations must be comparable (pointer receivers are).
type Sink interface {
	OnItemAdded(parent, prevSibling, added ItemID)
	OnItemDeleted(id ItemID)
	OnInvalidateItems(parent ItemID)
	OnPropertyChanged(id ItemID, key PropKey)
}

// Node is the capability surface of a tree node.
type Node interface {
	GetProperty(id ItemID, key PropKey) (any, error)
	SetProperty(id ItemID, key PropKey, value any) error
	Subscribe(sink Sink) (uint32, error)
	Unsubscribe(cookie uint32) error
	Close() error
}

// Parent returns the parent of id, or NilID.
func Parent(n Node, id ItemID) ItemID {
	return idProperty(n, id, PropParent)
}

// Children returns the children of id in sibling order.
func Children(n Node, id ItemID) []ItemID {
	var children []ItemID
	for child := idProperty(n, id, PropFirstChild); child != NilID; child = idProperty(n, child, PropNextSibling) {
		children = append(children, child)
	}

	return children
}

func idProperty(n Node, id ItemID, key PropKey) ItemID {
	v, err := n.GetProperty(id, key)
	if err != nil {
		return NilID
	}
	if item, ok := v.(ItemID); ok {
		return item
	}

	return NilID
}

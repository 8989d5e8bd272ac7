// Package slots allocates stable integer identifiers for items.
//
// Identifiers start at a configurable floor and only grow: an identifier
// handed out once is never handed out again, even after its item has
// been removed.
package slots

import (
	"iter"
	"slices"
)

// Table maps identifiers to items and items back to identifiers.
// It is not safe for concurrent use.
type Table[T comparable] struct {
	floor uint32
	next  uint32

	ids   []uint32
	items map[uint32]T
	index map[T]uint32
}

func New[T comparable](floor uint32) *Table[T] {
	return &Table[T]{
		floor: floor,
		next:  floor,
		items: make(map[uint32]T),
		index: make(map[T]uint32),
	}
}

// Add stores item and returns its identifier.
func (t *Table[T]) Add(item T) uint32 {
	id := t.next
	t.next++

	t.ids = append(t.ids, id)
	t.items[id] = item
	t.index[item] = id

	return id
}

// RemoveAt drops the item stored at id. Unknown identifiers are ignored.
func (t *Table[T]) RemoveAt(id uint32) {
	item, ok := t.items[id]
	if !ok {
		return
	}
	delete(t.items, id)
	if i, found := slices.BinarySearch(t.ids, id); found {
		t.ids = slices.Delete(t.ids, i, i+1)
	}

	if t.index[item] == id {
		delete(t.index, item)
		t.reindex(item)
	}
}

// reindex points item at the newest live identifier still holding it.
func (t *Table[T]) reindex(item T) {
	for i := len(t.ids) - 1; i >= 0; i-- {
		if stored, ok := t.items[t.ids[i]]; ok && stored == item {
			t.index[item] = t.ids[i]
			return
		}
	}
}

// Get returns the item stored at id.
func (t *Table[T]) Get(id uint32) (T, bool) {
	item, ok := t.items[id]
	return item, ok
}

// IDOf returns the identifier of item. An item stored more than once
// resolves to its newest live identifier.
func (t *Table[T]) IDOf(item T) (uint32, bool) {
	id, ok := t.index[item]
	return id, ok
}

func (t *Table[T]) Len() int {
	return len(t.ids)
}

// Floor returns the smallest identifier the table can hand out.
func (t *Table[T]) Floor() uint32 {
	return t.floor
}

// IDs returns the live identifiers in ascending order.
func (t *Table[T]) IDs() []uint32 {
	return slices.Clone(t.ids)
}

// First returns the smallest live identifier.
func (t *Table[T]) First() (uint32, bool) {
	if len(t.ids) == 0 {
		return 0, false
	}
	return t.ids[0], true
}

// Next returns the smallest live identifier greater than id.
func (t *Table[T]) Next(id uint32) (uint32, bool) {
	i, found := slices.BinarySearch(t.ids, id)
	if found {
		i++
	}
	if i >= len(t.ids) {
		return 0, false
	}
	return t.ids[i], true
}

// Prev returns the greatest live identifier smaller than id.
func (t *Table[T]) Prev(id uint32) (uint32, bool) {
	i, _ := slices.BinarySearch(t.ids, id)
	if i == 0 {
		return 0, false
	}
	return t.ids[i-1], true
}

// Enumerate yields the live (id, item) pairs in ascending id order.
// The table may be mutated while iterating; the sequence reflects the
// identifiers live when iteration started.
func (t *Table[T]) Enumerate() iter.Seq2[uint32, T] {
	ids := t.IDs()
	return func(yield func(uint32, T) bool) {
		for _, id := range ids {
			item, ok := t.items[id]
			if !ok {
				continue
			}
			if !yield(id, item) {
				return
			}
		}
	}
}

// Clone copies the table, preserving identifiers and the allocation
// counter. copyItem may be nil to share items.
func (t *Table[T]) Clone(copyItem func(T) T) *Table[T] {
	c := New[T](t.floor)
	c.next = t.next
	for _, id := range t.ids {
		item := t.items[id]
		if copyItem != nil {
			item = copyItem(item)
		}
		c.ids = append(c.ids, id)
		c.items[id] = item
		c.index[item] = id
	}

	return c
}

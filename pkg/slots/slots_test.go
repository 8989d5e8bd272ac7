package slots_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/pkg/slots"
)

type item struct{ name string }

func TestTable_AddStartsAtFloor(t *testing.T) {
	table := slots.New[*item](2)

	require.Equal(t, uint32(2), table.Add(&item{"a"}))
	require.Equal(t, uint32(3), table.Add(&item{"b"}))
	require.Equal(t, 2, table.Len())
}

func TestTable_IdsAreNeverReused(t *testing.T) {
	table := slots.New[*item](0)

	a, b := &item{"a"}, &item{"b"}
	idA := table.Add(a)
	idB := table.Add(b)

	table.RemoveAt(idB)
	table.RemoveAt(idA)
	require.Zero(t, table.Len())

	idC := table.Add(&item{"c"})
	require.Greater(t, idC, idB)
}

func TestTable_Lookup(t *testing.T) {
	table := slots.New[*item](10)
	a := &item{"a"}
	id := table.Add(a)

	got, ok := table.Get(id)
	require.True(t, ok)
	require.Same(t, a, got)

	gotID, ok := table.IDOf(a)
	require.True(t, ok)
	require.Equal(t, id, gotID)

	_, ok = table.Get(99)
	require.False(t, ok)

	table.RemoveAt(id)
	_, ok = table.IDOf(a)
	require.False(t, ok)

	require.NotPanics(t, func() { table.RemoveAt(12345) })
}

func TestTable_DuplicateItemKeepsReverseLookup(t *testing.T) {
	table := slots.New[*item](1)
	a := &item{"a"}
	first := table.Add(a)
	second := table.Add(a)
	third := table.Add(a)

	id, ok := table.IDOf(a)
	require.True(t, ok)
	require.Equal(t, third, id)

	table.RemoveAt(third)
	id, ok = table.IDOf(a)
	require.True(t, ok)
	require.Equal(t, second, id)

	table.RemoveAt(first)
	id, ok = table.IDOf(a)
	require.True(t, ok)
	require.Equal(t, second, id)

	table.RemoveAt(second)
	_, ok = table.IDOf(a)
	require.False(t, ok)
	require.Zero(t, table.Len())
}

func TestTable_Navigation(t *testing.T) {
	table := slots.New[*item](2)
	ids := make([]uint32, 0)
	for _, n := range []string{"a", "b", "c", "d"} {
		ids = append(ids, table.Add(&item{n}))
	}
	table.RemoveAt(ids[1])

	first, ok := table.First()
	require.True(t, ok)
	require.Equal(t, ids[0], first)

	next, ok := table.Next(ids[0])
	require.True(t, ok)
	require.Equal(t, ids[2], next)

	// Next works from a removed identifier too.
	next, ok = table.Next(ids[1])
	require.True(t, ok)
	require.Equal(t, ids[2], next)

	_, ok = table.Next(ids[3])
	require.False(t, ok)

	prev, ok := table.Prev(ids[2])
	require.True(t, ok)
	require.Equal(t, ids[0], prev)

	_, ok = table.Prev(ids[0])
	require.False(t, ok)
}

func TestTable_EnumerateSnapshot(t *testing.T) {
	table := slots.New[*item](0)
	for _, n := range []string{"a", "b", "c"} {
		table.Add(&item{n})
	}

	var names []string
	for id, it := range table.Enumerate() {
		if id == 0 {
			table.RemoveAt(1)
		}
		names = append(names, it.name)
	}

	require.Equal(t, []string{"a", "c"}, names)
}

func TestTable_Clone(t *testing.T) {
	table := slots.New[*item](2)
	a := &item{"a"}
	table.Add(a)
	table.RemoveAt(table.Add(&item{"b"}))

	clone := table.Clone(func(i *item) *item {
		c := *i
		return &c
	})

	got, ok := clone.Get(2)
	require.True(t, ok)
	require.NotSame(t, a, got)
	require.Equal(t, "a", got.name)

	// The allocation counter is carried over.
	require.Equal(t, uint32(4), clone.Add(&item{"c"}))
	require.Equal(t, 1, table.Len())
}

package paging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(start, size int) []Entry[int, string] {
	entries := make([]Entry[int, string], size)
	for i := range entries {
		entries[i] = Entry[int, string]{Key: start + i, Value: fmt.Sprintf("v%d", start+i)}
	}
	return entries
}

func checkInvariants(t *testing.T, w Window[int, string]) {
	t.Helper()

	require.Equal(t, w.LastPage()-w.FirstPage()+1, w.PageCount(), "page count must match page-number span")

	union := make(map[int]struct{})
	for i := 0; i < w.PageCount(); i++ {
		for _, k := range w.PageKeys(i) {
			union[k] = struct{}{}
		}
	}
	require.Equal(t, len(union), w.Len(), "merged must equal the union of page keys")
	for k := range union {
		_, ok := w.Get(k)
		require.True(t, ok, "key %d missing from merged", k)
	}
}

func TestNew(t *testing.T) {
	w := New(5, 0, [][]Entry[int, string]{page(0, 10), page(10, 10)}, false, true)

	assert.Equal(t, 5, w.StartIndex())
	assert.Equal(t, 0, w.FirstPage())
	assert.Equal(t, 1, w.LastPage())
	assert.Equal(t, 20, w.Len())
	assert.False(t, w.HasMoreLeft())
	assert.True(t, w.HasMoreRight())
	checkInvariants(t, w)
}

func TestShiftRight(t *testing.T) {
	w := New(0, 0, [][]Entry[int, string]{page(0, 4), page(4, 4)}, false, true)

	shifted := w.ShiftRight(page(8, 4), false)

	assert.Equal(t, -4, shifted.StartIndex())
	assert.Equal(t, 1, shifted.FirstPage())
	assert.Equal(t, 2, shifted.LastPage())
	assert.Equal(t, 2, shifted.PageCount())
	assert.True(t, shifted.HasMoreLeft(), "eviction leaves content to the left")
	assert.False(t, shifted.HasMoreRight())

	_, ok := shifted.Get(0)
	assert.False(t, ok, "evicted entry must be gone from merged")
	_, ok = shifted.Get(8)
	assert.True(t, ok)
	checkInvariants(t, shifted)

	// The receiver is untouched.
	assert.Equal(t, 0, w.FirstPage())
	assert.Equal(t, 8, w.Len())
}

func TestShiftLeft(t *testing.T) {
	w := New(0, 2, [][]Entry[int, string]{page(8, 4), page(12, 4)}, true, false)

	shifted := w.ShiftLeft(page(4, 4), false)

	assert.Equal(t, 4, shifted.StartIndex())
	assert.Equal(t, 1, shifted.FirstPage())
	assert.Equal(t, 2, shifted.LastPage())
	assert.False(t, shifted.HasMoreLeft())
	assert.True(t, shifted.HasMoreRight(), "eviction leaves content to the right")

	_, ok := shifted.Get(12)
	assert.False(t, ok, "evicted entry must be gone from merged")
	_, ok = shifted.Get(4)
	assert.True(t, ok)
	checkInvariants(t, shifted)
}

func TestExpandRight(t *testing.T) {
	w := New(3, 0, [][]Entry[int, string]{page(0, 4)}, false, true)

	expanded := w.ExpandRight(page(4, 4), true)

	assert.Equal(t, 3, expanded.StartIndex(), "anchor unchanged")
	assert.Equal(t, 0, expanded.FirstPage())
	assert.Equal(t, 1, expanded.LastPage())
	assert.Equal(t, 8, expanded.Len())
	assert.True(t, expanded.HasMoreRight())
	checkInvariants(t, expanded)
}

func TestExpandLeft(t *testing.T) {
	w := New(0, 1, [][]Entry[int, string]{page(4, 4)}, true, false)

	expanded := w.ExpandLeft(page(0, 4), false)

	assert.Equal(t, 4, expanded.StartIndex(), "anchor shifts right by new page size")
	assert.Equal(t, 0, expanded.FirstPage())
	assert.Equal(t, 1, expanded.LastPage())
	assert.False(t, expanded.HasMoreLeft())
	assert.False(t, expanded.HasMoreRight())
	checkInvariants(t, expanded)
}

func TestShiftKeepsKeysSharedWithSurvivingPages(t *testing.T) {
	entries := func(keys ...int) []Entry[int, string] {
		out := make([]Entry[int, string], len(keys))
		for i, k := range keys {
			out[i] = Entry[int, string]{Key: k, Value: fmt.Sprintf("v%d", k)}
		}
		return out
	}

	// Key 2 occurs in both pages; evicting the page that carries it must not
	// drop it from merged while the other page still holds it.
	w := New(0, 0, [][]Entry[int, string]{entries(1, 2), entries(2, 3)}, false, true)

	shifted := w.ShiftRight(entries(4), false)
	checkInvariants(t, shifted)
	_, ok := shifted.Get(2)
	assert.True(t, ok, "key shared with a surviving page must stay loaded")
	_, ok = shifted.Get(1)
	assert.False(t, ok, "key unique to the evicted page must be dropped")

	back := w.ShiftLeft(entries(0), false)
	checkInvariants(t, back)
	_, ok = back.Get(2)
	assert.True(t, ok, "key shared with a surviving page must stay loaded")
	_, ok = back.Get(3)
	assert.False(t, ok, "key unique to the evicted page must be dropped")
}

func TestShiftRoundTripPreservesSpan(t *testing.T) {
	w := New(0, 0, [][]Entry[int, string]{page(0, 4), page(4, 4), page(8, 4)}, false, true)
	span := w.LastPage() - w.FirstPage()

	shifted := w.ShiftRight(page(12, 4), true)
	restored := shifted.ShiftLeft(page(0, 4), false)

	assert.Equal(t, span, restored.LastPage()-restored.FirstPage())
	assert.Equal(t, w.PageCount(), restored.PageCount())
	checkInvariants(t, restored)
}

func TestKeysPreserveOrder(t *testing.T) {
	w := New(0, 0, [][]Entry[int, string]{page(0, 3), page(3, 3)}, false, true)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, w.Keys())

	expanded := w.ExpandLeft([]Entry[int, string]{{Key: -2, Value: "a"}, {Key: -1, Value: "b"}}, false)
	assert.Equal(t, []int{-2, -1, 0, 1, 2, 3, 4, 5}, expanded.Keys())
}

func TestInvariantsUnderOperationSequences(t *testing.T) {
	w := New(0, 0, [][]Entry[int, string]{page(0, 5)}, false, true)
	next := 5
	prev := 0

	ops := []func(){
		func() { w = w.ExpandRight(page(next, 5), true); next += 5 },
		func() { prev -= 5; w = w.ExpandLeft(page(prev, 5), true) },
		func() { w = w.ShiftRight(page(next, 5), true); next += 5 },
		func() { prev -= 5; w = w.ShiftLeft(page(prev, 5), true) },
		func() { w = w.ExpandRight(page(next, 5), false); next += 5 },
		func() { w = w.ShiftRight(page(next, 5), true); next += 5 },
		func() { prev -= 5; w = w.ExpandLeft(page(prev, 5), false) },
	}
	for i, op := range ops {
		op()
		t.Run(fmt.Sprintf("op_%d", i), func(t *testing.T) {
			checkInvariants(t, w)
		})
	}
}

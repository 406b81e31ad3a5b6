package paging

// Entry is one key/value cell of a page, in display order.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Window is an immutable view over a contiguous run of pages loaded from a
// bidirectionally paginated cursor. All operations return a new window; a
// window value is safe to share across goroutines without locking.
//
// Pages are ordered oldest-to-newest left-to-right. The merged map always
// holds exactly the union of the loaded pages' entries, and startIndex tracks
// the display anchor as content shifts underneath it.
type Window[K comparable, V any] struct {
	startIndex int
	firstPage  int
	lastPage   int
	pages      [][]K
	merged     map[K]V

	hasMoreLeft  bool
	hasMoreRight bool
}

// New creates a window from one or more initially loaded pages. firstPage is
// the page number of pages[0]; startIndex anchors the display position within
// the merged content.
func New[K comparable, V any](startIndex, firstPage int, pages [][]Entry[K, V], hasMoreLeft, hasMoreRight bool) Window[K, V] {
	keys := make([][]K, 0, len(pages))
	merged := make(map[K]V)
	for _, page := range pages {
		keys = append(keys, pageKeys(page))
		for _, e := range page {
			merged[e.Key] = e.Value
		}
	}
	return Window[K, V]{
		startIndex:   startIndex,
		firstPage:    firstPage,
		lastPage:     firstPage + len(pages) - 1,
		pages:        keys,
		merged:       merged,
		hasMoreLeft:  hasMoreLeft,
		hasMoreRight: hasMoreRight,
	}
}

// StartIndex returns the display anchor position.
func (w Window[K, V]) StartIndex() int { return w.startIndex }

// FirstPage returns the page number of the oldest loaded page.
func (w Window[K, V]) FirstPage() int { return w.firstPage }

// LastPage returns the page number of the newest loaded page.
func (w Window[K, V]) LastPage() int { return w.lastPage }

// PageCount returns the number of loaded pages.
func (w Window[K, V]) PageCount() int { return len(w.pages) }

// Len returns the total number of loaded entries.
func (w Window[K, V]) Len() int { return len(w.merged) }

// HasMoreLeft reports whether older content exists beyond the first page.
func (w Window[K, V]) HasMoreLeft() bool { return w.hasMoreLeft }

// HasMoreRight reports whether newer content exists beyond the last page.
func (w Window[K, V]) HasMoreRight() bool { return w.hasMoreRight }

// Get looks up a loaded value by key.
func (w Window[K, V]) Get(key K) (V, bool) {
	v, ok := w.merged[key]
	return v, ok
}

// Keys returns all loaded keys in page order, oldest first.
func (w Window[K, V]) Keys() []K {
	out := make([]K, 0, len(w.merged))
	for _, page := range w.pages {
		out = append(out, page...)
	}
	return out
}

// PageKeys returns the key set of the page at the given offset from the first
// loaded page.
func (w Window[K, V]) PageKeys(offset int) []K {
	page := w.pages[offset]
	out := make([]K, len(page))
	copy(out, page)
	return out
}

// ShiftRight evicts the oldest page and appends newPage as the newest,
// keeping the page count constant. The anchor decreases by newPage's size and
// older content is known to exist since a page was just evicted leftward.
func (w Window[K, V]) ShiftRight(newPage []Entry[K, V], hasMore bool) Window[K, V] {
	merged := cloneWithout(w.merged, w.pages[0], w.pages[1:])
	for _, e := range newPage {
		merged[e.Key] = e.Value
	}

	pages := make([][]K, 0, len(w.pages))
	pages = append(pages, w.pages[1:]...)
	pages = append(pages, pageKeys(newPage))

	return Window[K, V]{
		startIndex:   w.startIndex - len(newPage),
		firstPage:    w.firstPage + 1,
		lastPage:     w.lastPage + 1,
		pages:        pages,
		merged:       merged,
		hasMoreLeft:  true,
		hasMoreRight: hasMore,
	}
}

// ShiftLeft evicts the newest page and prepends newPage as the oldest,
// keeping the page count constant. The anchor increases by newPage's size as
// the new content shifts existing positions right.
func (w Window[K, V]) ShiftLeft(newPage []Entry[K, V], hasMore bool) Window[K, V] {
	merged := cloneWithout(w.merged, w.pages[len(w.pages)-1], w.pages[:len(w.pages)-1])
	for _, e := range newPage {
		merged[e.Key] = e.Value
	}

	pages := make([][]K, 0, len(w.pages))
	pages = append(pages, pageKeys(newPage))
	pages = append(pages, w.pages[:len(w.pages)-1]...)

	return Window[K, V]{
		startIndex:   w.startIndex + len(newPage),
		firstPage:    w.firstPage - 1,
		lastPage:     w.lastPage - 1,
		pages:        pages,
		merged:       merged,
		hasMoreLeft:  hasMore,
		hasMoreRight: true,
	}
}

// ExpandRight appends newPage without evicting; the window grows by one page
// and the anchor is unchanged.
func (w Window[K, V]) ExpandRight(newPage []Entry[K, V], hasMore bool) Window[K, V] {
	merged := clone(w.merged)
	for _, e := range newPage {
		merged[e.Key] = e.Value
	}

	pages := make([][]K, 0, len(w.pages)+1)
	pages = append(pages, w.pages...)
	pages = append(pages, pageKeys(newPage))

	return Window[K, V]{
		startIndex:   w.startIndex,
		firstPage:    w.firstPage,
		lastPage:     w.lastPage + 1,
		pages:        pages,
		merged:       merged,
		hasMoreLeft:  w.hasMoreLeft,
		hasMoreRight: hasMore,
	}
}

// ExpandLeft prepends newPage without evicting; the anchor increases by
// newPage's size.
func (w Window[K, V]) ExpandLeft(newPage []Entry[K, V], hasMore bool) Window[K, V] {
	merged := clone(w.merged)
	for _, e := range newPage {
		merged[e.Key] = e.Value
	}

	pages := make([][]K, 0, len(w.pages)+1)
	pages = append(pages, pageKeys(newPage))
	pages = append(pages, w.pages...)

	return Window[K, V]{
		startIndex:   w.startIndex + len(newPage),
		firstPage:    w.firstPage - 1,
		lastPage:     w.lastPage,
		pages:        pages,
		merged:       merged,
		hasMoreLeft:  hasMore,
		hasMoreRight: w.hasMoreRight,
	}
}

func pageKeys[K comparable, V any](page []Entry[K, V]) []K {
	keys := make([]K, len(page))
	for i, e := range page {
		keys[i] = e.Key
	}
	return keys
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// cloneWithout drops the evicted page's keys. A key may also occur in a
// surviving page; such keys stay so merged keeps matching the page union.
func cloneWithout[K comparable, V any](m map[K]V, evicted []K, surviving [][]K) map[K]V {
	kept := make(map[K]struct{})
	for _, page := range surviving {
		for _, k := range page {
			kept[k] = struct{}{}
		}
	}

	out := clone(m)
	for _, k := range evicted {
		if _, ok := kept[k]; ok {
			continue
		}
		delete(out, k)
	}
	return out
}

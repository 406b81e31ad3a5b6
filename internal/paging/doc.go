// Package paging implements a sliding window over a bidirectionally
// paginated data source.
//
// A Window holds a contiguous run of pages plus a merged key/value view of
// everything currently loaded. The four transformations (shift and expand in
// either direction) are pure: each returns a new window, so a window can be
// published to concurrent readers without synchronization. The preview
// carousel uses this to load cursor pages incrementally while scrolling.
package paging

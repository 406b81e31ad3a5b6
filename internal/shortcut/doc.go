// Package shortcut implements the direct-share resolution pipeline.
//
// One Pipeline serves one (profile, session): it fetches direct-share
// candidates from a prediction service when one is configured, or from the
// shortcut-listing service otherwise, joins them against the resolved
// application targets supplied by the caller, and delivers the merged result
// to a single observer.
//
// The two inputs race freely. Each lands in its own latest-value slot owned
// by the pipeline's run goroutine; a recompute fires whenever either slot
// changes and both are set, always reading the current pair, so the observer
// sees a deterministic, monotonically improving sequence of joins regardless
// of arrival order. A watchdog bounds the wait for the predictor, and a
// generation counter bumped on Reset suppresses deliveries from superseded
// query cycles. External failures degrade to empty results; the observer has
// no error channel.
package shortcut

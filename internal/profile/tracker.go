package profile

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/infrastructure/monitoring"
)

// Snapshot is the externally visible view of the profile group.
type Snapshot struct {
	Users        []User          `json:"users"`
	Availability map[UserID]bool `json:"availability"`
}

// Tracker folds the platform broadcast stream into a consistent profile
// snapshot. A fold step that references an unknown user is recovered by
// discarding the accumulated state and reinitializing from the authoritative
// listing; callers never observe the fault or a partial state.
type Tracker struct {
	parent  UserID
	lister  Lister
	control Controller
	events  <-chan Event
	logger  *logging.Logger
	metrics *monitoring.Metrics

	mu    sync.RWMutex
	state State

	watchMu  sync.Mutex
	watchers []chan Snapshot
}

// NewTracker creates a tracker for the profile group rooted at parent,
// driven by the given event stream.
func NewTracker(parent UserID, lister Lister, control Controller, events <-chan Event, logger *logging.Logger) *Tracker {
	return &Tracker{
		parent:  parent,
		lister:  lister,
		control: control,
		events:  events,
		logger:  logger,
		state:   emptyState(),
	}
}

// WithMetrics adds metrics tracking to the tracker.
func (t *Tracker) WithMetrics(metrics *monitoring.Metrics) *Tracker {
	t.metrics = metrics
	return t
}

// Run drives the fold loop until the context is cancelled or the event
// stream closes. It starts from an implicit Initialize.
func (t *Tracker) Run(ctx context.Context) {
	t.reinitialize(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-t.events:
			if !ok {
				return
			}
			t.fold(ctx, ev)
		}
	}
}

// Users returns the current member list, parent first.
func (t *Tracker) Users() []User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Users()
}

// Availability returns the current identity-to-available mapping.
func (t *Tracker) Availability() map[UserID]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Availability()
}

// Snapshot returns users and availability as one consistent view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{Users: t.state.Users(), Availability: t.state.Availability()}
}

// IsActive reports whether a profile may be queried: the group parent is
// always active, any other member only while available.
func (t *Tracker) IsActive(id UserID) bool {
	if id == t.parent {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.Available(id)
}

// Watch returns a channel receiving the snapshot after every settled change.
// Delivery is latest-wins: a slow receiver only ever misses intermediate
// snapshots, never the most recent one.
func (t *Tracker) Watch() <-chan Snapshot {
	ch := make(chan Snapshot, 1)
	t.watchMu.Lock()
	t.watchers = append(t.watchers, ch)
	t.watchMu.Unlock()
	return ch
}

// RequestState asks the platform to flip quiet mode so the user ends up in
// the requested availability. No-op if already there; the caller observes the
// outcome through the snapshot, not through this call.
func (t *Tracker) RequestState(ctx context.Context, user UserID, available bool) {
	t.mu.RLock()
	current := t.state
	t.mu.RUnlock()

	if current.Contains(user) && current.Available(user) == available {
		return
	}

	go func() {
		if err := t.control.SetQuietMode(ctx, user, !available); err != nil {
			t.logger.Warn("Quiet mode request failed",
				zap.Int32("user", int32(user)),
				zap.Bool("available", available),
				zap.Error(err),
			)
		}
	}()
}

func (t *Tracker) fold(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Initialize:
		t.recordEvent("initialize")
		t.reinitialize(ctx)
		return
	case Unknown:
		t.recordEvent("unknown")
		t.logger.Debug("Ignoring unknown profile broadcast", zap.String("action", e.Action))
		return
	}

	t.recordEvent(eventKind(ev))

	t.mu.RLock()
	current := t.state
	t.mu.RUnlock()

	next, err := reduce(current, ev)
	if err != nil {
		if errors.Is(err, ErrInconsistent) {
			t.logger.Warn("Profile state inconsistent, reinitializing", zap.Error(err))
			if t.metrics != nil {
				t.metrics.IncProfileReinits()
			}
			t.reinitialize(ctx)
			return
		}
		t.logger.Error("Profile fold failed", zap.Error(err))
		return
	}

	t.setState(next)
}

func (t *Tracker) reinitialize(ctx context.Context) {
	state, err := initialState(ctx, t.lister, t.parent)
	if err != nil {
		// Keep the previous snapshot rather than expose a partial one.
		t.logger.Error("Profile reinitialization failed", zap.Error(err))
		return
	}
	t.setState(state)
}

func (t *Tracker) setState(state State) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.SetProfilesTracked(state.Len())
	}
	t.publish(Snapshot{Users: state.Users(), Availability: state.Availability()})
}

func (t *Tracker) publish(snap Snapshot) {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()

	for _, ch := range t.watchers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the latest one always fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (t *Tracker) recordEvent(kind string) {
	if t.metrics != nil {
		t.metrics.RecordProfileEvent(kind)
	}
}

func eventKind(ev Event) string {
	switch ev.(type) {
	case Initialize:
		return "initialize"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case AvailabilityChanged:
		return "availability_changed"
	default:
		return "unknown"
	}
}

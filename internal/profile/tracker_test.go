package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
)

type recordingController struct {
	calls chan struct {
		user  UserID
		quiet bool
	}
}

func newRecordingController() *recordingController {
	return &recordingController{calls: make(chan struct {
		user  UserID
		quiet bool
	}, 4)}
}

func (c *recordingController) SetQuietMode(ctx context.Context, user UserID, quiet bool) error {
	c.calls <- struct {
		user  UserID
		quiet bool
	}{user, quiet}
	return nil
}

func startTracker(t *testing.T, lister Lister) (*Tracker, chan Event, <-chan Snapshot, *recordingController) {
	t.Helper()

	events := make(chan Event, 8)
	control := newRecordingController()
	tracker := NewTracker(0, lister, control, events, logging.NewNop())
	watch := tracker.Watch()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tracker.Run(ctx)

	// The implicit Initialize publishes the first snapshot.
	awaitSnapshot(t, watch)
	return tracker, events, watch, control
}

func awaitSnapshot(t *testing.T, watch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-watch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func userIDs(users []User) []UserID {
	ids := make([]UserID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func TestTrackerFoldsGroupLifecycle(t *testing.T) {
	lister := &staticLister{records: []Record{{User: personal}}}
	tracker, events, watch, _ := startTracker(t, lister)

	events <- Added{User: work}
	snap := awaitSnapshot(t, watch)
	assert.Equal(t, []UserID{0, 10}, userIDs(snap.Users))
	assert.True(t, snap.Availability[10], "freshly added profile is available")

	events <- AvailabilityChanged{User: 10, QuietMode: true}
	snap = awaitSnapshot(t, watch)
	assert.False(t, snap.Availability[10])

	events <- Removed{User: 10}
	snap = awaitSnapshot(t, watch)
	assert.Equal(t, []UserID{0}, userIDs(snap.Users))

	assert.Equal(t, []UserID{0}, userIDs(tracker.Users()))
}

func TestTrackerRecoversFromUnknownUser(t *testing.T) {
	lister := &staticLister{records: []Record{
		{User: personal},
		{User: work, IsProfile: true},
	}}
	tracker, events, watch, _ := startTracker(t, lister)

	// References a user the fold has never seen; the tracker must come back
	// with a fresh full listing instead of crashing or corrupting state.
	events <- AvailabilityChanged{User: 99, QuietMode: true}
	snap := awaitSnapshot(t, watch)

	assert.Equal(t, []UserID{0, 10}, userIDs(snap.Users))
	assert.True(t, snap.Availability[0])
	assert.True(t, snap.Availability[10])
	assert.Equal(t, []UserID{0, 10}, userIDs(tracker.Users()))
}

func TestTrackerExplicitInitialize(t *testing.T) {
	lister := &staticLister{records: []Record{{User: personal}}}
	_, events, watch, _ := startTracker(t, lister)

	lister.records = []Record{{User: personal}, {User: private, IsProfile: true}}
	events <- Initialize{}
	snap := awaitSnapshot(t, watch)

	assert.Equal(t, []UserID{0, 11}, userIDs(snap.Users))
}

func TestTrackerIsActive(t *testing.T) {
	lister := &staticLister{records: []Record{
		{User: personal},
		{User: work, QuietMode: true, IsProfile: true},
	}}
	tracker, events, watch, _ := startTracker(t, lister)

	assert.True(t, tracker.IsActive(0), "parent is always active")
	assert.False(t, tracker.IsActive(10), "quiet profile is inactive")
	assert.False(t, tracker.IsActive(42), "unknown user is inactive")

	events <- AvailabilityChanged{User: 10, QuietMode: false}
	awaitSnapshot(t, watch)
	assert.True(t, tracker.IsActive(10))
}

func TestRequestState(t *testing.T) {
	lister := &staticLister{records: []Record{
		{User: personal},
		{User: work, QuietMode: true, IsProfile: true},
	}}
	tracker, _, _, control := startTracker(t, lister)

	// Already unavailable: no platform call.
	tracker.RequestState(context.Background(), 10, false)
	select {
	case call := <-control.calls:
		t.Fatalf("unexpected quiet mode call: %+v", call)
	case <-time.After(50 * time.Millisecond):
	}

	// Flip to available: quiet mode must be switched off.
	tracker.RequestState(context.Background(), 10, true)
	select {
	case call := <-control.calls:
		require.Equal(t, UserID(10), call.user)
		assert.False(t, call.quiet)
	case <-time.After(2 * time.Second):
		t.Fatal("expected quiet mode call")
	}
}

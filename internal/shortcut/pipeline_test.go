package shortcut

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/profile"
)

type inlineExecutor struct{}

func (inlineExecutor) Execute(fn func()) { fn() }

type fakePredictor struct {
	registered chan func([]Prediction)
	err        error
}

func newFakePredictor() *fakePredictor {
	return &fakePredictor{registered: make(chan func([]Prediction), 4)}
}

func (f *fakePredictor) RegisterUpdates(cb func([]Prediction)) func() {
	f.registered <- cb
	return func() {}
}

func (f *fakePredictor) RequestUpdate(ctx context.Context) error { return f.err }

func (f *fakePredictor) callback(t *testing.T) func([]Prediction) {
	t.Helper()
	select {
	case cb := <-f.registered:
		return cb
	case <-time.After(2 * time.Second):
		t.Fatal("predictor callback never registered")
		return nil
	}
}

type fakeShortcuts struct {
	mu        sync.Mutex
	shortcuts []Shortcut
	err       error
	queries   int
}

func (f *fakeShortcuts) Query(ctx context.Context, user profile.UserID, filter IntentFilter) ([]Shortcut, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return append([]Shortcut(nil), f.shortcuts...), f.err
}

func (f *fakeShortcuts) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

type packageSet struct {
	disabled map[string]bool
}

func (p packageSet) IsPackageEnabled(ctx context.Context, user profile.UserID, pkg string) bool {
	return !p.disabled[pkg]
}

type staticGate bool

func (g staticGate) IsActive(profile.UserID) bool { return bool(g) }

func newTestPipeline(t *testing.T, mutate func(*Config)) (*Pipeline, chan Result) {
	t.Helper()

	results := make(chan Result, 8)
	cfg := Config{
		Profile:         0,
		Shortcuts:       &fakeShortcuts{},
		Packages:        packageSet{},
		Filter:          IntentFilter{Action: "share"},
		Observer:        func(r Result) { results <- r },
		Deliver:         inlineExecutor{},
		Logger:          logging.NewNop(),
		WatchdogTimeout: 5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	p := New(cfg)
	t.Cleanup(p.Destroy)
	return p, results
}

func awaitResult(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return Result{}
	}
}

func expectNoResult(t *testing.T, results chan Result) {
	t.Helper()
	select {
	case r := <-results:
		t.Fatalf("unexpected delivery: %+v", r)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestListingPathDeliversJoin(t *testing.T) {
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Shortcuts = source
	})

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "Messenger", result.Groups[0].Target.Label)
	require.Len(t, result.Groups[0].Candidates, 1)
	assert.Equal(t, "contact-1", result.Groups[0].Candidates[0].Shortcut.ShortcutID)
}

func TestJoinWaitsForBothSides(t *testing.T) {
	predictor := newFakePredictor()
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
	})
	cb := predictor.callback(t)

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})
	expectNoResult(t, results)

	cb([]Prediction{{Shortcut: sc(messenger, "contact-1"), Score: 0.8}})

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 0.8, result.Groups[0].Candidates[0].Score)
}

func TestEmptyPredictionsFallBackToListing(t *testing.T) {
	predictor := newFakePredictor()
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
		cfg.Shortcuts = source
	})
	cb := predictor.callback(t)

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})
	cb(nil)

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, 0.0, result.Groups[0].Candidates[0].Score)
	assert.Equal(t, 1, source.queryCount())
}

func TestPredictorErrorFallsBackToListing(t *testing.T) {
	predictor := newFakePredictor()
	predictor.err = errors.New("predictor unavailable")
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
		cfg.Shortcuts = source
	})

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "contact-1", result.Groups[0].Candidates[0].Shortcut.ShortcutID)
}

func TestWatchdogFallsBackToListing(t *testing.T) {
	predictor := newFakePredictor()
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
		cfg.Shortcuts = source
		cfg.WatchdogTimeout = 30 * time.Millisecond
	})
	cb := predictor.callback(t)

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})

	result := awaitResult(t, results)
	assert.Equal(t, "contact-1", result.Groups[0].Candidates[0].Shortcut.ShortcutID)

	// A real response landing after the timeout still belongs to the cycle
	// and overwrites the fallback.
	cb([]Prediction{{Shortcut: sc(messenger, "contact-2"), Score: 0.9}})

	late := awaitResult(t, results)
	require.Len(t, late.Groups, 1)
	assert.Equal(t, "contact-2", late.Groups[0].Candidates[0].Shortcut.ShortcutID)
}

func TestRedundantDeliveriesSuppressed(t *testing.T) {
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Shortcuts = source
	})

	targets := []AppTarget{{Component: messenger, Label: "Messenger"}}
	p.UpdateAppTargets(targets)
	awaitResult(t, results)

	p.UpdateAppTargets(targets)
	expectNoResult(t, results)
}

func TestResetDiscardsStaleDeliveries(t *testing.T) {
	predictor := newFakePredictor()
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
	})
	stale := predictor.callback(t)

	p.Reset()
	fresh := predictor.callback(t)

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})
	stale([]Prediction{{Shortcut: sc(messenger, "contact-1"), Score: 0.5}})
	expectNoResult(t, results)

	fresh([]Prediction{{Shortcut: sc(messenger, "contact-2"), Score: 0.9}})

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "contact-2", result.Groups[0].Candidates[0].Shortcut.ShortcutID)
}

func TestDestroyStopsDeliveries(t *testing.T) {
	predictor := newFakePredictor()
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Predictor = predictor
	})
	cb := predictor.callback(t)

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})
	p.Destroy()

	cb([]Prediction{{Shortcut: sc(messenger, "contact-1"), Score: 0.5}})
	expectNoResult(t, results)
}

func TestInactiveProfilePublishesEmptyResult(t *testing.T) {
	source := &fakeShortcuts{shortcuts: []Shortcut{sc(messenger, "contact-1")}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Shortcuts = source
		cfg.Gate = staticGate(false)
	})

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})

	result := awaitResult(t, results)
	assert.Empty(t, result.Groups)
	assert.Equal(t, 0, source.queryCount(), "inactive profiles are never queried")
}

func TestDisabledPackagesExcluded(t *testing.T) {
	source := &fakeShortcuts{shortcuts: []Shortcut{
		sc(messenger, "contact-1"),
		sc(mail, "draft-1"),
	}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Shortcuts = source
		cfg.Packages = packageSet{disabled: map[string]bool{mail.Package: true}}
	})

	p.UpdateAppTargets([]AppTarget{
		{Component: messenger, Label: "Messenger"},
		{Component: mail, Label: "Mail"},
	})

	result := awaitResult(t, results)
	require.Len(t, result.Groups, 1)
	assert.Equal(t, "Messenger", result.Groups[0].Target.Label)
}

func TestCandidateIDsStableAcrossTargetUpdates(t *testing.T) {
	source := &fakeShortcuts{shortcuts: []Shortcut{
		sc(messenger, "contact-1"),
		sc(mail, "draft-1"),
	}}
	p, results := newTestPipeline(t, func(cfg *Config) {
		cfg.Shortcuts = source
	})

	p.UpdateAppTargets([]AppTarget{{Component: messenger, Label: "Messenger"}})
	first := awaitResult(t, results)

	p.UpdateAppTargets([]AppTarget{
		{Component: messenger, Label: "Messenger"},
		{Component: mail, Label: "Mail"},
	})
	second := awaitResult(t, results)

	require.Len(t, second.Groups, 2)
	assert.Equal(t,
		first.Groups[0].Candidates[0].ID,
		second.Groups[0].Candidates[0].ID,
	)
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/infrastructure/monitoring"
	"github.com/resolverd/resolverd/internal/infrastructure/resilience"
	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shared/id"
	"github.com/resolverd/resolverd/internal/shortcut"
)

// ErrNoSession is returned for operations on a profile with no live pipeline.
var ErrNoSession = errors.New("no resolution session for profile")

// SourceProvider supplies the per-profile data sources a pipeline consumes.
type SourceProvider interface {
	PredictorFor(user profile.UserID) shortcut.PredictionSource
	Query(ctx context.Context, user profile.UserID, filter shortcut.IntentFilter) ([]shortcut.Shortcut, error)
	IsPackageEnabled(ctx context.Context, user profile.UserID, pkg string) bool
}

// Config assembles the manager's collaborators.
type Config struct {
	Tracker          *profile.Tracker
	Sources          SourceProvider
	Filter           shortcut.IntentFilter
	PredictorEnabled bool
	WatchdogTimeout  time.Duration
	Breaker          *resilience.Breaker
	Logger           *logging.Logger
}

// Info describes one live resolution session.
type Info struct {
	Profile   profile.UserID `json:"profile"`
	SessionID id.SessionID   `json:"session_id"`
}

// Manager owns one resolution pipeline per profile. Pipelines are created
// lazily on first use, reset when their profile's availability flips, and
// destroyed when the profile leaves the group. Settled results are cached
// per profile and fanned out to subscribers.
type Manager struct {
	cfg     Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	deliver *shortcut.SerialExecutor

	mu        sync.RWMutex
	pipelines map[profile.UserID]*shortcut.Pipeline
	latest    map[profile.UserID]shortcut.Result

	subMu  sync.RWMutex
	subs   map[int]func(shortcut.Result)
	nextID int
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:       cfg,
		logger:    cfg.Logger,
		deliver:   shortcut.NewSerialExecutor(),
		pipelines: make(map[profile.UserID]*shortcut.Pipeline),
		latest:    make(map[profile.UserID]shortcut.Result),
		subs:      make(map[int]func(shortcut.Result)),
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Run reacts to profile-group changes until the context is cancelled:
// pipelines of removed profiles are destroyed, pipelines of profiles whose
// availability flipped are reset.
func (m *Manager) Run(ctx context.Context) {
	watch := m.cfg.Tracker.Watch()
	prev := m.cfg.Tracker.Snapshot()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-watch:
			m.reconcile(prev, snap)
			prev = snap
		}
	}
}

// Ensure returns the profile's pipeline, creating it on first use.
func (m *Manager) Ensure(user profile.UserID) *shortcut.Pipeline {
	m.mu.RLock()
	p, ok := m.pipelines[user]
	m.mu.RUnlock()
	if ok {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pipelines[user]; ok {
		return p
	}

	p = shortcut.New(m.pipelineConfig(user))
	m.pipelines[user] = p

	m.logger.Info("Resolution session started",
		zap.Int32("profile", int32(user)),
		zap.String("session", p.SessionID().String()),
	)
	if m.metrics != nil {
		m.metrics.SetPipelinesActive(len(m.pipelines))
	}
	return p
}

// UpdateAppTargets replaces the profile's resolved application targets,
// starting a session if none exists.
func (m *Manager) UpdateAppTargets(user profile.UserID, targets []shortcut.AppTarget) {
	m.Ensure(user).UpdateAppTargets(targets)
}

// Reset clears the profile's session state and re-queries.
func (m *Manager) Reset(user profile.UserID) error {
	m.mu.Lock()
	p, ok := m.pipelines[user]
	if ok {
		delete(m.latest, user)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	p.Reset()
	return nil
}

// Latest returns the profile's most recently settled result.
func (m *Manager) Latest(user profile.UserID) (shortcut.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.latest[user]
	return r, ok
}

// Sessions lists the live sessions.
func (m *Manager) Sessions() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.pipelines))
	for user, p := range m.pipelines {
		out = append(out, Info{Profile: user, SessionID: p.SessionID()})
	}
	return out
}

// Subscribe registers a callback for every settled result across all
// profiles. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(shortcut.Result)) func() {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	subID := m.nextID
	m.nextID++
	m.subs[subID] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, subID)
	}
}

// Close destroys every pipeline and stops result delivery.
func (m *Manager) Close() {
	m.mu.Lock()
	pipelines := m.pipelines
	m.pipelines = make(map[profile.UserID]*shortcut.Pipeline)
	m.mu.Unlock()

	for _, p := range pipelines {
		p.Destroy()
	}
	m.deliver.Close()

	if m.metrics != nil {
		m.metrics.SetPipelinesActive(0)
	}
}

func (m *Manager) pipelineConfig(user profile.UserID) shortcut.Config {
	cfg := shortcut.Config{
		Profile:         user,
		Shortcuts:       m.cfg.Sources,
		Packages:        m.cfg.Sources,
		Gate:            m.cfg.Tracker,
		Filter:          m.cfg.Filter,
		Observer:        func(r shortcut.Result) { m.onResult(r) },
		Deliver:         m.deliver,
		Logger:          m.logger,
		Metrics:         m.metrics,
		Breaker:         m.cfg.Breaker,
		WatchdogTimeout: m.cfg.WatchdogTimeout,
	}
	if m.cfg.PredictorEnabled {
		cfg.Predictor = m.cfg.Sources.PredictorFor(user)
	}
	return cfg
}

// onResult caches the settled result and fans it out. Runs on the delivery
// executor.
func (m *Manager) onResult(r shortcut.Result) {
	m.mu.Lock()
	m.latest[r.Profile] = r
	m.mu.Unlock()

	m.subMu.RLock()
	subs := make([]func(shortcut.Result), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range subs {
		fn(r)
	}
}

func (m *Manager) reconcile(prev, next profile.Snapshot) {
	removed := make([]profile.UserID, 0)
	current := make(map[profile.UserID]struct{}, len(next.Users))
	for _, u := range next.Users {
		current[u.ID] = struct{}{}
	}
	for _, u := range prev.Users {
		if _, ok := current[u.ID]; !ok {
			removed = append(removed, u.ID)
		}
	}

	for _, user := range removed {
		m.mu.Lock()
		p, ok := m.pipelines[user]
		delete(m.pipelines, user)
		delete(m.latest, user)
		active := len(m.pipelines)
		m.mu.Unlock()

		if !ok {
			continue
		}
		p.Destroy()
		m.logger.Info("Resolution session destroyed, profile removed",
			zap.Int32("profile", int32(user)),
		)
		if m.metrics != nil {
			m.metrics.SetPipelinesActive(active)
		}
	}

	for user, avail := range next.Availability {
		was, known := prev.Availability[user]
		if known && was == avail {
			continue
		}
		m.mu.RLock()
		p, ok := m.pipelines[user]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		m.logger.Info("Profile availability changed, resetting session",
			zap.Int32("profile", int32(user)),
			zap.Bool("available", avail),
		)
		p.Reset()
	}
}

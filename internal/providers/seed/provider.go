package seed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shortcut"
)

// Provider serves the collaborator contracts from a seed document: the
// shortcut-listing source, the prediction source, the package-enablement
// check, the profile-group listing and the quiet-mode controller. Quiet-mode
// flips are reflected back through the event stream the way platform
// broadcasts would be.
type Provider struct {
	logger *logging.Logger

	mu        sync.RWMutex
	profiles  []ProfileSeed
	quiet     map[profile.UserID]bool
	disabled  map[string]bool
	shortcuts map[profile.UserID][]ShortcutSeed
	preds     map[profile.UserID][]PredictionSeed

	events chan profile.Event
}

// NewProvider builds a provider from a parsed seed document.
func NewProvider(doc Document, logger *logging.Logger) *Provider {
	p := &Provider{
		logger:    logger,
		profiles:  doc.Profiles,
		quiet:     make(map[profile.UserID]bool, len(doc.Profiles)),
		disabled:  make(map[string]bool, len(doc.Packages)),
		shortcuts: make(map[profile.UserID][]ShortcutSeed),
		preds:     make(map[profile.UserID][]PredictionSeed),
		events:    make(chan profile.Event, 32),
	}

	for _, pr := range doc.Profiles {
		p.quiet[profile.UserID(pr.ID)] = pr.Quiet
	}
	for _, pkg := range doc.Packages {
		if pkg.Disabled {
			p.disabled[pkg.Name] = true
		}
	}
	for _, sc := range doc.Shortcuts {
		user := profile.UserID(sc.User)
		p.shortcuts[user] = append(p.shortcuts[user], sc)
	}
	for _, pred := range doc.Predictions {
		user := profile.UserID(pred.User)
		p.preds[user] = append(p.preds[user], pred)
	}

	return p
}

// Events returns the simulated platform broadcast stream.
func (p *Provider) Events() <-chan profile.Event {
	return p.events
}

// Emit injects a raw event into the broadcast stream.
func (p *Provider) Emit(ev profile.Event) {
	p.events <- ev
}

// ListProfileGroup returns the group members with their current quiet flags.
func (p *Provider) ListProfileGroup(ctx context.Context, parent profile.UserID) ([]profile.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records := make([]profile.Record, 0, len(p.profiles))
	for _, pr := range p.profiles {
		records = append(records, profile.Record{
			User: profile.User{
				ID:   profile.UserID(pr.ID),
				Role: profile.Role(pr.Role),
			},
			QuietMode: p.quiet[profile.UserID(pr.ID)],
			IsProfile: pr.Profile,
			ParentID:  parent,
		})
	}
	return records, nil
}

// SetQuietMode flips the stored quiet flag and publishes the matching
// availability broadcast, mirroring how the platform confirms the request.
func (p *Provider) SetQuietMode(ctx context.Context, user profile.UserID, quiet bool) error {
	p.mu.Lock()
	p.quiet[user] = quiet
	p.mu.Unlock()

	p.logger.Info("Quiet mode changed",
		zap.Int32("user", int32(user)),
		zap.Bool("quiet", quiet),
	)
	p.Emit(profile.AvailabilityChanged{User: user, QuietMode: quiet})
	return nil
}

// IsPackageEnabled reports whether pkg is enabled; packages are enabled
// unless the seed marks them disabled.
func (p *Provider) IsPackageEnabled(ctx context.Context, user profile.UserID, pkg string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.disabled[pkg]
}

// Query lists the user's shortcuts matching the filter. A shortcut that
// declares no actions matches any filter action.
func (p *Provider) Query(ctx context.Context, user profile.UserID, filter shortcut.IntentFilter) ([]shortcut.Shortcut, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]shortcut.Shortcut, 0, len(p.shortcuts[user]))
	for _, sc := range p.shortcuts[user] {
		if !matchesAction(sc.Actions, filter.Action) {
			continue
		}
		out = append(out, toShortcut(sc))
	}
	return out, nil
}

// PredictorFor returns a prediction source scoped to one profile.
func (p *Provider) PredictorFor(user profile.UserID) shortcut.PredictionSource {
	return &predictor{provider: p, user: user, callbacks: make(map[int]func([]shortcut.Prediction))}
}

func (p *Provider) predictionsFor(user profile.UserID) []shortcut.Prediction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	index := make(map[string]ShortcutSeed, len(p.shortcuts[user]))
	for _, sc := range p.shortcuts[user] {
		index[sc.Package+"/"+sc.ShortcutID] = sc
	}

	out := make([]shortcut.Prediction, 0, len(p.preds[user]))
	for _, pred := range p.preds[user] {
		sc, ok := index[pred.Package+"/"+pred.ShortcutID]
		if !ok {
			p.logger.Warn("Prediction references undeclared shortcut",
				zap.String("package", pred.Package),
				zap.String("shortcut_id", pred.ShortcutID),
			)
			continue
		}
		out = append(out, shortcut.Prediction{Shortcut: toShortcut(sc), Score: pred.Score})
	}
	return out
}

func toShortcut(sc ShortcutSeed) shortcut.Shortcut {
	return shortcut.Shortcut{
		ShortcutID: sc.ShortcutID,
		Component:  shortcut.ComponentName{Package: sc.Package, Class: sc.Class},
		Package:    sc.Package,
		Label:      sc.Label,
		Rank:       sc.Rank,
	}
}

func matchesAction(declared []string, action string) bool {
	if action == "" || len(declared) == 0 {
		return true
	}
	for _, a := range declared {
		if a == action {
			return true
		}
	}
	return false
}

// predictor is the per-profile prediction source adapter. Deliveries happen
// asynchronously, like a real predictor callback.
type predictor struct {
	provider *Provider
	user     profile.UserID

	mu        sync.Mutex
	callbacks map[int]func([]shortcut.Prediction)
	nextID    int
}

func (pr *predictor) RegisterUpdates(cb func([]shortcut.Prediction)) func() {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	cbID := pr.nextID
	pr.nextID++
	pr.callbacks[cbID] = cb

	return func() {
		pr.mu.Lock()
		defer pr.mu.Unlock()
		delete(pr.callbacks, cbID)
	}
}

func (pr *predictor) RequestUpdate(ctx context.Context) error {
	go func() {
		predictions := pr.provider.predictionsFor(pr.user)

		pr.mu.Lock()
		callbacks := make([]func([]shortcut.Prediction), 0, len(pr.callbacks))
		for _, cb := range pr.callbacks {
			callbacks = append(callbacks, cb)
		}
		pr.mu.Unlock()

		for _, cb := range callbacks {
			cb(predictions)
		}
	}()
	return nil
}

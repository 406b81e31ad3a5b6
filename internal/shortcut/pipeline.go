package shortcut

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/resolverd/resolverd/internal/infrastructure/logging"
	"github.com/resolverd/resolverd/internal/infrastructure/monitoring"
	"github.com/resolverd/resolverd/internal/infrastructure/resilience"
	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shared/id"
)

// DefaultWatchdogTimeout bounds how long a query cycle waits for the
// predictor before proceeding with the shortcut-listing fallback.
const DefaultWatchdogTimeout = 2 * time.Second

// Config assembles a pipeline's collaborators.
type Config struct {
	Profile   profile.UserID
	Predictor PredictionSource // nil when no prediction service is configured
	Shortcuts ShortcutSource
	Packages  PackageChecker
	Gate      ActivityGate // nil means the profile is always active
	Filter    IntentFilter
	Observer  Observer
	Deliver   Executor
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics // optional
	Breaker   *resilience.Breaker // optional, wraps predictor requests

	// WatchdogTimeout overrides DefaultWatchdogTimeout when positive.
	WatchdogTimeout time.Duration
}

// Pipeline resolves direct-share candidates for one profile. Two latest-value
// slots (resolved app targets, shortcut results) are owned by a single run
// goroutine; whenever either changes and both are set, the join is recomputed
// from the current pair and delivered through the executor. Resets bump a
// generation counter that suppresses anything still in flight from the
// superseded cycle.
type Pipeline struct {
	user      profile.UserID
	sessionID id.SessionID
	predictor PredictionSource
	shortcuts ShortcutSource
	packages  PackageChecker
	gate      ActivityGate
	filter    IntentFilter
	observer  Observer
	deliver   Executor
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	breaker   *resilience.Breaker
	timeout   time.Duration

	calls     chan func()
	ctx       context.Context
	cancel    context.CancelFunc
	destroyed atomic.Bool

	// Owned by the run loop.
	gen        int
	targets    []AppTarget
	data       *shortcutData
	join       *joinState
	lastSig    string
	delivered  bool
	watchdog   *watchdog
	unregister func()
}

// New starts a pipeline and immediately triggers the initial resolution
// cycle.
func New(cfg Config) *Pipeline {
	timeout := cfg.WatchdogTimeout
	if timeout <= 0 {
		timeout = DefaultWatchdogTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		user:      cfg.Profile,
		sessionID: id.NewSessionID(),
		predictor: cfg.Predictor,
		shortcuts: cfg.Shortcuts,
		packages:  cfg.Packages,
		gate:      cfg.Gate,
		filter:    cfg.Filter,
		observer:  cfg.Observer,
		deliver:   cfg.Deliver,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		breaker:   cfg.Breaker,
		timeout:   timeout,
		calls:     make(chan func(), 16),
		ctx:       ctx,
		cancel:    cancel,
		join:      newJoinState(),
	}

	go p.run()
	p.post(p.startQuery)
	return p
}

// SessionID returns the pipeline's session identity.
func (p *Pipeline) SessionID() id.SessionID { return p.sessionID }

// UpdateAppTargets replaces the resolved application-target slot. May be
// called any number of times, in any order relative to shortcut results.
func (p *Pipeline) UpdateAppTargets(targets []AppTarget) {
	copied := make([]AppTarget, len(targets))
	copy(copied, targets)

	p.post(func() {
		p.targets = copied
		p.recompute()
	})
}

// Reset clears both sides of the join and the accumulated side caches, then
// re-issues the shortcut query. Anything still in flight from the previous
// generation is discarded on arrival.
func (p *Pipeline) Reset() {
	p.post(func() {
		p.gen++
		p.targets = nil
		p.data = nil
		p.join = newJoinState()
		p.lastSig = ""
		p.delivered = false
		p.cancelWatchdog()
		p.startQuery()
	})
}

// Destroy cancels all in-flight work and stops observer deliveries. Safe to
// call multiple times; calls after the first are ignored.
func (p *Pipeline) Destroy() {
	if !p.destroyed.CompareAndSwap(false, true) {
		return
	}

	done := make(chan struct{})
	select {
	case p.calls <- func() {
		p.cancelWatchdog()
		if p.unregister != nil {
			p.unregister()
			p.unregister = nil
		}
		close(done)
	}:
		<-done
	case <-p.ctx.Done():
	}
	p.cancel()

	p.logger.Debug("Pipeline destroyed",
		zap.String("session", p.sessionID.String()),
		zap.Int32("profile", int32(p.user)),
	)
}

// run is the pipeline's background context: the sole mutator of the slots
// and join state.
func (p *Pipeline) run() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case fn := <-p.calls:
			fn()
		}
	}
}

// post schedules fn on the run loop. Dropped once the pipeline is destroyed.
func (p *Pipeline) post(fn func()) {
	if p.destroyed.Load() {
		return
	}
	select {
	case p.calls <- fn:
	case <-p.ctx.Done():
	}
}

// startQuery begins a query cycle for the current generation. Runs on the
// loop.
func (p *Pipeline) startQuery() {
	gen := p.gen

	if !p.profileActive() {
		// Inactive profiles are never queried; publish the empty result path
		// so the join can still settle.
		p.recordQuery("none", "skipped")
		p.logger.Debug("Skipping query for inactive profile", zap.Int32("profile", int32(p.user)))
		p.setData(gen, &shortcutData{})
		return
	}

	if p.predictor != nil {
		p.queryPredictor(gen)
		return
	}
	go p.queryListing(gen)
}

// queryPredictor registers a generation-scoped callback, arms the watchdog
// and requests an update. Runs on the loop.
func (p *Pipeline) queryPredictor(gen int) {
	if p.unregister != nil {
		p.unregister()
	}
	p.unregister = p.predictor.RegisterUpdates(func(predictions []Prediction) {
		p.post(func() {
			if p.gen != gen {
				return
			}
			p.onPredictions(gen, predictions)
		})
	})

	p.armWatchdog(gen)

	go func() {
		err := p.requestPrediction()
		if err == nil {
			return
		}
		if p.destroyed.Load() {
			// Teardown already began; there is no observer left to care.
			return
		}
		p.recordQuery("predictor", "error")
		p.logger.Warn("Prediction request failed, using listing fallback",
			zap.Int32("profile", int32(p.user)),
			zap.Error(err),
		)
		p.post(func() {
			if p.gen != gen {
				return
			}
			p.cancelWatchdog()
			go p.queryListing(gen)
		})
	}()
}

func (p *Pipeline) requestPrediction() error {
	if p.breaker != nil {
		return p.breaker.Execute(func() error {
			return p.predictor.RequestUpdate(p.ctx)
		})
	}
	return p.predictor.RequestUpdate(p.ctx)
}

// onPredictions handles a predictor delivery for the given generation. Runs
// on the loop.
func (p *Pipeline) onPredictions(gen int, predictions []Prediction) {
	p.cancelWatchdog()

	filtered := make([]Prediction, 0, len(predictions))
	for _, pred := range predictions {
		if p.packages.IsPackageEnabled(p.ctx, p.user, pred.Shortcut.Package) {
			filtered = append(filtered, pred)
		}
	}

	if len(filtered) == 0 {
		// Zero usable predictions: re-query with prediction skipped.
		p.recordQuery("predictor", "empty")
		go p.queryListing(gen)
		return
	}

	p.recordQuery("predictor", "ok")
	shortcuts := make([]Shortcut, len(filtered))
	for i, pred := range filtered {
		shortcuts[i] = pred.Shortcut
	}
	p.setData(gen, &shortcutData{shortcuts: shortcuts, predictions: filtered})
}

// armWatchdog replaces the current watchdog. On expiry the cycle proceeds as
// though the predictor returned nothing; a real response arriving later in
// the same generation still overwrites the result.
func (p *Pipeline) armWatchdog(gen int) {
	p.cancelWatchdog()

	var w *watchdog
	w = newWatchdog(p.timeout, func() {
		p.post(func() {
			if p.gen != gen || p.watchdog != w {
				return
			}
			p.watchdog = nil
			if p.metrics != nil {
				p.metrics.IncWatchdogFires()
			}
			p.logger.Warn("Predictor watchdog fired",
				zap.Int32("profile", int32(p.user)),
				zap.Duration("timeout", p.timeout),
			)
			go p.queryListing(gen)
		})
	})
	p.watchdog = w
}

func (p *Pipeline) cancelWatchdog() {
	if p.watchdog != nil {
		p.watchdog.cancel()
		p.watchdog = nil
	}
}

// queryListing performs the direct shortcut-listing query on a background
// goroutine and publishes the filtered result for gen.
func (p *Pipeline) queryListing(gen int) {
	if !p.profileActive() || p.filter.Empty() {
		p.recordQuery("listing", "skipped")
		p.post(func() {
			if p.gen != gen {
				return
			}
			p.setData(gen, &shortcutData{})
		})
		return
	}

	listed, err := p.shortcuts.Query(p.ctx, p.user, p.filter)
	if err != nil {
		if p.destroyed.Load() {
			return
		}
		// Transient failure degrades to an empty result; the observer never
		// sees an error channel.
		p.recordQuery("listing", "error")
		p.logger.Warn("Shortcut listing failed",
			zap.Int32("profile", int32(p.user)),
			zap.Error(err),
		)
		listed = nil
	} else {
		p.recordQuery("listing", "ok")
	}

	filtered := make([]Shortcut, 0, len(listed))
	for _, sc := range listed {
		if p.packages.IsPackageEnabled(p.ctx, p.user, sc.Package) {
			filtered = append(filtered, sc)
		}
	}

	p.post(func() {
		if p.gen != gen {
			return
		}
		p.setData(gen, &shortcutData{shortcuts: filtered})
	})
}

// setData fills the shortcut slot for gen and recomputes. Runs on the loop.
func (p *Pipeline) setData(gen int, data *shortcutData) {
	if p.gen != gen {
		return
	}
	p.data = data
	p.recompute()
}

// recompute joins the two slots when both are set and delivers the result if
// its shape changed. Runs on the loop; always reads the current slot values.
func (p *Pipeline) recompute() {
	if p.targets == nil || p.data == nil {
		return
	}

	result := aggregate(p.user, p.targets, p.data, p.join)

	sig := signature(result.Groups)
	if p.delivered && sig == p.lastSig {
		return
	}
	p.lastSig = sig
	p.delivered = true

	if p.metrics != nil {
		p.metrics.IncAggregations()
	}

	p.deliver.Execute(func() {
		if p.destroyed.Load() {
			return
		}
		p.observer(result)
	})
}

func (p *Pipeline) profileActive() bool {
	return p.gate == nil || p.gate.IsActive(p.user)
}

func (p *Pipeline) recordQuery(source, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordShortcutQuery(source, outcome)
	}
}

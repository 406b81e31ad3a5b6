package shortcut

import (
	"context"

	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shared/id"
)

// ComponentName is the stable (package, class) identity of a resolvable
// activity, used to join shortcuts against application targets.
type ComponentName struct {
	Package string `json:"package"`
	Class   string `json:"class"`
}

func (c ComponentName) String() string { return c.Package + "/" + c.Class }

// AppTarget is a resolved application the user could share to.
type AppTarget struct {
	Component ComponentName `json:"component"`
	Label     string        `json:"label"`
}

// Shortcut is an app-published direct-share shortcut.
type Shortcut struct {
	ShortcutID string        `json:"shortcut_id"`
	Component  ComponentName `json:"component"`
	Package    string        `json:"package"`
	Label      string        `json:"label"`
	Rank       int           `json:"rank"`
}

// Prediction is one opaque predictor record: a shortcut plus the ranking
// metadata the predictor attached to it.
type Prediction struct {
	Shortcut Shortcut `json:"shortcut"`
	Score    float64  `json:"score"`
}

// Candidate is a provider-neutral direct-share candidate with a synthesized
// identity. Downstream consumers hold only the ID; the result's side caches
// map it back to the raw shortcut and, when predictor-sourced, the
// originating prediction.
type Candidate struct {
	ID       id.CandidateID `json:"id"`
	Shortcut Shortcut       `json:"shortcut"`
	Score    float64        `json:"score"`
}

// TargetGroup pairs one app target with its matching candidates, in the
// shortcut source's original relative order.
type TargetGroup struct {
	Target     AppTarget   `json:"target"`
	Candidates []Candidate `json:"candidates"`
}

// Result is one settled aggregation: app targets joined with their matching
// shortcuts, plus the side caches keyed by synthesized candidate identity.
type Result struct {
	Profile     profile.UserID                `json:"profile"`
	Groups      []TargetGroup                 `json:"groups"`
	Predictions map[id.CandidateID]Prediction `json:"-"`
	Shortcuts   map[id.CandidateID]Shortcut   `json:"-"`
}

// IntentFilter is the match specification handed to the shortcut-listing
// source.
type IntentFilter struct {
	Action    string   `json:"action"`
	DataTypes []string `json:"data_types"`
}

// Empty reports whether the filter matches nothing.
func (f IntentFilter) Empty() bool {
	return f.Action == "" && len(f.DataTypes) == 0
}

// PredictionSource is the app-prediction service boundary. Updates arrive on
// registered callbacks some time after RequestUpdate; the callback may fire
// on any goroutine.
type PredictionSource interface {
	// RegisterUpdates subscribes to prediction deliveries. The returned
	// function unregisters the callback.
	RegisterUpdates(cb func([]Prediction)) (unregister func())
	// RequestUpdate asks the predictor to compute fresh predictions.
	RequestUpdate(ctx context.Context) error
}

// ShortcutSource enumerates app-published share shortcuts directly, the
// fallback when no predictor is configured or it returns nothing.
type ShortcutSource interface {
	Query(ctx context.Context, user profile.UserID, filter IntentFilter) ([]Shortcut, error)
}

// PackageChecker reports whether a package is installed, enabled and not
// suspended for the given profile.
type PackageChecker interface {
	IsPackageEnabled(ctx context.Context, user profile.UserID, pkg string) bool
}

// ActivityGate decides whether a profile may be queried at all. The profile
// tracker satisfies this.
type ActivityGate interface {
	IsActive(user profile.UserID) bool
}

// Observer receives settled aggregations. It is only ever invoked from the
// delivery executor, never from the pipeline's own goroutines, and never
// after Destroy returns.
type Observer func(Result)

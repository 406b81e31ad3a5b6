package shortcut

import (
	"fmt"
	"strings"

	"github.com/resolverd/resolverd/internal/profile"
	"github.com/resolverd/resolverd/internal/shared/id"
)

// shortcutData is the latest-value slot for the shortcut side of the join.
// predictions is nil unless predictor-sourced, in which case it corresponds
// 1:1 positionally with shortcuts.
type shortcutData struct {
	shortcuts   []Shortcut
	predictions []Prediction
}

// candidateKey is the stable identity of a shortcut across recomputes within
// one query generation.
type candidateKey struct {
	pkg        string
	shortcutID string
}

// joinState carries the synthesized-identity assignments and side caches a
// pipeline accumulates between recomputes. Cleared on reset.
type joinState struct {
	ids         map[candidateKey]id.CandidateID
	predictions map[id.CandidateID]Prediction
	shortcuts   map[id.CandidateID]Shortcut
}

func newJoinState() *joinState {
	return &joinState{
		ids:         make(map[candidateKey]id.CandidateID),
		predictions: make(map[id.CandidateID]Prediction),
		shortcuts:   make(map[id.CandidateID]Shortcut),
	}
}

// aggregate joins app targets against shortcut data. For every target it
// collects the shortcuts whose component matches, in the shortcut source's
// original relative order; targets with no match are omitted. Duplicate
// shortcuts (same owning package and shortcut ID) and duplicate target
// components are dropped, first occurrence wins.
//
// A predictor-sourced slot whose metadata length does not match its shortcut
// count violates the external data contract; that is a fail-fast condition,
// not a recoverable error.
func aggregate(user profile.UserID, targets []AppTarget, data *shortcutData, state *joinState) Result {
	if data.predictions != nil && len(data.predictions) != len(data.shortcuts) {
		panic(fmt.Sprintf(
			"shortcut: prediction metadata length %d does not match shortcut count %d",
			len(data.predictions), len(data.shortcuts),
		))
	}

	byComponent := make(map[ComponentName][]int, len(data.shortcuts))
	seen := make(map[candidateKey]struct{}, len(data.shortcuts))
	for i, sc := range data.shortcuts {
		key := candidateKey{pkg: sc.Package, shortcutID: sc.ShortcutID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		byComponent[sc.Component] = append(byComponent[sc.Component], i)
	}

	groups := make([]TargetGroup, 0, len(targets))
	grouped := make(map[ComponentName]struct{}, len(targets))
	for _, target := range targets {
		if _, dup := grouped[target.Component]; dup {
			continue
		}
		indexes := byComponent[target.Component]
		if len(indexes) == 0 {
			continue
		}
		grouped[target.Component] = struct{}{}

		candidates := make([]Candidate, 0, len(indexes))
		for _, i := range indexes {
			sc := data.shortcuts[i]
			key := candidateKey{pkg: sc.Package, shortcutID: sc.ShortcutID}

			cid, ok := state.ids[key]
			if !ok {
				cid = id.NewCandidateID()
				state.ids[key] = cid
			}
			state.shortcuts[cid] = sc

			var score float64
			if data.predictions != nil {
				pred := data.predictions[i]
				state.predictions[cid] = pred
				score = pred.Score
			}

			candidates = append(candidates, Candidate{ID: cid, Shortcut: sc, Score: score})
		}
		groups = append(groups, TargetGroup{Target: target, Candidates: candidates})
	}

	return Result{
		Profile:     user,
		Groups:      groups,
		Predictions: clonePredictions(state.predictions),
		Shortcuts:   cloneShortcuts(state.shortcuts),
	}
}

// signature describes the shape of a result: which targets grouped with
// which candidates. Used to suppress redundant deliveries.
func signature(groups []TargetGroup) string {
	var b strings.Builder
	for _, g := range groups {
		b.WriteString(g.Target.Component.String())
		b.WriteByte('[')
		for _, c := range g.Candidates {
			b.WriteString(string(c.ID))
			b.WriteByte(',')
		}
		b.WriteString("];")
	}
	return b.String()
}

func clonePredictions(m map[id.CandidateID]Prediction) map[id.CandidateID]Prediction {
	out := make(map[id.CandidateID]Prediction, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneShortcuts(m map[id.CandidateID]Shortcut) map[id.CandidateID]Shortcut {
	out := make(map[id.CandidateID]Shortcut, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

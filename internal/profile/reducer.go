package profile

import (
	"context"
	"errors"
	"fmt"
)

// ErrInconsistent marks a fold step that referenced a user absent from the
// current state, usually a broadcast racing the listing. The tracker recovers
// from it by reinitializing; it never escapes to callers.
var ErrInconsistent = errors.New("profile state inconsistent")

// reduce folds one non-Initialize event into the state. Violated
// preconditions return an ErrInconsistent-wrapped error and leave the input
// state untouched; the same event sequence always yields the same state.
func reduce(state State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Added:
		if state.Contains(e.User.ID) {
			return state, fmt.Errorf("%w: added user %d already present", ErrInconsistent, e.User.ID)
		}
		return state.with(e.User, true), nil

	case Removed:
		if !state.Contains(e.User) {
			return state, fmt.Errorf("%w: removed user %d not present", ErrInconsistent, e.User)
		}
		return state.without(e.User), nil

	case AvailabilityChanged:
		if !state.Contains(e.User) {
			return state, fmt.Errorf("%w: availability change for unknown user %d", ErrInconsistent, e.User)
		}
		return state.withAvailability(e.User, !e.QuietMode), nil

	case Unknown:
		return state, nil

	default:
		return state, nil
	}
}

// initialState rebuilds the snapshot from the authoritative listing. The
// parent must be part of the listing once initialized.
func initialState(ctx context.Context, lister Lister, parent UserID) (State, error) {
	records, err := lister.ListProfileGroup(ctx, parent)
	if err != nil {
		return emptyState(), fmt.Errorf("list profile group: %w", err)
	}

	state := emptyState()
	for _, r := range records {
		if state.Contains(r.User.ID) {
			continue
		}
		state = state.with(r.User, !r.QuietMode)
	}

	if !state.Contains(parent) {
		return emptyState(), fmt.Errorf("listing for group %d omitted the parent user", parent)
	}
	return state, nil
}

// Package profile tracks the members and availability of a multi-user
// profile group (personal, work, private, clone).
//
// State is event-sourced: a pure reducer folds platform broadcasts into an
// immutable snapshot, and any fold step that references a user the snapshot
// does not know about is treated as a data race with the platform and
// recovered by rebuilding from the authoritative listing. Consumers read
// settled snapshots or watch for changes; they never see faults or partially
// applied events.
package profile

// Package seed provides YAML-backed implementations of the platform
// collaborator contracts: shortcut listing, prediction, package enablement,
// profile listing and quiet-mode control. It stands in for the real system
// services in dev and demo deployments and doubles as a fixture source in
// tests.
package seed

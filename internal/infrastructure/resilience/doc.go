// Package resilience provides a circuit breaker for flaky collaborators.
// The resolver wraps prediction-service requests with one so a dead
// predictor fails fast to the shortcut-listing fallback.
package resilience

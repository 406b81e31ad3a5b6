// Package logging provides structured logging using uber/zap.
//
// Two modes: production (JSON output for machine parsing) and development
// (colored console output). Construction failures fall back to a no-op
// logger rather than aborting startup.
package logging

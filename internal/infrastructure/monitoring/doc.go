// Package monitoring provides Prometheus-based metrics collection: HTTP
// request latency and throughput, shortcut query cycles and watchdog fires,
// delivered aggregations, profile fold events and recoveries, and WebSocket
// connection counts.
package monitoring

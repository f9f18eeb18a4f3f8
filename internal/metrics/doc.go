// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Active sessions and refused connections
//   - Inbound events by type, malformed frames
//   - Outbound frames and slow-consumer evictions
//   - Persistence latency, errors and truncations
//   - Known notebook count
package metrics

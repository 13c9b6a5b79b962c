// Package realtime implements the simulated real-time connection used by the
// order dashboard.
//
// The Manager:
//   - Models the connection lifecycle (disconnected, reconnecting, connected)
//   - Reconnects after unexpected drops with exponential backoff
//   - Emits order events at randomized intervals while connected
//   - Fans status changes and events out to subscribers
//
// All waiting is expressed through an injectable Scheduler, so tests drive
// virtual time instead of sleeping.
package realtime

// Package console runs the live operations console: it polls the daemon's
// run state, tails its log stream into a bounded buffer with automatic
// reconnection, and issues start, stop and re-initialize commands.
//
// A Controller is driven by a single goroutine (Run). Poll results, stream
// messages, reconnect timers and command completions arrive as events and
// are applied in order; observers read immutable Snapshots from Updates.
package console

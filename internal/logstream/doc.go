// Package logstream follows the sync daemon's live log stream.
//
// The package splits the work in two. Machine is a pure state machine
// (closed, open, reconnecting) fed with named inputs: Start, TransportError,
// ReconnectDue and Stop. It answers with an Effect describing the I/O to do.
// Dialer does that I/O: it opens one server-sent event connection, decodes
// log batches and status events, and reports how the connection ended.
//
// Each connection carries a generation number. Messages, errors, and
// reconnect timers from an older generation are ignored, so Stop cannot be
// undone by a late timer and at most one connection is live.
//
// A clean end of stream is treated like a transport error. Reconnects are
// scheduled only while the daemon is believed to be running, and that belief
// is re-checked when the timer fires. There is no retry limit.
package logstream

// Package daemonctl drives the sync daemon's run state from the client side.
//
// StatusPoller asks the daemon whether it is running on a fixed interval.
// Actions issues start, stop, and re-init requests. Re-init must be
// confirmed by the operator, and a second request to an endpoint that is
// still waiting on its first returns ErrCommandInFlight without touching the
// network.
package daemonctl

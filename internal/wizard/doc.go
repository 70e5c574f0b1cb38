// Package wizard drives the six-step sync configuration flow: Mergin
// credentials, PostgreSQL connection, project, GeoPackage, schemas, and a
// final review that saves through the daemon.
//
// Controller holds the draft and per-step checkpoints and never performs
// I/O itself. Operations that need the network return Request values; the
// caller runs them with Execute (possibly on another goroutine) and feeds
// the Result back through Apply. Every request carries the revision of the
// input it was built from, so a result that arrives after the operator has
// edited that input is discarded instead of overwriting newer state.
package wizard

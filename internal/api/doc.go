// Package api defines the wire-format types exchanged with the sync daemon's
// HTTP API. The same records double as the client's domain values: the wizard
// edits Credentials and Connection fields directly, and the console consumes
// RunStatus and LogBatch as delivered.
//
// # Key Types
//
// RunStatus: daemon running flag plus optional pid/exit code detail.
//
// CommandResponse: result envelope for start, stop and save-config.
//
// LogBatch: payload of unnamed events on the log stream.
//
// PostgresInfo, ProjectRef, FileRef: validated facts returned by the wizard
// checkpoints.
//
// SyncConfig: the assembled payload handed to save-config.
//
// StoredConfig: the daemon's own YAML layout, returned by load-config and
// written by `dbsyncctl wizard --export`.
//
// # Design Notes
//
// JSON tags use the daemon's snake_case names. Failure envelopes always carry
// `success: false` and an `error` string; callers never see the envelope
// because apiclient converts it into a ReportedError.
package api

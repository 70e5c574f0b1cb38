// Package config loads, normalizes, and validates dbsyncctl's own settings.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the DBSYNCCTL_API_URL environment override. The
// Config type carries everything the CLI, live console, and wizard need:
// where the daemon lives, console polling and reconnect timing, wizard
// defaults, and diagnostic logging.
//
// The daemon's own configuration (credentials, connections) is not stored
// here; the wizard hands it to the daemon through its API.
package config

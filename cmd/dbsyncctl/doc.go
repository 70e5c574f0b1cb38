// Package main hosts the dbsyncctl CLI entrypoint and command graph.
//
// One-shot commands (status, start, stop, reinit, logs) talk to the sync
// daemon's HTTP API and print plain text or JSON. The console and wizard
// commands run full-screen terminal programs on top of the same controllers.
// Configuration resolution, API client construction and logger routing live
// in the command context so subcommands only describe user experience.
package main

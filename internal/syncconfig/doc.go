// Package syncconfig turns the wizard's collected fields into the daemon's
// configuration.
//
// Assemble builds the save-config payload, Summary projects it for the
// review step, and DeriveSchemaNames suggests schema names from a project
// name. ToStored, MarshalYAML and WriteFile produce the daemon's own YAML
// file layout for offline export; WriteFile serialises concurrent writers
// with an advisory file lock.
package syncconfig

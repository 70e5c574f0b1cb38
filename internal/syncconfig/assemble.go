package syncconfig

import (
	"strings"

	"dbsyncctl/internal/api"
)

// DefaultSleepTime is daemon.sleep_time when the client config sets none.
const DefaultSleepTime = 10

// Draft is the wizard's working copy of the fields that make up a Config.
type Draft struct {
	Credentials api.Credentials
	ConnInfo    string
	Modified    string
	Base        string
	Project     string
	SyncFile    string
	InitFrom    api.InitFrom
	SleepTime   int
}

// SummaryItem is one labelled line of the review step.
type SummaryItem struct {
	Label string
	Value string
}

// DeriveSchemaNames builds default schema names from a project's full name:
// the last path segment with every character outside [A-Za-z0-9] replaced by
// an underscore, lowercased, then suffixed with _data and _data_base.
func DeriveSchemaNames(project string) (modified, base string) {
	name := project
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	stem := b.String()
	return stem + "_data", stem + "_data_base"
}

// Assemble builds the save-config payload from d.
func Assemble(d Draft) api.SyncConfig {
	initFrom := d.InitFrom
	if !initFrom.Valid() {
		initFrom = api.InitFromGPKG
	}
	sleep := d.SleepTime
	if sleep <= 0 {
		sleep = DefaultSleepTime
	}
	return api.SyncConfig{
		Mergin:   d.Credentials,
		InitFrom: initFrom,
		Connection: api.Connection{
			ConnInfo:      d.ConnInfo,
			Modified:      d.Modified,
			Base:          d.Base,
			MerginProject: d.Project,
			SyncFile:      d.SyncFile,
		},
		Daemon: api.DaemonSettings{SleepTime: sleep},
	}
}

// Summary projects d into the lines shown on the review step.
func Summary(d Draft) []SummaryItem {
	file := d.SyncFile
	if file == "" {
		file = "(will be created)"
	}
	return []SummaryItem{
		{Label: "Mergin URL", Value: d.Credentials.URL},
		{Label: "Username", Value: d.Credentials.Username},
		{Label: "Project", Value: d.Project},
		{Label: "GeoPackage", Value: file},
		{Label: "Modified Schema", Value: d.Modified},
		{Label: "Base Schema", Value: d.Base},
		{Label: "Initialize From", Value: InitFromLabel(d.InitFrom)},
	}
}

// InitFromLabel is the display name of an initialization source.
func InitFromLabel(f api.InitFrom) string {
	if f == api.InitFromDatabase {
		return "Database"
	}
	return "GeoPackage"
}

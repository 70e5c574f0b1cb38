package api

// RunStatus reports whether the sync daemon process is active.
type RunStatus struct {
	Running  bool   `json:"running"`
	Status   string `json:"status,omitempty"`
	PID      *int   `json:"pid,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// StartRequest is the body of a start command. ForceInit discards the
// daemon's working data and schemas before starting.
type StartRequest struct {
	ForceInit bool `json:"force_init,omitempty"`
}

// CommandResponse is returned by the start, stop and save endpoints.
type CommandResponse struct {
	Success bool   `json:"success"`
	PID     int    `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RecentLogsResponse wraps the non-streaming log tail.
type RecentLogsResponse struct {
	Success bool     `json:"success"`
	Logs    []string `json:"logs"`
	Error   string   `json:"error,omitempty"`
}

// LogBatch is the payload of unnamed stream messages.
type LogBatch struct {
	Logs  []string `json:"logs"`
	Index int      `json:"index,omitempty"`
}

// Credentials identify an operator against a Mergin Maps server.
type Credentials struct {
	URL      string `json:"url" yaml:"url"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// MerginResponse is returned by credential validation.
type MerginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PostgresRequest carries a libpq connection string to test.
type PostgresRequest struct {
	ConnInfo string `json:"conn_info"`
}

// PostgresInfo holds the facts learned from a successful connection test.
type PostgresInfo struct {
	Database       string   `json:"database"`
	PGVersion      string   `json:"pg_version"`
	HasPostGIS     bool     `json:"has_postgis"`
	PostGISVersion string   `json:"postgis_version,omitempty"`
	Schemas        []string `json:"schemas"`
}

// PostgresResponse is returned by the database connectivity test.
type PostgresResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	PostgresInfo
}

// ProjectRef names a Mergin project and its latest version.
type ProjectRef struct {
	FullName  string `json:"full_name"`
	Version   string `json:"version"`
	Name      string `json:"name,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// ProjectsResponse lists the projects visible to the operator.
type ProjectsResponse struct {
	Success  bool         `json:"success"`
	Projects []ProjectRef `json:"projects"`
	Error    string       `json:"error,omitempty"`
}

// FilesRequest asks for the GeoPackage files in one project.
type FilesRequest struct {
	Credentials
	Project string `json:"project"`
}

// FileRef is a GeoPackage file inside a Mergin project.
type FileRef struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FilesResponse lists the GeoPackage files of a project.
type FilesResponse struct {
	Success bool      `json:"success"`
	Files   []FileRef `json:"files"`
	Project string    `json:"project,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// InitFrom selects the side the daemon initializes from on first run.
type InitFrom string

const (
	InitFromGPKG     InitFrom = "gpkg"
	InitFromDatabase InitFrom = "db"
)

// Valid reports whether the value is one the daemon accepts.
func (f InitFrom) Valid() bool {
	return f == InitFromGPKG || f == InitFromDatabase
}

// Connection describes the single database/project pairing the wizard sets up.
type Connection struct {
	ConnInfo      string `json:"conn_info"`
	Modified      string `json:"modified"`
	Base          string `json:"base"`
	MerginProject string `json:"mergin_project"`
	SyncFile      string `json:"sync_file"`
}

// DaemonSettings holds daemon loop tuning.
type DaemonSettings struct {
	SleepTime int `json:"sleep_time"`
}

// SyncConfig is the assembled wizard output handed to the save endpoint.
type SyncConfig struct {
	Mergin     Credentials    `json:"mergin"`
	InitFrom   InitFrom       `json:"init_from"`
	Connection Connection     `json:"connection"`
	Daemon     DaemonSettings `json:"daemon"`
}

// StoredConnection is one entry of the daemon config file's connection list.
type StoredConnection struct {
	Driver        string `json:"driver,omitempty" yaml:"driver"`
	ConnInfo      string `json:"conn_info,omitempty" yaml:"conn_info"`
	Modified      string `json:"modified,omitempty" yaml:"modified"`
	Base          string `json:"base,omitempty" yaml:"base"`
	MerginProject string `json:"mergin_project,omitempty" yaml:"mergin_project"`
	SyncFile      string `json:"sync_file,omitempty" yaml:"sync_file"`
}

// StoredDaemon mirrors the daemon section of the config file.
type StoredDaemon struct {
	SleepTime int `json:"sleep_time,omitempty" yaml:"sleep_time"`
}

// StoredConfig is the daemon's on-disk configuration layout as returned by
// load-config. Every field is optional.
type StoredConfig struct {
	Mergin      *Credentials       `json:"mergin,omitempty" yaml:"mergin,omitempty"`
	InitFrom    InitFrom           `json:"init_from,omitempty" yaml:"init_from,omitempty"`
	Connections []StoredConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Daemon      *StoredDaemon      `json:"daemon,omitempty" yaml:"daemon,omitempty"`
}

// Empty reports whether no section is present.
func (c StoredConfig) Empty() bool {
	return c.Mergin == nil && c.InitFrom == "" && len(c.Connections) == 0 && c.Daemon == nil
}

// LoadConfigResponse wraps the stored daemon configuration.
type LoadConfigResponse struct {
	Success bool         `json:"success"`
	Config  StoredConfig `json:"config"`
	Error   string       `json:"error,omitempty"`
}

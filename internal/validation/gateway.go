// Package validation runs the wizard's checkpoint requests: credential
// validation, database connectivity, project listing, and file listing.
// Each call is a single independent request with no retry. Results are
// validated facts; failures keep apiclient's error classes.
package validation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logging"
)

// Client is the daemon API surface the gateway needs.
type Client interface {
	ValidateMergin(ctx context.Context, creds api.Credentials) (string, error)
	TestPostgres(ctx context.Context, connInfo string) (api.PostgresInfo, error)
	ListProjects(ctx context.Context, creds api.Credentials) ([]api.ProjectRef, error)
	ProjectFiles(ctx context.Context, creds api.Credentials, project string) ([]api.FileRef, error)
}

// DatabaseFacts is what a successful connectivity test established.
type DatabaseFacts struct {
	api.PostgresInfo
	// ServerVersion is the server version string up to its first comma.
	ServerVersion string
}

// PostGISLabel renders the PostGIS line shown under a successful test.
func (f DatabaseFacts) PostGISLabel() string {
	if !f.HasPostGIS {
		return "Not installed"
	}
	return "v" + f.PostGISVersion
}

// Gateway issues the wizard's validation requests.
type Gateway struct {
	client Client
	logger *slog.Logger
}

// NewGateway returns a gateway over client.
func NewGateway(client Client, logger *slog.Logger) *Gateway {
	return &Gateway{client: client, logger: logging.NewComponentLogger(logger, "validation")}
}

// ValidateMergin checks credentials and returns the server's confirmation.
func (g *Gateway) ValidateMergin(ctx context.Context, creds api.Credentials) (string, error) {
	started := time.Now()
	message, err := g.client.ValidateMergin(ctx, creds)
	g.record(ctx, "validate mergin", started, err, "server", creds.URL, "username", creds.Username)
	if err != nil {
		return "", err
	}
	return message, nil
}

// TestPostgres checks that connInfo reaches a PostgreSQL server.
func (g *Gateway) TestPostgres(ctx context.Context, connInfo string) (DatabaseFacts, error) {
	started := time.Now()
	info, err := g.client.TestPostgres(ctx, connInfo)
	g.record(ctx, "test postgres", started, err, logging.FieldConnInfo, connInfo)
	if err != nil {
		return DatabaseFacts{}, err
	}
	return DatabaseFacts{PostgresInfo: info, ServerVersion: ShortVersion(info.PGVersion)}, nil
}

// ListProjects returns the projects visible to creds.
func (g *Gateway) ListProjects(ctx context.Context, creds api.Credentials) ([]api.ProjectRef, error) {
	started := time.Now()
	projects, err := g.client.ListProjects(ctx, creds)
	g.record(ctx, "list projects", started, err, "count", len(projects))
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListFiles returns the GeoPackage files of project.
func (g *Gateway) ListFiles(ctx context.Context, creds api.Credentials, project string) ([]api.FileRef, error) {
	started := time.Now()
	files, err := g.client.ProjectFiles(ctx, creds, project)
	g.record(ctx, "list files", started, err, "project", project, "count", len(files))
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (g *Gateway) record(ctx context.Context, op string, started time.Time, err error, args ...any) {
	logger := logging.WithContext(ctx, g.logger).With("op", op, "duration", time.Since(started))
	if err != nil {
		logger.Info("validation failed", append(args, logging.Error(err))...)
		return
	}
	logger.Debug("validation succeeded", args...)
}

// ShortVersion reduces a PostgreSQL version banner to its first
// comma-separated segment.
func ShortVersion(banner string) string {
	head, _, _ := strings.Cut(banner, ",")
	return strings.TrimSpace(head)
}

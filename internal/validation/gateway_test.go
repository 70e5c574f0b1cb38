package validation_test

import (
	"context"
	"net/http"
	"testing"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/logging"
	"dbsyncctl/internal/testsupport"
	"dbsyncctl/internal/validation"
)

func newGateway(t *testing.T, daemon *testsupport.Daemon) *validation.Gateway {
	t.Helper()
	client, err := apiclient.New(daemon.URL(), apiclient.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return validation.NewGateway(client, logging.NewNop())
}

func TestShortVersion(t *testing.T) {
	cases := map[string]string{
		"PostgreSQL 16.2 on x86_64-pc-linux-gnu, compiled by gcc, 64-bit": "PostgreSQL 16.2 on x86_64-pc-linux-gnu",
		"PostgreSQL 15.1":  "PostgreSQL 15.1",
		"":                 "",
		" PostgreSQL 9 , x": "PostgreSQL 9",
	}
	for in, want := range cases {
		if got := validation.ShortVersion(in); got != want {
			t.Fatalf("ShortVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTestPostgresReturnsFacts(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathTestPostgres, http.StatusOK, map[string]any{
		"success":     true,
		"database":    "gis",
		"pg_version":  "PostgreSQL 16.2, compiled by gcc",
		"has_postgis": false,
		"schemas":     []string{},
	})

	facts, err := newGateway(t, daemon).TestPostgres(context.Background(), "dbname=gis")
	if err != nil {
		t.Fatalf("TestPostgres: %v", err)
	}
	if facts.ServerVersion != "PostgreSQL 16.2" || facts.Database != "gis" {
		t.Fatalf("unexpected facts: %+v", facts)
	}
	if facts.PostGISLabel() != "Not installed" {
		t.Fatalf("PostGISLabel = %q", facts.PostGISLabel())
	}
}

func TestValidateMerginSurfacesReportedError(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathValidateMergin, http.StatusUnauthorized, map[string]any{
		"success": false,
		"error":   "Authentication failed: invalid username or password",
	})

	_, err := newGateway(t, daemon).ValidateMergin(context.Background(), api.Credentials{URL: "https://m", Username: "u", Password: "bad"})
	if apiclient.Describe(err) != "Authentication failed: invalid username or password" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListFilesEmptyIsNotAnError(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathProjectFiles, http.StatusOK, map[string]any{
		"success": true,
		"files":   []any{},
	})

	files, err := newGateway(t, daemon).ListFiles(context.Background(), api.Credentials{}, "org/p")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("unexpected files: %+v", files)
	}
}

package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/logging"
	"dbsyncctl/internal/testsupport"
)

func newClient(t *testing.T, daemon *testsupport.Daemon) *apiclient.Client {
	t.Helper()
	client, err := apiclient.New(daemon.URL(), apiclient.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	if _, err := apiclient.New("  ", apiclient.Options{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestNewAddsSchemeToBareHost(t *testing.T) {
	client, err := apiclient.New("127.0.0.1:5000", apiclient.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.BaseURL(); got != "http://127.0.0.1:5000" {
		t.Fatalf("BaseURL = %q", got)
	}
}

func TestStatusDecodesRunState(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodGet, apiclient.PathStatus, http.StatusOK, map[string]any{
		"running": true,
		"status":  "running",
		"pid":     4821,
	})

	status, err := newClient(t, daemon).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID == nil || *status.PID != 4821 {
		t.Fatalf("unexpected status: %+v", status)
	}
	reqs := daemon.Requests(http.MethodGet, apiclient.PathStatus)
	if len(reqs) != 1 || reqs[0].RequestID == "" {
		t.Fatalf("expected one request carrying a request id, got %+v", reqs)
	}
}

func TestRequestIDComesFromContext(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodGet, apiclient.PathStatus, http.StatusOK, map[string]any{"running": false})

	ctx := logging.WithRequestID(context.Background(), "req-42")
	if _, err := newClient(t, daemon).Status(ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if got := daemon.Requests(http.MethodGet, apiclient.PathStatus)[0].RequestID; got != "req-42" {
		t.Fatalf("request id = %q, want req-42", got)
	}
}

func TestStatusServerErrorIsNetworkError(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodGet, apiclient.PathStatus, http.StatusInternalServerError, map[string]any{"error": "boom"})

	_, err := newClient(t, daemon).Status(context.Background())
	if !apiclient.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestStartSendsForceInit(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathStart, http.StatusOK, map[string]any{
		"success": true,
		"pid":     4821,
		"message": "Sync daemon started",
	})

	resp, err := newClient(t, daemon).Start(context.Background(), true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resp.PID != 4821 {
		t.Fatalf("pid = %d, want 4821", resp.PID)
	}
	var body api.StartRequest
	daemon.Requests(http.MethodPost, apiclient.PathStart)[0].Decode(t, &body)
	if !body.ForceInit {
		t.Fatal("expected force_init in request body")
	}
}

func TestReportedFailureKeepsMessageVerbatim(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathStart, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   "Sync daemon is already running",
	})

	_, err := newClient(t, daemon).Start(context.Background(), false)
	if !apiclient.IsReported(err) {
		t.Fatalf("expected reported error, got %v", err)
	}
	if apiclient.IsNetwork(err) {
		t.Fatal("reported error must not classify as network")
	}
	if got := apiclient.Describe(err); got != "Sync daemon is already running" {
		t.Fatalf("Describe = %q", got)
	}
	var reported *apiclient.ReportedError
	if !errors.As(err, &reported) || reported.Op != "start" || reported.Status != http.StatusBadRequest {
		t.Fatalf("unexpected reported error: %+v", reported)
	}
}

func TestReportedFailureWithoutMessageGetsFallback(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathStop, http.StatusInternalServerError, map[string]any{"success": false})

	_, err := newClient(t, daemon).Stop(context.Background())
	if got := apiclient.Describe(err); got != "stop failed (HTTP 500)" {
		t.Fatalf("Describe = %q", got)
	}
}

func TestNonJSONBodyIsNetworkError(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.Handle(http.MethodPost, apiclient.PathStop, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, err := newClient(t, daemon).Stop(context.Background())
	if !errors.Is(err, apiclient.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if got := apiclient.Describe(err); !strings.HasPrefix(got, "Network error: ") {
		t.Fatalf("Describe = %q", got)
	}
}

func TestUnreachableDaemonIsNetworkError(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	client := newClient(t, daemon)
	daemon.Close()

	_, err := client.Status(context.Background())
	if !apiclient.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.HasPrefix(apiclient.Describe(err), "Network error: ") {
		t.Fatalf("Describe = %q", apiclient.Describe(err))
	}
}

func TestRecentLogsPassesCount(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodGet, apiclient.PathRecentLogs, http.StatusOK, map[string]any{
		"success": true,
		"logs":    []string{"a", "b"},
	})

	lines, err := newClient(t, daemon).RecentLogs(context.Background(), 100)
	if err != nil {
		t.Fatalf("RecentLogs: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if q := daemon.Requests(http.MethodGet, apiclient.PathRecentLogs)[0].Query; q != "n=100" {
		t.Fatalf("query = %q, want n=100", q)
	}
}

func TestTestPostgresReturnsInfo(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathTestPostgres, http.StatusOK, map[string]any{
		"success":     true,
		"database":    "gis",
		"pg_version":  "PostgreSQL 16.2, compiled by gcc",
		"has_postgis": true,
		"schemas":     []string{"public"},
	})

	info, err := newClient(t, daemon).TestPostgres(context.Background(), "host=db dbname=gis")
	if err != nil {
		t.Fatalf("TestPostgres: %v", err)
	}
	if info.Database != "gis" || !info.HasPostGIS || len(info.Schemas) != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
	var body api.PostgresRequest
	daemon.Requests(http.MethodPost, apiclient.PathTestPostgres)[0].Decode(t, &body)
	if body.ConnInfo != "host=db dbname=gis" {
		t.Fatalf("conn_info = %q", body.ConnInfo)
	}
}

func TestProjectFilesSendsCredentialsAndProject(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodPost, apiclient.PathProjectFiles, http.StatusOK, map[string]any{
		"success": true,
		"files":   []map[string]any{{"path": "survey.gpkg", "size": 2048}},
	})

	creds := api.Credentials{URL: "https://app.merginmaps.com", Username: "alice", Password: "secret"}
	files, err := newClient(t, daemon).ProjectFiles(context.Background(), creds, "org/survey")
	if err != nil {
		t.Fatalf("ProjectFiles: %v", err)
	}
	if len(files) != 1 || files[0].Path != "survey.gpkg" || files[0].Size != 2048 {
		t.Fatalf("unexpected files: %+v", files)
	}
	var body api.FilesRequest
	daemon.Requests(http.MethodPost, apiclient.PathProjectFiles)[0].Decode(t, &body)
	if body.Project != "org/survey" || body.Username != "alice" || body.URL != creds.URL {
		t.Fatalf("unexpected request body: %+v", body)
	}
}

func TestLoadConfigDecodesStoredLayout(t *testing.T) {
	daemon := testsupport.NewDaemon(t)
	daemon.RespondJSON(http.MethodGet, apiclient.PathLoadConfig, http.StatusOK, map[string]any{
		"success": true,
		"config": map[string]any{
			"mergin":    map[string]any{"url": "https://m.example", "username": "bob"},
			"init_from": "db",
			"connections": []map[string]any{{
				"driver":    "postgres",
				"conn_info": "host=db",
				"modified":  "survey_data",
				"base":      "survey_data_base",
			}},
		},
	})

	cfg, err := newClient(t, daemon).LoadConfig(context.Background())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Mergin == nil || cfg.Mergin.Username != "bob" {
		t.Fatalf("unexpected mergin section: %+v", cfg.Mergin)
	}
	if cfg.InitFrom != api.InitFromDatabase || len(cfg.Connections) != 1 || cfg.Connections[0].Base != "survey_data_base" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestOpenLogStreamRejectsNonOK(t *testing.T) {
	daemon := testsupport.NewDaemon(t)

	_, err := newClient(t, daemon).OpenLogStream(context.Background())
	if !apiclient.IsNetwork(err) {
		t.Fatalf("expected network error for 404 stream, got %v", err)
	}
}

func TestDescribePassesThroughOtherErrors(t *testing.T) {
	if got := apiclient.Describe(errors.New("plain")); got != "plain" {
		t.Fatalf("Describe = %q", got)
	}
	if got := apiclient.Describe(nil); got != "" {
		t.Fatalf("Describe(nil) = %q", got)
	}
}

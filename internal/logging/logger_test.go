package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbsyncctl/internal/config"
	"dbsyncctl/internal/logging"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "console").Info("stream connected", logging.FieldGeneration, 3, "note", "two words")

	line := readLog(t, logPath)
	for _, want := range []string{" INFO console: stream connected", "generation=3", `note="two words"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerRespectsLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "warn", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden") || !strings.Contains(content, "shown") {
		t.Fatalf("unexpected log content %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("status poll failed", logging.Error(os.ErrDeadlineExceeded))

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "status poll failed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigFileTargetWritesOnlyToFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "state", "dbsyncctl.log")

	logger, err := logging.NewFromConfig(&cfg, logging.TargetFile)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("wizard opened")

	if !strings.Contains(readLog(t, cfg.Logging.File), "wizard opened") {
		t.Fatal("expected message in log file")
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithCommand(context.Background(), "start")
	ctx = logging.WithRequestID(ctx, "req-7")

	logging.WithContext(ctx, logger).Info("requested")

	content := readLog(t, logPath)
	if !strings.Contains(content, "command=start") || !strings.Contains(content, "correlation_id=req-7") {
		t.Fatalf("expected context fields in %q", content)
	}
}

func TestRequestIDFromContextIgnoresBlank(t *testing.T) {
	ctx := logging.WithRequestID(context.Background(), "  ")
	if _, ok := logging.RequestIDFromContext(ctx); ok {
		t.Fatal("blank request id must not be stored")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger must not be enabled")
	}
	logging.WithContext(context.Background(), nil).Info("ignored")
}

func TestJSONLoggerMasksSecretsAndDropsEmptyContext(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "secrets.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("validation failed",
		logging.FieldConnInfo, "host=db dbname=gis user=sync password=hunter2",
		"password", "hunter2",
		logging.FieldCorrelationID, "",
		logging.FieldComponent, "validation",
	)

	raw := readLog(t, logPath)
	if strings.Contains(raw, "hunter2") {
		t.Fatalf("secret leaked into %q", raw)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record[logging.FieldConnInfo] != "host=db dbname=gis user=sync password=********" {
		t.Fatalf("unexpected conn_info %v", record[logging.FieldConnInfo])
	}
	if record["password"] != "********" {
		t.Fatalf("unexpected password %v", record["password"])
	}
	if _, ok := record[logging.FieldCorrelationID]; ok {
		t.Fatalf("expected empty correlation_id to be omitted: %v", record)
	}
	if record[logging.FieldComponent] != "validation" {
		t.Fatalf("unexpected component %v", record[logging.FieldComponent])
	}
	ts, _ := record["ts"].(string)
	if !strings.Contains(ts, ".") {
		t.Fatalf("expected millisecond timestamp, got %q", ts)
	}
}

func TestConsoleLoggerMasksConnInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-secrets.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("validation failed", logging.FieldConnInfo, "postgresql://sync:s3cret@db:5432/gis")

	content := readLog(t, logPath)
	if strings.Contains(content, "s3cret") || !strings.Contains(content, "postgresql://sync:********@db:5432/gis") {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestRedactConnInfo(t *testing.T) {
	cases := map[string]string{
		"host=db password=pw dbname=gis":       "host=db password=******** dbname=gis",
		"host=db password='a b c' dbname=gis":  "host=db password=******** dbname=gis",
		"host=db dbname=gis":                   "host=db dbname=gis",
		"postgres://u:p@ss@db/gis?sslmode=off": "postgres://u:********@db/gis?sslmode=off",
		"postgres://u@db/gis":                  "postgres://u@db/gis",
		"postgres://db/gis":                    "postgres://db/gis",
	}
	for in, want := range cases {
		if got := logging.RedactConnInfo(in); got != want {
			t.Fatalf("RedactConnInfo(%q) = %q, want %q", in, got, want)
		}
	}
}

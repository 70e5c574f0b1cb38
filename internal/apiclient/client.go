package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logging"
)

const (
	// RequestIDHeader carries the per-request correlation identifier.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 8 << 20
)

// Endpoint paths, relative to the daemon's base URL.
const (
	PathStatus         = "/api/sync/status"
	PathStart          = "/api/sync/start"
	PathStop           = "/api/sync/stop"
	PathRecentLogs     = "/api/logs/recent"
	PathLogStream      = "/api/logs/stream"
	PathValidateMergin = "/api/wizard/validate-mergin"
	PathTestPostgres   = "/api/wizard/test-postgres"
	PathListProjects   = "/api/wizard/list-projects"
	PathProjectFiles   = "/api/wizard/project-files"
	PathSaveConfig     = "/api/wizard/save-config"
	PathLoadConfig     = "/api/wizard/load-config"
)

// Doer is the subset of *http.Client the client needs.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options tunes a Client.
type Options struct {
	// Timeout bounds every non-streaming request. Zero uses 30s.
	Timeout time.Duration
	// HTTP overrides the transport for request/response calls.
	HTTP Doer
	// Stream overrides the transport for the log stream. It must not impose
	// a whole-request timeout.
	Stream Doer
	Logger *slog.Logger
}

// Client talks to the sync daemon's HTTP API.
type Client struct {
	base   *url.URL
	http   Doer
	stream Doer
	logger *slog.Logger
}

// New builds a client for the daemon at baseURL. A bare host:port is
// treated as http.
func New(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api base url is empty")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api base url %q has no host", baseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	base.RawQuery = ""
	base.Fragment = ""

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	streamClient := opts.Stream
	if streamClient == nil {
		// No timeout - the stream stays open until the caller cancels.
		streamClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		base:   base,
		http:   httpClient,
		stream: streamClient,
		logger: logger.With(logging.FieldComponent, "apiclient"),
	}, nil
}

// BaseURL returns the daemon base URL the client targets.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Status returns the daemon's current run state.
func (c *Client) Status(ctx context.Context) (api.RunStatus, error) {
	var status api.RunStatus
	code, err := c.do(ctx, "status", http.MethodGet, PathStatus, nil, nil, &status)
	if err != nil {
		return api.RunStatus{}, err
	}
	if code >= 400 {
		return api.RunStatus{}, &NetworkError{Op: "status", Err: fmt.Errorf("status %d", code)}
	}
	return status, nil
}

// Start launches the sync daemon. forceInit asks the daemon to discard its
// working data first.
func (c *Client) Start(ctx context.Context, forceInit bool) (api.CommandResponse, error) {
	return c.command(ctx, "start", PathStart, api.StartRequest{ForceInit: forceInit})
}

// Stop terminates the sync daemon.
func (c *Client) Stop(ctx context.Context) (api.CommandResponse, error) {
	return c.command(ctx, "stop", PathStop, struct{}{})
}

// RecentLogs returns up to n of the newest daemon log lines, oldest first.
func (c *Client) RecentLogs(ctx context.Context, n int) ([]string, error) {
	query := url.Values{}
	if n > 0 {
		query.Set("n", strconv.Itoa(n))
	}
	var payload api.RecentLogsResponse
	status, err := c.do(ctx, "recent logs", http.MethodGet, PathRecentLogs, query, nil, &payload)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, reported("recent logs", status, payload.Error)
	}
	return payload.Logs, nil
}

// ValidateMergin checks credentials against the Mergin server and returns
// the daemon's confirmation message.
func (c *Client) ValidateMergin(ctx context.Context, creds api.Credentials) (string, error) {
	var payload api.MerginResponse
	status, err := c.do(ctx, "validate mergin", http.MethodPost, PathValidateMergin, nil, creds, &payload)
	if err != nil {
		return "", err
	}
	if !payload.Success {
		return "", reported("validate mergin", status, payload.Error)
	}
	return payload.Message, nil
}

// TestPostgres checks that connInfo reaches a PostgreSQL server.
func (c *Client) TestPostgres(ctx context.Context, connInfo string) (api.PostgresInfo, error) {
	var payload api.PostgresResponse
	status, err := c.do(ctx, "test postgres", http.MethodPost, PathTestPostgres, nil, api.PostgresRequest{ConnInfo: connInfo}, &payload)
	if err != nil {
		return api.PostgresInfo{}, err
	}
	if !payload.Success {
		return api.PostgresInfo{}, reported("test postgres", status, payload.Error)
	}
	return payload.PostgresInfo, nil
}

// ListProjects returns the Mergin projects visible to creds.
func (c *Client) ListProjects(ctx context.Context, creds api.Credentials) ([]api.ProjectRef, error) {
	var payload api.ProjectsResponse
	status, err := c.do(ctx, "list projects", http.MethodPost, PathListProjects, nil, creds, &payload)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, reported("list projects", status, payload.Error)
	}
	return payload.Projects, nil
}

// ProjectFiles returns the GeoPackage files stored in project.
func (c *Client) ProjectFiles(ctx context.Context, creds api.Credentials, project string) ([]api.FileRef, error) {
	var payload api.FilesResponse
	body := api.FilesRequest{Credentials: creds, Project: project}
	status, err := c.do(ctx, "project files", http.MethodPost, PathProjectFiles, nil, body, &payload)
	if err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, reported("project files", status, payload.Error)
	}
	return payload.Files, nil
}

// SaveConfig hands the assembled configuration to the daemon.
func (c *Client) SaveConfig(ctx context.Context, cfg api.SyncConfig) (api.CommandResponse, error) {
	return c.command(ctx, "save config", PathSaveConfig, cfg)
}

// LoadConfig returns the daemon's stored configuration. A missing file is
// reported by the daemon as an empty config.
func (c *Client) LoadConfig(ctx context.Context) (api.StoredConfig, error) {
	var payload api.LoadConfigResponse
	status, err := c.do(ctx, "load config", http.MethodGet, PathLoadConfig, nil, nil, &payload)
	if err != nil {
		return api.StoredConfig{}, err
	}
	if !payload.Success {
		return api.StoredConfig{}, reported("load config", status, payload.Error)
	}
	return payload.Config, nil
}

// OpenLogStream opens the daemon's server-sent event log stream. The caller
// owns the returned body and must close it; cancelling ctx also ends it.
func (c *Client) OpenLogStream(ctx context.Context) (io.ReadCloser, error) {
	const op = "log stream"
	req, requestID, err := c.newRequest(ctx, http.MethodGet, PathLogStream, nil, nil)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	c.logger.Debug("log stream opened", logging.FieldCorrelationID, requestID)
	return resp.Body, nil
}

func (c *Client) command(ctx context.Context, op, path string, body any) (api.CommandResponse, error) {
	var payload api.CommandResponse
	status, err := c.do(ctx, op, http.MethodPost, path, nil, body, &payload)
	if err != nil {
		return api.CommandResponse{}, err
	}
	if !payload.Success {
		return api.CommandResponse{}, reported(op, status, payload.Error)
	}
	return payload, nil
}

// do issues one request and decodes the JSON body into out regardless of the
// HTTP status, since failure envelopes arrive with 4xx/5xx codes.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, out any) (int, error) {
	req, requestID, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return 0, &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			"op", op,
			logging.FieldCorrelationID, requestID,
			"error", err,
		)
		return 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(started),
		logging.FieldCorrelationID, requestID,
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode >= 400 {
			return resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
		}
		return resp.StatusCode, &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := *c.base
	endpoint.Path = c.base.Path + path
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID, ok := logging.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set(RequestIDHeader, requestID)
	return req, requestID, nil
}

package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logging"
)

var (
	// ErrCommandInFlight is returned when the same endpoint already has a
	// request outstanding. No request is issued.
	ErrCommandInFlight = errors.New("command already in progress")
	// ErrNotConfirmed is returned when a re-initialization was not
	// confirmed. No request is issued.
	ErrNotConfirmed = errors.New("re-initialization not confirmed")
)

// ReinitPrompt is the question put to the operator before a forced
// re-initialization.
const ReinitPrompt = "This will remove the working directory and database schemas to reinitialize from scratch. Continue?"

// Endpoint identifies a control endpoint for the busy guard. Start and
// re-init share EndpointStart.
type Endpoint string

const (
	EndpointStart Endpoint = "start"
	EndpointStop  Endpoint = "stop"
)

// Controller is the daemon API surface the actions drive.
type Controller interface {
	Start(ctx context.Context, forceInit bool) (api.CommandResponse, error)
	Stop(ctx context.Context) (api.CommandResponse, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm approves every prompt. Used for --yes.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// StartResult captures a successful start request.
type StartResult struct {
	PID       int
	ForceInit bool
	Message   string
}

// Notice is the operator-facing confirmation line.
func (r StartResult) Notice() string {
	if r.ForceInit {
		return fmt.Sprintf("Sync daemon started with re-initialization (PID: %d)", r.PID)
	}
	return fmt.Sprintf("Sync daemon started (PID: %d)", r.PID)
}

// StopResult captures a successful stop request.
type StopResult struct {
	Message string
}

// Notice is the operator-facing confirmation line.
func (StopResult) Notice() string {
	return "Sync daemon stopped"
}

// Actions issues start, stop, and re-init requests with a per-endpoint busy
// guard. It is safe for concurrent use.
type Actions struct {
	client Controller
	logger *slog.Logger

	mu   sync.Mutex
	busy map[Endpoint]bool
}

// NewActions returns actions driving client.
func NewActions(client Controller, logger *slog.Logger) *Actions {
	return &Actions{
		client: client,
		logger: logging.NewComponentLogger(logger, "daemonctl"),
		busy:   make(map[Endpoint]bool),
	}
}

// Busy reports whether ep has a request outstanding.
func (a *Actions) Busy(ep Endpoint) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.busy[ep]
}

// StartSync starts the daemon. With forceInit the daemon first discards its
// working data; that path requires confirm to approve ReinitPrompt.
func (a *Actions) StartSync(ctx context.Context, forceInit bool, confirm Confirmer) (StartResult, error) {
	if forceInit && (confirm == nil || !confirm.Confirm(ctx, ReinitPrompt)) {
		return StartResult{}, ErrNotConfirmed
	}
	release, err := a.acquire(EndpointStart)
	if err != nil {
		return StartResult{}, err
	}
	defer release()

	logger := logging.WithContext(ctx, a.logger)
	logger.Info("start requested", "force_init", forceInit)
	resp, err := a.client.Start(ctx, forceInit)
	if err != nil {
		logger.Warn("start failed", logging.Error(err))
		return StartResult{}, err
	}
	logger.Info("sync daemon started", "pid", resp.PID)
	return StartResult{PID: resp.PID, ForceInit: forceInit, Message: strings.TrimSpace(resp.Message)}, nil
}

// StopSync stops the daemon.
func (a *Actions) StopSync(ctx context.Context) (StopResult, error) {
	release, err := a.acquire(EndpointStop)
	if err != nil {
		return StopResult{}, err
	}
	defer release()

	logger := logging.WithContext(ctx, a.logger)
	logger.Info("stop requested")
	resp, err := a.client.Stop(ctx)
	if err != nil {
		logger.Warn("stop failed", logging.Error(err))
		return StopResult{}, err
	}
	logger.Info("sync daemon stopped")
	return StopResult{Message: strings.TrimSpace(resp.Message)}, nil
}

func (a *Actions) acquire(ep Endpoint) (func(), error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy[ep] {
		return nil, fmt.Errorf("%s: %w", ep, ErrCommandInFlight)
	}
	a.busy[ep] = true
	return func() {
		a.mu.Lock()
		delete(a.busy, ep)
		a.mu.Unlock()
	}, nil
}

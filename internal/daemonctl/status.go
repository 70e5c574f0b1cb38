package daemonctl

import (
	"context"
	"log/slog"
	"time"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logging"
)

// DefaultPollInterval is the status polling period.
const DefaultPollInterval = 5 * time.Second

// StatusSource reports the daemon's run state.
type StatusSource interface {
	Status(ctx context.Context) (api.RunStatus, error)
}

// StatusPoller asks the daemon for its run state on a fixed interval.
type StatusPoller struct {
	source   StatusSource
	interval time.Duration
	logger   *slog.Logger
}

// NewStatusPoller returns a poller. A non-positive interval uses
// DefaultPollInterval.
func NewStatusPoller(source StatusSource, interval time.Duration, logger *slog.Logger) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &StatusPoller{
		source:   source,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "status"),
	}
}

// Interval returns the polling period.
func (p *StatusPoller) Interval() time.Duration { return p.interval }

// Poll issues a single status request.
func (p *StatusPoller) Poll(ctx context.Context) (api.RunStatus, error) {
	return p.source.Status(ctx)
}

// Run polls immediately and then every interval until ctx ends, handing each
// outcome to fn. Failures are logged at warn; callers keep their previous
// state when err is non-nil.
func (p *StatusPoller) Run(ctx context.Context, fn func(api.RunStatus, error)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		status, err := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("status poll failed", logging.Error(err))
		}
		fn(status, err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

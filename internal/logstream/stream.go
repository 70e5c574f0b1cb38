package logstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logging"
)

// ErrStreamEnded reports that the server closed the stream cleanly. It is
// handled like any other transport error.
var ErrStreamEnded = errors.New("log stream ended")

// statusEvent is the SSE event name carrying run status.
const statusEvent = "status"

// Opener opens the daemon's event stream.
type Opener interface {
	OpenLogStream(ctx context.Context) (io.ReadCloser, error)
}

// Message is one decoded stream payload tagged with its connection
// generation. Exactly one of Lines or Status is set.
type Message struct {
	Generation uint64
	Lines      []string
	Status     *api.RunStatus
}

// Dialer performs the stream I/O on behalf of a Machine owner.
type Dialer struct {
	opener Opener
	logger *slog.Logger
}

// NewDialer returns a dialer that opens connections through opener.
func NewDialer(opener Opener, logger *slog.Logger) *Dialer {
	return &Dialer{
		opener: opener,
		logger: logging.NewComponentLogger(logger, "logstream"),
	}
}

// Run opens one connection for generation gen and delivers its messages
// until the stream fails, ends, or ctx is cancelled. It always returns a
// non-nil error: ctx.Err() after cancellation, ErrStreamEnded on a clean end,
// or the transport failure.
func (d *Dialer) Run(ctx context.Context, gen uint64, deliver func(Message)) error {
	body, err := d.opener.OpenLogStream(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("open log stream: %w", err)
	}
	defer body.Close()

	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	d.logger.Debug("log stream connected", logging.FieldGeneration, gen)
	decoder := NewDecoder(body)
	for {
		evt, err := decoder.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrStreamEnded
			}
			return fmt.Errorf("read log stream: %w", err)
		}
		msg, ok := d.decode(evt)
		if !ok {
			continue
		}
		msg.Generation = gen
		deliver(msg)
	}
}

func (d *Dialer) decode(evt Event) (Message, bool) {
	switch evt.Name {
	case "", "message":
		var batch api.LogBatch
		if err := json.Unmarshal([]byte(evt.Data), &batch); err != nil {
			d.logger.Debug("skipping undecodable log batch", logging.Error(err))
			return Message{}, false
		}
		if len(batch.Logs) == 0 {
			return Message{}, false
		}
		return Message{Lines: batch.Logs}, true
	case statusEvent:
		var status api.RunStatus
		if err := json.Unmarshal([]byte(evt.Data), &status); err != nil {
			d.logger.Debug("skipping undecodable status event", logging.Error(err))
			return Message{}, false
		}
		return Message{Status: &status}, true
	default:
		return Message{}, false
	}
}

package console

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/daemonctl"
	"dbsyncctl/internal/logbuffer"
	"dbsyncctl/internal/logging"
	"dbsyncctl/internal/logstream"
)

// DefaultRecentLines is the size of the log tail loaded at startup.
const DefaultRecentLines = 100

// Client is the daemon API surface the console drives.
type Client interface {
	Status(ctx context.Context) (api.RunStatus, error)
	Start(ctx context.Context, forceInit bool) (api.CommandResponse, error)
	Stop(ctx context.Context) (api.CommandResponse, error)
	RecentLogs(ctx context.Context, n int) ([]string, error)
	OpenLogStream(ctx context.Context) (io.ReadCloser, error)
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	BufferLines    int
	RecentLines    int
	Logger         *slog.Logger
	// LineSink, when set, receives every batch appended to the buffer, in
	// order, on the controller goroutine.
	LineSink func(lines []string)
	// FollowRestarts opens the stream whenever a poll sees the daemon go from
	// stopped to running while no stream is live. Without it only the first
	// probe and a local start open the stream.
	FollowRestarts bool
}

// Controller owns the console's state: run status, the log stream, the log
// buffer, control in-flight flags and the notice line. Run is the only
// goroutine that mutates it; everything else posts events.
type Controller struct {
	client  Client
	actions *daemonctl.Actions
	poller  *daemonctl.StatusPoller
	dialer  *logstream.Dialer
	machine *logstream.Machine
	buffer  *logbuffer.Buffer
	logger  *slog.Logger
	sink    func([]string)

	recentLines    int
	followRestarts bool

	events  chan event
	updates chan Snapshot
	done    chan struct{}

	// Loop-owned state.
	ctx        context.Context
	status     api.RunStatus
	known      bool
	probed     bool
	pollErr    string
	notice     Notice
	inFlight   map[daemonctl.Endpoint]bool
	reinit     bool
	cancelConn context.CancelFunc
	timer      *time.Timer

	// Stream lines that arrive before the recent tail is applied wait in
	// held so the tail stays in front of them.
	tailPending bool
	held        []string
}

// New returns a console controller over client. Call Run to start it.
func New(client Client, opts Options) *Controller {
	logger := logging.NewComponentLogger(opts.Logger, "console")
	recent := opts.RecentLines
	if recent < 0 {
		recent = 0
	}
	return &Controller{
		client:         client,
		actions:        daemonctl.NewActions(client, opts.Logger),
		poller:         daemonctl.NewStatusPoller(client, opts.PollInterval, opts.Logger),
		dialer:         logstream.NewDialer(client, opts.Logger),
		machine:        logstream.NewMachine(opts.ReconnectDelay),
		buffer:         logbuffer.New(opts.BufferLines),
		logger:         logger,
		sink:           opts.LineSink,
		recentLines:    recent,
		followRestarts: opts.FollowRestarts,
		events:         make(chan event, 64),
		updates:        make(chan Snapshot, 1),
		done:           make(chan struct{}),
		inFlight:       make(map[daemonctl.Endpoint]bool),
	}
}

// Updates delivers state snapshots. Only the latest unread snapshot is kept.
func (c *Controller) Updates() <-chan Snapshot { return c.updates }

// Start asks the daemon to start.
func (c *Controller) Start() { c.post(commandRequest{endpoint: daemonctl.EndpointStart}) }

// Reinit asks the daemon to start from scratch. confirm must approve
// daemonctl.ReinitPrompt before any request is sent.
func (c *Controller) Reinit(confirm daemonctl.Confirmer) {
	c.post(commandRequest{endpoint: daemonctl.EndpointStart, forceInit: true, confirm: confirm})
}

// Stop asks the daemon to stop.
func (c *Controller) Stop() { c.post(commandRequest{endpoint: daemonctl.EndpointStop}) }

// Clear empties the log buffer. The stream is unaffected.
func (c *Controller) Clear() { c.post(clearRequest{}) }

// Run loads the recent log tail, starts status polling, and processes
// events until ctx ends. On return the stream is closed.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.ctx = ctx
	defer func() {
		cancel()
		c.apply(c.machine.Stop())
		c.stopTimer()
		close(c.done)
	}()

	if c.recentLines > 0 {
		c.tailPending = true
		go c.loadRecent(ctx)
	}
	go c.poller.Run(ctx, func(status api.RunStatus, err error) {
		c.post(statusResult{status: status, err: err})
	})

	c.publish()
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("console stopped")
			return nil
		case evt := <-c.events:
			c.handle(evt)
			c.publish()
		}
	}
}

func (c *Controller) handle(evt event) {
	switch e := evt.(type) {
	case statusResult:
		c.onStatus(e)
	case recentResult:
		c.onRecent(e)
	case streamMessage:
		c.onStreamMessage(e.msg)
	case streamClosed:
		c.logger.Debug("log stream closed", logging.FieldGeneration, e.gen, logging.Error(e.err))
		c.apply(c.machine.TransportError(e.gen, c.status.Running))
	case reconnectDue:
		c.apply(c.machine.ReconnectDue(e.gen, c.status.Running))
	case commandRequest:
		c.onCommand(e)
	case commandDone:
		c.onCommandDone(e)
	case clearRequest:
		c.buffer.Clear()
		c.held = nil
	}
}

func (c *Controller) onStatus(e statusResult) {
	if e.err != nil {
		c.pollErr = apiclient.Describe(e.err)
		return
	}
	c.pollErr = ""
	wasRunning := c.status.Running
	c.status = e.status
	c.known = true
	if !c.probed {
		c.probed = true
		if c.status.Running {
			c.apply(c.machine.Start())
		}
		return
	}
	if c.followRestarts && !wasRunning && c.status.Running && c.machine.State() == logstream.StateClosed {
		c.logger.Debug("daemon started elsewhere; opening log stream")
		c.apply(c.machine.Start())
	}
}

func (c *Controller) onRecent(e recentResult) {
	c.tailPending = false
	held := c.held
	c.held = nil
	if e.err != nil {
		c.logger.Debug("recent logs unavailable", logging.Error(e.err))
	} else {
		c.appendLines(e.lines)
	}
	c.appendLines(held)
}

func (c *Controller) onStreamMessage(msg logstream.Message) {
	if !c.machine.Accepts(msg.Generation) {
		return
	}
	if msg.Status != nil {
		c.status = *msg.Status
		c.known = true
		return
	}
	if c.tailPending {
		c.held = append(c.held, msg.Lines...)
		return
	}
	c.appendLines(msg.Lines)
}

func (c *Controller) appendLines(lines []string) {
	if len(lines) == 0 {
		return
	}
	c.buffer.Append(lines...)
	if c.sink != nil {
		c.sink(lines)
	}
}

func (c *Controller) onCommand(e commandRequest) {
	if !c.enabled(e.endpoint) {
		c.logger.Debug("ignoring disabled control", "endpoint", string(e.endpoint), "force_init", e.forceInit)
		return
	}
	c.inFlight[e.endpoint] = true
	c.reinit = e.forceInit
	c.notice = Notice{}

	ctx := c.ctx
	go func() {
		done := commandDone{endpoint: e.endpoint, forceInit: e.forceInit}
		if e.endpoint == daemonctl.EndpointStop {
			var res daemonctl.StopResult
			res, done.err = c.actions.StopSync(ctx)
			done.notice = res.Notice()
		} else {
			var res daemonctl.StartResult
			res, done.err = c.actions.StartSync(ctx, e.forceInit, e.confirm)
			done.notice = res.Notice()
		}
		c.post(done)
	}()
}

func (c *Controller) onCommandDone(e commandDone) {
	delete(c.inFlight, e.endpoint)
	if e.endpoint == daemonctl.EndpointStart {
		c.reinit = false
	}
	switch {
	case e.err == nil:
	case errors.Is(e.err, daemonctl.ErrNotConfirmed):
		return
	case errors.Is(e.err, context.Canceled):
		return
	default:
		c.notice = Notice{Kind: NoticeError, Text: apiclient.Describe(e.err)}
		return
	}

	c.notice = Notice{Kind: NoticeSuccess, Text: e.notice}
	c.known = true
	if e.endpoint == daemonctl.EndpointStop {
		c.status.Running = false
		return
	}
	c.status.Running = true
	c.apply(c.machine.Start())
}

func (c *Controller) enabled(ep daemonctl.Endpoint) bool {
	if c.inFlight[ep] {
		return false
	}
	if ep == daemonctl.EndpointStop {
		return c.status.Running
	}
	return !c.status.Running
}

// apply performs the I/O a machine transition asks for.
func (c *Controller) apply(eff logstream.Effect) {
	if eff.Disconnect && c.cancelConn != nil {
		c.cancelConn()
		c.cancelConn = nil
	}
	if eff.Connect {
		c.stopTimer()
		c.connect(eff.Generation)
	}
	if eff.ScheduleReconnect {
		c.stopTimer()
		gen := eff.Generation
		c.timer = time.AfterFunc(eff.Delay, func() { c.post(reconnectDue{gen: gen}) })
	}
}

func (c *Controller) connect(gen uint64) {
	if c.cancelConn != nil {
		c.cancelConn()
	}
	connCtx, cancel := context.WithCancel(c.ctx)
	c.cancelConn = cancel
	go func() {
		err := c.dialer.Run(connCtx, gen, func(msg logstream.Message) {
			c.post(streamMessage{msg: msg})
		})
		c.post(streamClosed{gen: gen, err: err})
	}()
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) loadRecent(ctx context.Context) {
	lines, err := c.client.RecentLogs(ctx, c.recentLines)
	c.post(recentResult{lines: lines, err: err})
}

func (c *Controller) post(evt event) {
	select {
	case c.events <- evt:
	case <-c.done:
	}
}

func (c *Controller) publish() {
	snap := c.snapshot()
	select {
	case <-c.updates:
	default:
	}
	c.updates <- snap
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Status:         c.status,
		StatusKnown:    c.known,
		StatusError:    c.pollErr,
		Stream:         c.machine.State(),
		Lines:          c.buffer.Lines(),
		Notice:         c.notice,
		Starting:       c.inFlight[daemonctl.EndpointStart] && !c.reinit,
		Reinitializing: c.inFlight[daemonctl.EndpointStart] && c.reinit,
		Stopping:       c.inFlight[daemonctl.EndpointStop],
		StartEnabled:   c.enabled(daemonctl.EndpointStart),
		StopEnabled:    c.enabled(daemonctl.EndpointStop),
	}
}

package console_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/console"
	"dbsyncctl/internal/daemonctl"
	"dbsyncctl/internal/logstream"
	"dbsyncctl/internal/testsupport"
)

type fixture struct {
	daemon  *testsupport.Daemon
	running atomic.Bool
}

func newFixture(t *testing.T, running bool) *fixture {
	t.Helper()
	f := &fixture{daemon: testsupport.NewDaemon(t)}
	f.running.Store(running)
	f.daemon.Handle(http.MethodGet, apiclient.PathStatus, func(w http.ResponseWriter, _ *http.Request) {
		testsupport.WriteJSON(w, http.StatusOK, api.RunStatus{Running: f.running.Load()})
	})
	f.daemon.RespondJSON(http.MethodGet, apiclient.PathRecentLogs, http.StatusOK, api.RecentLogsResponse{Success: true})
	return f
}

func (f *fixture) start(t *testing.T, opts console.Options) *console.Controller {
	t.Helper()
	client, err := apiclient.New(f.daemon.URL(), apiclient.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)

	if opts.PollInterval == 0 {
		opts.PollInterval = time.Hour
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = 20 * time.Millisecond
	}
	if opts.RecentLines == 0 {
		opts.RecentLines = console.DefaultRecentLines
	}
	c := console.New(client, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("console did not stop")
		}
	})
	return c
}

func waitFor(t *testing.T, c *console.Controller, desc string, pred func(console.Snapshot) bool) console.Snapshot {
	t.Helper()
	timeout := time.After(3 * time.Second)
	var last console.Snapshot
	for {
		select {
		case snap := <-c.Updates():
			last = snap
			if pred(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s; last snapshot %+v", desc, last)
			return last
		}
	}
}

func known(s console.Snapshot) bool { return s.StatusKnown }

func TestStartOpensStreamAndReportsPID(t *testing.T) {
	f := newFixture(t, false)
	frames := make(chan string, 4)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))
	f.daemon.RespondJSON(http.MethodPost, apiclient.PathStart, http.StatusOK, api.CommandResponse{Success: true, PID: 4821})

	c := f.start(t, console.Options{})
	snap := waitFor(t, c, "initial status", known)
	assert.True(t, snap.StartEnabled)
	assert.False(t, snap.StopEnabled)
	assert.Equal(t, logstream.StateClosed, snap.Stream)
	assert.Equal(t, 0, f.daemon.Count(http.MethodGet, apiclient.PathLogStream))

	c.Start()
	snap = waitFor(t, c, "start result", func(s console.Snapshot) bool { return !s.Notice.Empty() })
	assert.Equal(t, console.Notice{Kind: console.NoticeSuccess, Text: "Sync daemon started (PID: 4821)"}, snap.Notice)
	assert.True(t, snap.Status.Running)
	assert.False(t, snap.StartEnabled)
	assert.True(t, snap.StopEnabled)
	assert.Equal(t, logstream.StateOpen, snap.Stream)

	frames <- testsupport.LogFrame("sync started", "pulling changes")
	snap = waitFor(t, c, "streamed lines", func(s console.Snapshot) bool { return len(s.Lines) == 2 })
	assert.Equal(t, []string{"sync started", "pulling changes"}, snap.Lines)

	reqs := f.daemon.Requests(http.MethodPost, apiclient.PathStart)
	require.Len(t, reqs, 1)
	var body api.StartRequest
	reqs[0].Decode(t, &body)
	assert.False(t, body.ForceInit)
}

func TestRunningAtStartupLoadsTailAndStreams(t *testing.T) {
	f := newFixture(t, true)
	f.daemon.RespondJSON(http.MethodGet, apiclient.PathRecentLogs, http.StatusOK, api.RecentLogsResponse{
		Success: true,
		Logs:    []string{"old 1", "old 2"},
	})
	frames := make(chan string, 4)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))

	var mu sync.Mutex
	var sunk []string
	c := f.start(t, console.Options{LineSink: func(lines []string) {
		mu.Lock()
		sunk = append(sunk, lines...)
		mu.Unlock()
	}})

	waitFor(t, c, "tail and open stream", func(s console.Snapshot) bool {
		return len(s.Lines) == 2 && s.Stream == logstream.StateOpen
	})
	frames <- testsupport.LogFrame("new 1")
	snap := waitFor(t, c, "streamed line", func(s console.Snapshot) bool { return len(s.Lines) == 3 })
	assert.Equal(t, "new 1", snap.Lines[2])

	reqs := f.daemon.Requests(http.MethodGet, apiclient.PathRecentLogs)
	require.Len(t, reqs, 1)
	assert.Equal(t, "n=100", reqs[0].Query)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"old 1", "old 2", "new 1"}, sunk)
}

func TestStreamReconnectsWhileRunning(t *testing.T) {
	f := newFixture(t, true)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})

	f.start(t, console.Options{})
	require.Eventually(t, func() bool {
		return f.daemon.Count(http.MethodGet, apiclient.PathLogStream) >= 3
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStreamClosesWhenDaemonStops(t *testing.T) {
	f := newFixture(t, true)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testsupport.LogFrame("final line") + testsupport.StatusFrame(false)))
	})

	c := f.start(t, console.Options{})
	snap := waitFor(t, c, "stream closed", func(s console.Snapshot) bool {
		return s.StatusKnown && !s.Status.Running && s.Stream == logstream.StateClosed && len(s.Lines) == 1
	})
	assert.Equal(t, "final line", snap.Lines[0])
	assert.True(t, snap.StartEnabled)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, f.daemon.Count(http.MethodGet, apiclient.PathLogStream), "no reconnect once stopped")
}

func TestStopReportsNotice(t *testing.T) {
	f := newFixture(t, true)
	frames := make(chan string)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))
	f.daemon.RespondJSON(http.MethodPost, apiclient.PathStop, http.StatusOK, api.CommandResponse{Success: true})

	c := f.start(t, console.Options{})
	waitFor(t, c, "running", func(s console.Snapshot) bool { return s.StopEnabled })

	c.Stop()
	snap := waitFor(t, c, "stop result", func(s console.Snapshot) bool { return !s.Notice.Empty() })
	assert.Equal(t, "Sync daemon stopped", snap.Notice.Text)
	assert.False(t, snap.Status.Running)
	assert.True(t, snap.StartEnabled)
	assert.False(t, snap.StopEnabled)
}

func TestReportedFailureKeepsState(t *testing.T) {
	f := newFixture(t, false)
	f.daemon.RespondJSON(http.MethodPost, apiclient.PathStart, http.StatusOK, api.CommandResponse{
		Success: false,
		Error:   "Configuration file not found",
	})

	c := f.start(t, console.Options{})
	waitFor(t, c, "initial status", known)

	c.Start()
	snap := waitFor(t, c, "start failure", func(s console.Snapshot) bool { return !s.Notice.Empty() })
	assert.Equal(t, console.Notice{Kind: console.NoticeError, Text: "Configuration file not found"}, snap.Notice)
	assert.False(t, snap.Status.Running)
	assert.True(t, snap.StartEnabled)
	assert.Equal(t, logstream.StateClosed, snap.Stream)
}

func TestReinitRequiresConfirmation(t *testing.T) {
	f := newFixture(t, false)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(make(chan string)))
	f.daemon.RespondJSON(http.MethodPost, apiclient.PathStart, http.StatusOK, api.CommandResponse{Success: true, PID: 77})

	c := f.start(t, console.Options{})
	waitFor(t, c, "initial status", known)

	var asked atomic.Int32
	c.Reinit(daemonctl.ConfirmFunc(func(_ context.Context, prompt string) bool {
		asked.Add(1)
		assert.Equal(t, daemonctl.ReinitPrompt, prompt)
		return false
	}))
	require.Eventually(t, func() bool { return asked.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.daemon.Count(http.MethodPost, apiclient.PathStart))

	// Requests made while the declined one is still settling are ignored;
	// once the daemon runs, start is disabled, so at most one goes out.
	require.Eventually(t, func() bool {
		c.Reinit(daemonctl.AlwaysConfirm)
		return f.daemon.Count(http.MethodPost, apiclient.PathStart) == 1
	}, 2*time.Second, 10*time.Millisecond)
	snap := waitFor(t, c, "reinit result", func(s console.Snapshot) bool { return !s.Notice.Empty() })
	assert.Equal(t, "Sync daemon started with re-initialization (PID: 77)", snap.Notice.Text)

	reqs := f.daemon.Requests(http.MethodPost, apiclient.PathStart)
	require.Len(t, reqs, 1)
	var body api.StartRequest
	reqs[0].Decode(t, &body)
	assert.True(t, body.ForceInit)
}

func TestDisabledControlsSendNothing(t *testing.T) {
	f := newFixture(t, false)
	c := f.start(t, console.Options{})
	waitFor(t, c, "initial status", known)

	c.Stop()
	c.Clear()
	waitFor(t, c, "events processed", func(s console.Snapshot) bool { return s.StatusKnown })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.daemon.Count(http.MethodPost, apiclient.PathStop))
}

func TestPollFailureKeepsStatus(t *testing.T) {
	f := newFixture(t, false)
	var calls atomic.Int32
	f.daemon.Handle(http.MethodGet, apiclient.PathStatus, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			testsupport.WriteJSON(w, http.StatusOK, api.RunStatus{Running: false})
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	c := f.start(t, console.Options{PollInterval: 20 * time.Millisecond})
	snap := waitFor(t, c, "poll error", func(s console.Snapshot) bool { return s.StatusError != "" })
	assert.True(t, snap.StatusKnown)
	assert.Equal(t, "Stopped", snap.StatusLabel())
	assert.Contains(t, snap.StatusError, "Network error")
}

func TestClearEmptiesBuffer(t *testing.T) {
	f := newFixture(t, false)
	f.daemon.RespondJSON(http.MethodGet, apiclient.PathRecentLogs, http.StatusOK, api.RecentLogsResponse{
		Success: true,
		Logs:    []string{"a", "b", "c"},
	})

	c := f.start(t, console.Options{BufferLines: 2})
	snap := waitFor(t, c, "tail", func(s console.Snapshot) bool { return len(s.Lines) == 2 })
	assert.Equal(t, []string{"b", "c"}, snap.Lines)

	c.Clear()
	waitFor(t, c, "cleared", func(s console.Snapshot) bool { return len(s.Lines) == 0 })
}

func TestSlowTailStaysAheadOfLiveLines(t *testing.T) {
	f := newFixture(t, true)
	release := make(chan struct{})
	f.daemon.Handle(http.MethodGet, apiclient.PathRecentLogs, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		testsupport.WriteJSON(w, http.StatusOK, api.RecentLogsResponse{Success: true, Logs: []string{"old 1", "old 2"}})
	})
	frames := make(chan string, 1)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))

	var mu sync.Mutex
	var sunk []string
	c := f.start(t, console.Options{LineSink: func(lines []string) {
		mu.Lock()
		sunk = append(sunk, lines...)
		mu.Unlock()
	}})

	waitFor(t, c, "open stream", func(s console.Snapshot) bool { return s.Stream == logstream.StateOpen })
	frames <- testsupport.LogFrame("live 1")
	time.Sleep(100 * time.Millisecond)
	close(release)

	snap := waitFor(t, c, "tail and live line", func(s console.Snapshot) bool { return len(s.Lines) == 3 })
	assert.Equal(t, []string{"old 1", "old 2", "live 1"}, snap.Lines)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"old 1", "old 2", "live 1"}, sunk)
}

func TestFollowRestartsOpensStreamWhenDaemonStartsElsewhere(t *testing.T) {
	f := newFixture(t, false)
	frames := make(chan string, 1)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))

	c := f.start(t, console.Options{PollInterval: 20 * time.Millisecond, FollowRestarts: true})
	waitFor(t, c, "stopped daemon", known)
	assert.Equal(t, 0, f.daemon.Count(http.MethodGet, apiclient.PathLogStream))

	f.running.Store(true)
	waitFor(t, c, "stream opened after restart", func(s console.Snapshot) bool {
		return s.Status.Running && s.Stream == logstream.StateOpen
	})
	frames <- testsupport.LogFrame("sync started")
	waitFor(t, c, "streamed line", func(s console.Snapshot) bool { return len(s.Lines) == 1 })
	assert.Equal(t, 1, f.daemon.Count(http.MethodGet, apiclient.PathLogStream))
}

func TestExternalStartIgnoredWithoutFollowRestarts(t *testing.T) {
	f := newFixture(t, false)
	frames := make(chan string)
	f.daemon.Handle(http.MethodGet, apiclient.PathLogStream, testsupport.ServeEvents(frames))

	c := f.start(t, console.Options{PollInterval: 20 * time.Millisecond})
	waitFor(t, c, "stopped daemon", known)

	f.running.Store(true)
	snap := waitFor(t, c, "running status", func(s console.Snapshot) bool { return s.Status.Running })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, logstream.StateClosed, snap.Stream)
	assert.Equal(t, 0, f.daemon.Count(http.MethodGet, apiclient.PathLogStream))
}

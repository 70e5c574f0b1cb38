package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request records one call received by a fake daemon.
type Request struct {
	Method    string
	Path      string
	Query     string
	Body      []byte
	RequestID string
}

// Decode unmarshals the recorded JSON body into v.
func (r Request) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode %s %s body %q: %v", r.Method, r.Path, string(r.Body), err)
	}
}

// Daemon is a scripted stand-in for the sync daemon's HTTP API.
type Daemon struct {
	t      testing.TB
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []Request
}

// NewDaemon starts a fake daemon that is closed when the test ends.
// Unscripted routes answer 404 with a failure envelope.
func NewDaemon(t testing.TB) *Daemon {
	t.Helper()
	d := &Daemon{t: t, handlers: make(map[string]http.HandlerFunc)}
	d.server = httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(d.server.Close)
	return d
}

// URL returns the fake daemon's base URL.
func (d *Daemon) URL() string {
	return d.server.URL
}

// Close shuts the server down early, e.g. to simulate the daemon vanishing.
func (d *Daemon) Close() {
	d.server.CloseClientConnections()
	d.server.Close()
}

// Handle scripts a route.
func (d *Daemon) Handle(method, path string, handler http.HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[routeKey(method, path)] = handler
}

// RespondJSON scripts a route to answer with a fixed JSON body.
func (d *Daemon) RespondJSON(method, path string, status int, body any) {
	d.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Requests returns the calls received on a route, oldest first.
func (d *Daemon) Requests(method, path string) []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Request
	for _, req := range d.requests {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// Count returns how many calls a route received.
func (d *Daemon) Count(method, path string) int {
	return len(d.Requests(method, path))
}

func (d *Daemon) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	d.mu.Lock()
	d.requests = append(d.requests, Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Body:      body,
		RequestID: r.Header.Get("X-Request-ID"),
	})
	handler := d.handlers[routeKey(r.Method, r.URL.Path)]
	d.mu.Unlock()

	if handler == nil {
		WriteJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		})
		return
	}
	handler(w, r)
}

// WriteJSON writes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ServeEvents writes server-sent event frames from frames until the channel
// closes or the client goes away. Each frame is written verbatim and must
// include its terminating blank line.
func ServeEvents(frames <-chan string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		if flusher != nil {
			flusher.Flush()
		}
		for {
			select {
			case <-r.Context().Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				if _, err := io.WriteString(w, frame); err != nil {
					return
				}
				if flusher != nil {
					flusher.Flush()
				}
			}
		}
	}
}

// LogFrame renders an unnamed log batch event.
func LogFrame(lines ...string) string {
	payload, _ := json.Marshal(map[string]any{"logs": lines})
	return "data: " + string(payload) + "\n\n"
}

// StatusFrame renders a named status event.
func StatusFrame(running bool) string {
	payload, _ := json.Marshal(map[string]any{"running": running})
	return "event: status\ndata: " + string(payload) + "\n\n"
}

func routeKey(method, path string) string {
	return method + " " + path
}

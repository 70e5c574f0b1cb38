// Package apiclient is the HTTP client for the sync daemon's REST and
// event-stream API.
//
// Each endpoint has one method on Client. Every request carries an
// X-Request-ID header; when the context holds a request id (see
// logging.WithRequestID) it is reused, otherwise a fresh UUID is generated.
//
// Errors fall into two classes:
//
//   - transport failures and undecodable bodies wrap ErrNetwork
//     (NetworkError, IsNetwork)
//   - failures reported by the daemon in its `success: false` envelope come
//     back as *ReportedError carrying the daemon's message (IsReported)
//
// Describe renders either class the way the console and wizard display it.
// Response bodies are decoded regardless of HTTP status because the daemon
// returns failure envelopes with 4xx/5xx codes.
package apiclient

package apiclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrNetwork marks transport failures and responses that could not be
// decoded. Match with errors.Is.
var ErrNetwork = errors.New("network error")

// NetworkError wraps the underlying transport or decode failure for one
// operation.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, ErrNetwork)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNetwork) match any NetworkError.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ReportedError is a failure the daemon reported in its response envelope.
type ReportedError struct {
	Op      string
	Status  int
	Message string
}

func (e *ReportedError) Error() string {
	return e.Message
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNetwork) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsReported reports whether err carries a daemon-reported failure message.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}

// Describe renders err the way the operator sees it: reported messages
// verbatim, transport failures prefixed with "Network error:".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var reported *ReportedError
	if errors.As(err, &reported) {
		return reported.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		detail := "request failed"
		if netErr.Err != nil {
			detail = netErr.Err.Error()
		}
		return "Network error: " + detail
	}
	return err.Error()
}

func reported(op string, status int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		if status >= 400 {
			message = fmt.Sprintf("%s failed (HTTP %d)", op, status)
		} else {
			message = op + " failed"
		}
	}
	return &ReportedError{Op: op, Status: status, Message: message}
}

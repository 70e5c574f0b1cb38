package console

import (
	"dbsyncctl/internal/api"
	"dbsyncctl/internal/logstream"
)

// NoticeKind classifies the control notice line.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the inline result of the last control command. The zero value
// shows nothing.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Empty reports whether there is nothing to show.
func (n Notice) Empty() bool { return n.Text == "" }

// Snapshot is a copy of the console state for rendering.
type Snapshot struct {
	Status api.RunStatus
	// StatusKnown is false until the first poll or command result.
	StatusKnown bool
	// StatusError is the last poll failure, cleared by the next success.
	StatusError string
	Stream      logstream.State
	Lines       []string
	Notice      Notice

	Starting       bool
	Reinitializing bool
	Stopping       bool

	// StartEnabled also governs re-initialization.
	StartEnabled bool
	StopEnabled  bool
}

// StatusLabel is the headline run state.
func (s Snapshot) StatusLabel() string {
	switch {
	case !s.StatusKnown:
		return "Unknown"
	case s.Status.Running:
		return "Running"
	default:
		return "Stopped"
	}
}

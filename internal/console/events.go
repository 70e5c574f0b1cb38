package console

import (
	"dbsyncctl/internal/api"
	"dbsyncctl/internal/daemonctl"
	"dbsyncctl/internal/logstream"
)

// event is anything posted to the controller loop.
type event interface{}

type statusResult struct {
	status api.RunStatus
	err    error
}

type recentResult struct {
	lines []string
	err   error
}

type streamMessage struct {
	msg logstream.Message
}

type streamClosed struct {
	gen uint64
	err error
}

type reconnectDue struct {
	gen uint64
}

type commandRequest struct {
	endpoint  daemonctl.Endpoint
	forceInit bool
	confirm   daemonctl.Confirmer
}

type commandDone struct {
	endpoint  daemonctl.Endpoint
	forceInit bool
	notice    string
	err       error
}

type clearRequest struct{}

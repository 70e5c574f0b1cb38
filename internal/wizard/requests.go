package wizard

import (
	"context"
	"fmt"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/validation"
)

// RequestKind names a wizard network call.
type RequestKind int

const (
	RequestValidateMergin RequestKind = iota + 1
	RequestTestPostgres
	RequestListProjects
	RequestListFiles
	RequestSave
)

func (k RequestKind) String() string {
	switch k {
	case RequestValidateMergin:
		return "validate-mergin"
	case RequestTestPostgres:
		return "test-postgres"
	case RequestListProjects:
		return "list-projects"
	case RequestListFiles:
		return "list-files"
	case RequestSave:
		return "save-config"
	default:
		return fmt.Sprintf("request(%d)", int(k))
	}
}

// Request is a network call the controller wants performed. It snapshots the
// inputs and the revision of the input that governs its result.
type Request struct {
	ID       uint64
	Kind     RequestKind
	Revision uint64

	Credentials api.Credentials
	ConnInfo    string
	Project     string
	Config      api.SyncConfig
}

// Result is the outcome of performing a Request.
type Result struct {
	Request  Request
	Message  string
	Database validation.DatabaseFacts
	Projects []api.ProjectRef
	Files    []api.FileRef
	Err      error
}

// Gateway is the validation surface the wizard drives.
type Gateway interface {
	ValidateMergin(ctx context.Context, creds api.Credentials) (string, error)
	TestPostgres(ctx context.Context, connInfo string) (validation.DatabaseFacts, error)
	ListProjects(ctx context.Context, creds api.Credentials) ([]api.ProjectRef, error)
	ListFiles(ctx context.Context, creds api.Credentials, project string) ([]api.FileRef, error)
}

// Saver hands the assembled configuration to the daemon.
type Saver interface {
	SaveConfig(ctx context.Context, cfg api.SyncConfig) (api.CommandResponse, error)
}

// Deps are the collaborators Execute calls.
type Deps struct {
	Gateway Gateway
	Saver   Saver
}

// Execute performs req. It touches no controller state and is safe to call
// from any goroutine.
func Execute(ctx context.Context, deps Deps, req Request) Result {
	res := Result{Request: req}
	switch req.Kind {
	case RequestValidateMergin:
		res.Message, res.Err = deps.Gateway.ValidateMergin(ctx, req.Credentials)
	case RequestTestPostgres:
		res.Database, res.Err = deps.Gateway.TestPostgres(ctx, req.ConnInfo)
	case RequestListProjects:
		res.Projects, res.Err = deps.Gateway.ListProjects(ctx, req.Credentials)
	case RequestListFiles:
		res.Files, res.Err = deps.Gateway.ListFiles(ctx, req.Credentials, req.Project)
	case RequestSave:
		var resp api.CommandResponse
		resp, res.Err = deps.Saver.SaveConfig(ctx, req.Config)
		res.Message = resp.Message
	default:
		res.Err = fmt.Errorf("unknown request kind %d", int(req.Kind))
	}
	return res
}

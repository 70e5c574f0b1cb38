package wizard

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/apiclient"
	"dbsyncctl/internal/logging"
	"dbsyncctl/internal/syncconfig"
	"dbsyncctl/internal/validation"
)

// Options seeds a new Controller.
type Options struct {
	DefaultMerginURL string
	SleepTime        int
	Logger           *slog.Logger
}

// Controller is the six-step configuration wizard. It is not safe for
// concurrent use: one goroutine mutates it and network results come back
// through Apply.
type Controller struct {
	logger *slog.Logger

	step     Step
	finished bool
	draft    syncconfig.Draft

	merginValid   bool
	databaseValid bool
	status        map[Step]StatusMessage

	// Revisions of the inputs that govern async results.
	credRev    uint64
	dbRev      uint64
	projectRev uint64

	database *validation.DatabaseFacts
	projects []api.ProjectRef
	files    []api.FileRef
	summary  []syncconfig.SummaryItem

	nextID  uint64
	pending map[RequestKind]uint64
}

// New returns a wizard positioned at step 1.
func New(opts Options) *Controller {
	c := &Controller{
		logger:  logging.NewComponentLogger(opts.Logger, "wizard"),
		step:    FirstStep,
		status:  make(map[Step]StatusMessage),
		pending: make(map[RequestKind]uint64),
	}
	c.draft.Credentials.URL = opts.DefaultMerginURL
	c.draft.InitFrom = api.InitFromGPKG
	c.draft.SleepTime = opts.SleepTime
	return c
}

// Step returns the current step.
func (c *Controller) Step() Step { return c.step }

// Finished reports whether the operator pressed Next on the last step.
func (c *Controller) Finished() bool { return c.finished }

// Draft returns the collected fields.
func (c *Controller) Draft() syncconfig.Draft { return c.draft }

// Status returns the inline message for step s.
func (c *Controller) Status(s Step) StatusMessage { return c.status[s] }

// Validated reports whether the checkpoint of s has passed. Steps 1 and 2
// require a successful test; the others are evaluated from their fields.
func (c *Controller) Validated(s Step) bool {
	_, ok := c.check(s)
	return ok
}

// Database returns the facts from the last successful connection test.
func (c *Controller) Database() (validation.DatabaseFacts, bool) {
	if c.database == nil {
		return validation.DatabaseFacts{}, false
	}
	return *c.database, true
}

// Projects returns the last fetched project list.
func (c *Controller) Projects() []api.ProjectRef { return c.projects }

// Files returns the last fetched file list.
func (c *Controller) Files() []api.FileRef { return c.files }

// Summary returns the review lines computed on entering the last step.
func (c *Controller) Summary() []syncconfig.SummaryItem { return c.summary }

// Loading reports whether a request of kind is outstanding.
func (c *Controller) Loading(kind RequestKind) bool {
	_, ok := c.pending[kind]
	return ok
}

// Next advances one step when the current step's checkpoint holds. On
// failure the step's status shows why and nothing moves. On the last step
// Next finishes the wizard. The returned requests must be executed and
// their results applied.
func (c *Controller) Next() []Request {
	if c.finished {
		return nil
	}
	if c.step == LastStep {
		c.finished = true
		c.logger.Debug("wizard finished")
		return nil
	}
	if msg, ok := c.check(c.step); !ok {
		c.status[c.step] = errorStatus(msg)
		return nil
	}

	var reqs []Request
	switch c.step {
	case StepProject:
		if req, ok := c.filesRequest(); ok {
			reqs = append(reqs, req)
		}
	case StepFile:
		if c.draft.Modified == "" {
			c.draft.Modified, c.draft.Base = syncconfig.DeriveSchemaNames(c.draft.Project)
		}
	}
	return append(reqs, c.enter(c.step+1)...)
}

// Back moves one step back. It is a no-op on the first step.
func (c *Controller) Back() []Request {
	if c.step == FirstStep || c.finished {
		return nil
	}
	return c.enter(c.step - 1)
}

func (c *Controller) enter(s Step) []Request {
	c.step = s
	c.logger.Debug("wizard step entered", logging.FieldStep, int(s))
	switch s {
	case StepProject:
		if c.merginValid {
			if req, ok := c.projectsRequest(); ok {
				return []Request{req}
			}
		}
	case StepReview:
		c.summary = syncconfig.Summary(c.draft)
	}
	return nil
}

func (c *Controller) check(s Step) (string, bool) {
	switch s {
	case StepMergin:
		return MsgTestMerginFirst, c.merginValid
	case StepDatabase:
		return MsgTestPostgresFirst, c.databaseValid
	case StepProject:
		return MsgSelectProject, c.draft.Project != "" && !c.Loading(RequestListProjects)
	case StepFile:
		return MsgSelectFile, c.draft.SyncFile != "" || c.draft.InitFrom == api.InitFromDatabase
	case StepSchemas:
		return MsgEnterSchemas, strings.TrimSpace(c.draft.Modified) != "" && strings.TrimSpace(c.draft.Base) != ""
	default:
		return "", true
	}
}

// SetCredentials replaces the Mergin credentials. Any change invalidates
// step 1 and drops the project and file lists fetched with the old ones.
func (c *Controller) SetCredentials(creds api.Credentials) {
	if creds == c.draft.Credentials {
		return
	}
	c.draft.Credentials = creds
	c.credRev++
	c.projectRev++
	c.merginValid = false
	delete(c.status, StepMergin)
	c.projects = nil
	c.files = nil
	delete(c.pending, RequestValidateMergin)
	delete(c.pending, RequestListProjects)
	delete(c.pending, RequestListFiles)
}

// SetConnInfo replaces the PostgreSQL connection string. Any change
// invalidates step 2 and clears the connection facts.
func (c *Controller) SetConnInfo(connInfo string) {
	if connInfo == c.draft.ConnInfo {
		return
	}
	c.draft.ConnInfo = connInfo
	c.dbRev++
	c.databaseValid = false
	c.database = nil
	delete(c.status, StepDatabase)
	delete(c.pending, RequestTestPostgres)
}

// SelectProject chooses the Mergin project. A change clears the file
// selection and list, then requests the new project's files.
func (c *Controller) SelectProject(project string) []Request {
	if project == c.draft.Project {
		return nil
	}
	c.draft.Project = project
	c.projectRev++
	c.draft.SyncFile = ""
	c.files = nil
	delete(c.status, StepProject)
	delete(c.status, StepFile)
	delete(c.pending, RequestListFiles)
	if req, ok := c.filesRequest(); ok {
		return []Request{req}
	}
	return nil
}

// SelectFile chooses the GeoPackage to sync.
func (c *Controller) SelectFile(path string) {
	c.draft.SyncFile = path
	delete(c.status, StepFile)
}

// SetInitFrom chooses which side initializes the sync.
func (c *Controller) SetInitFrom(from api.InitFrom) {
	if !from.Valid() {
		return
	}
	c.draft.InitFrom = from
	delete(c.status, StepFile)
	if c.step == StepReview {
		c.summary = syncconfig.Summary(c.draft)
	}
}

// SetSchemas sets the modified and base schema names.
func (c *Controller) SetSchemas(modified, base string) {
	c.draft.Modified = modified
	c.draft.Base = base
	delete(c.status, StepSchemas)
}

// Prefill copies the present fields of a stored daemon configuration into
// the draft. Absent fields are left alone and no checkpoint is granted.
func (c *Controller) Prefill(stored api.StoredConfig) {
	creds := c.draft.Credentials
	if stored.Mergin != nil {
		if stored.Mergin.URL != "" {
			creds.URL = stored.Mergin.URL
		}
		if stored.Mergin.Username != "" {
			creds.Username = stored.Mergin.Username
		}
		if stored.Mergin.Password != "" {
			creds.Password = stored.Mergin.Password
		}
	}
	c.SetCredentials(creds)

	if len(stored.Connections) > 0 {
		conn := stored.Connections[0]
		if conn.ConnInfo != "" {
			c.SetConnInfo(conn.ConnInfo)
		}
		if conn.Modified != "" {
			c.draft.Modified = conn.Modified
		}
		if conn.Base != "" {
			c.draft.Base = conn.Base
		}
	}
	if stored.InitFrom.Valid() {
		c.draft.InitFrom = stored.InitFrom
	}
	if stored.Daemon != nil && stored.Daemon.SleepTime > 0 {
		c.draft.SleepTime = stored.Daemon.SleepTime
	}
}

// TestMergin builds a credential validation request. It reports false while
// one is already outstanding.
func (c *Controller) TestMergin() (Request, bool) {
	if c.Loading(RequestValidateMergin) {
		return Request{}, false
	}
	delete(c.status, StepMergin)
	return c.issue(Request{Kind: RequestValidateMergin, Revision: c.credRev, Credentials: c.draft.Credentials}), true
}

// TestDatabase builds a connectivity test request. It reports false while
// one is already outstanding.
func (c *Controller) TestDatabase() (Request, bool) {
	if c.Loading(RequestTestPostgres) {
		return Request{}, false
	}
	delete(c.status, StepDatabase)
	c.database = nil
	return c.issue(Request{Kind: RequestTestPostgres, Revision: c.dbRev, ConnInfo: c.draft.ConnInfo}), true
}

// RefreshProjects builds a project listing request.
func (c *Controller) RefreshProjects() (Request, bool) {
	return c.projectsRequest()
}

// SaveRequest assembles the configuration and builds the save request.
func (c *Controller) SaveRequest() (Request, bool) {
	if c.Loading(RequestSave) {
		return Request{}, false
	}
	delete(c.status, StepReview)
	return c.issue(Request{Kind: RequestSave, Config: syncconfig.Assemble(c.draft)}), true
}

func (c *Controller) projectsRequest() (Request, bool) {
	if c.Loading(RequestListProjects) {
		return Request{}, false
	}
	delete(c.status, StepProject)
	return c.issue(Request{Kind: RequestListProjects, Revision: c.credRev, Credentials: c.draft.Credentials}), true
}

func (c *Controller) filesRequest() (Request, bool) {
	if c.draft.Project == "" {
		c.files = nil
		return Request{}, false
	}
	delete(c.status, StepFile)
	return c.issue(Request{
		Kind:        RequestListFiles,
		Revision:    c.projectRev,
		Credentials: c.draft.Credentials,
		Project:     c.draft.Project,
	}), true
}

func (c *Controller) issue(req Request) Request {
	c.nextID++
	req.ID = c.nextID
	c.pending[req.Kind] = req.ID
	return req
}

// Apply folds a request outcome into the wizard. Results whose governing
// input changed after the request was issued are dropped; Apply reports
// whether res was applied.
func (c *Controller) Apply(res Result) bool {
	req := res.Request
	if c.pending[req.Kind] == req.ID {
		delete(c.pending, req.Kind)
	}
	if !c.current(req) {
		c.logger.Debug("dropping stale result", "request", req.Kind.String(), "id", req.ID)
		return false
	}
	switch req.Kind {
	case RequestValidateMergin:
		c.applyMergin(res)
	case RequestTestPostgres:
		c.applyPostgres(res)
	case RequestListProjects:
		c.applyProjects(res)
	case RequestListFiles:
		c.applyFiles(res)
	case RequestSave:
		c.applySave(res)
	default:
		return false
	}
	return true
}

// Run executes reqs in order and applies each result.
func (c *Controller) Run(ctx context.Context, deps Deps, reqs ...Request) {
	for _, req := range reqs {
		c.Apply(Execute(ctx, deps, req))
	}
}

func (c *Controller) current(req Request) bool {
	switch req.Kind {
	case RequestValidateMergin, RequestListProjects:
		return req.Revision == c.credRev
	case RequestTestPostgres:
		return req.Revision == c.dbRev
	case RequestListFiles:
		return req.Revision == c.projectRev
	default:
		return true
	}
}

func (c *Controller) applyMergin(res Result) {
	if res.Err != nil {
		c.merginValid = false
		c.status[StepMergin] = errorStatus(apiclient.Describe(res.Err))
		return
	}
	c.merginValid = true
	msg := strings.TrimSpace(res.Message)
	if msg == "" {
		msg = MsgCredentialsOK
	}
	c.status[StepMergin] = successStatus(msg)
}

func (c *Controller) applyPostgres(res Result) {
	if res.Err != nil {
		c.databaseValid = false
		c.database = nil
		c.status[StepDatabase] = errorStatus(apiclient.Describe(res.Err))
		return
	}
	facts := res.Database
	c.databaseValid = true
	c.database = &facts
	c.status[StepDatabase] = successStatus("Connected to database: " + facts.Database)
	if !facts.HasPostGIS {
		c.status[StepDatabase] = infoStatus(MsgNoPostGIS)
	}
}

func (c *Controller) applyProjects(res Result) {
	if res.Err != nil {
		c.projects = nil
		c.status[StepProject] = errorStatus(apiclient.Describe(res.Err))
		return
	}
	c.projects = res.Projects
	if len(c.projects) == 0 {
		c.status[StepProject] = infoStatus(MsgNoProjects)
	}
	if c.draft.Project != "" && !slices.ContainsFunc(c.projects, func(p api.ProjectRef) bool {
		return p.FullName == c.draft.Project
	}) {
		c.draft.Project = ""
		c.draft.SyncFile = ""
		c.files = nil
		c.projectRev++
	}
}

func (c *Controller) applyFiles(res Result) {
	if res.Err != nil {
		c.files = nil
		c.status[StepFile] = errorStatus(apiclient.Describe(res.Err))
		return
	}
	c.files = res.Files
	if len(c.files) == 0 {
		c.status[StepFile] = infoStatus(MsgNoFiles)
	}
	if c.draft.SyncFile != "" && !slices.ContainsFunc(c.files, func(f api.FileRef) bool {
		return f.Path == c.draft.SyncFile
	}) {
		c.draft.SyncFile = ""
	}
}

func (c *Controller) applySave(res Result) {
	if res.Err != nil {
		c.status[StepReview] = errorStatus(apiclient.Describe(res.Err))
		return
	}
	c.status[StepReview] = successStatus(MsgSaved)
	c.logger.Info("configuration saved", "project", c.draft.Project)
}

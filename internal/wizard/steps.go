package wizard

import "fmt"

// Step is a 1-based wizard position.
type Step int

const (
	StepMergin Step = iota + 1
	StepDatabase
	StepProject
	StepFile
	StepSchemas
	StepReview

	FirstStep = StepMergin
	LastStep  = StepReview
)

// Title is the heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepMergin:
		return "Mergin Maps credentials"
	case StepDatabase:
		return "PostgreSQL connection"
	case StepProject:
		return "Project"
	case StepFile:
		return "GeoPackage"
	case StepSchemas:
		return "Schemas"
	case StepReview:
		return "Review & save"
	default:
		return fmt.Sprintf("Step %d", int(s))
	}
}

// Valid reports whether s is within the wizard's range.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// StatusKind classifies a step status message.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// StatusMessage is the inline feedback shown on a step. The zero value means
// no message.
type StatusMessage struct {
	Kind StatusKind
	Text string
}

// Empty reports whether there is nothing to show.
func (m StatusMessage) Empty() bool { return m.Text == "" }

func infoStatus(text string) StatusMessage    { return StatusMessage{Kind: StatusInfo, Text: text} }
func successStatus(text string) StatusMessage { return StatusMessage{Kind: StatusSuccess, Text: text} }
func errorStatus(text string) StatusMessage   { return StatusMessage{Kind: StatusError, Text: text} }

// Operator-facing messages.
const (
	MsgTestMerginFirst   = "Please test your Mergin credentials first"
	MsgTestPostgresFirst = "Please test your PostgreSQL connection first"
	MsgSelectProject     = "Please select a project"
	MsgSelectFile        = "Please select a GeoPackage file"
	MsgEnterSchemas      = "Please enter both schema names"
	MsgNoProjects        = "No projects found. Create a project in Mergin Maps first."
	MsgNoFiles           = "No GeoPackage files found in this project. Upload a .gpkg file first or choose \"From Database\" initialization."
	MsgNoPostGIS         = "Warning: PostGIS extension is not installed. Some features may not work."
	MsgSaved             = "Configuration saved successfully! You can now go to the Dashboard to start syncing."
	MsgCredentialsOK     = "Credentials verified"
)

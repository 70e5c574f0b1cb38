package tui_test

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/tui"
	"dbsyncctl/internal/validation"
	"dbsyncctl/internal/wizard"
)

type stubGateway struct {
	files []api.FileRef
}

func (stubGateway) ValidateMergin(context.Context, api.Credentials) (string, error) {
	return "Credentials verified", nil
}

func (stubGateway) TestPostgres(context.Context, string) (validation.DatabaseFacts, error) {
	return validation.DatabaseFacts{
		PostgresInfo:  api.PostgresInfo{Database: "gis", HasPostGIS: true, PostGISVersion: "3.4"},
		ServerVersion: "PostgreSQL 16.2",
	}, nil
}

func (stubGateway) ListProjects(context.Context, api.Credentials) ([]api.ProjectRef, error) {
	return []api.ProjectRef{{FullName: "Org/My Survey", Version: "v12"}}, nil
}

func (g stubGateway) ListFiles(context.Context, api.Credentials, string) ([]api.FileRef, error) {
	return g.files, nil
}

type stubLoader struct {
	cfg api.StoredConfig
}

func (l stubLoader) LoadConfig(context.Context) (api.StoredConfig, error) {
	return l.cfg, nil
}

func newWizardModel(loader tui.ConfigLoader) tui.WizardModel {
	ctrl := wizard.New(wizard.Options{DefaultMerginURL: "https://app.merginmaps.com", SleepTime: 10})
	deps := wizard.Deps{Gateway: stubGateway{files: []api.FileRef{{Path: "survey.gpkg", Size: 2048}}}}
	return tui.NewWizardModel(context.Background(), ctrl, deps, loader)
}

// drive sends msg and then runs every returned command to completion,
// feeding results back in, the way the bubbletea runtime would.
func drive(t *testing.T, m tui.WizardModel, msg tea.Msg) (tui.WizardModel, []tea.Msg) {
	t.Helper()
	var unhandled []tea.Msg
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		updated, cmd := m.Update(next)
		m = updated.(tui.WizardModel)
		for _, out := range runCmd(cmd) {
			switch out.(type) {
			case tea.QuitMsg:
				unhandled = append(unhandled, out)
			default:
				if isResult(out) {
					queue = append(queue, out)
				}
			}
		}
	}
	return m, unhandled
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// isResult keeps request outcomes and drops cursor blinks and spinner
// ticks, which would otherwise reschedule forever.
func isResult(msg tea.Msg) bool {
	switch fmt.Sprintf("%T", msg) {
	case "tui.wizardResultMsg", "tui.prefillMsg":
		return true
	default:
		return false
	}
}

// typeText enters s into the focused field. The cursor blink command it
// returns is dropped.
func typeText(t *testing.T, m tui.WizardModel, s string) tui.WizardModel {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(tui.WizardModel)
}

func special(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func TestWizardWalkthrough(t *testing.T) {
	m := newWizardModel(nil)
	ctrl := m.Controller()

	// Focus starts on the URL; move to username and type.
	m, _ = drive(t, m, special(tea.KeyTab))
	m = typeText(t, m, "alice")
	m, _ = drive(t, m, special(tea.KeyTab))
	m = typeText(t, m, "pw")
	assert.Equal(t, "alice", ctrl.Draft().Credentials.Username)
	assert.Equal(t, "pw", ctrl.Draft().Credentials.Password)

	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepMergin, ctrl.Step())
	assert.Contains(t, m.View(), wizard.MsgTestMerginFirst)

	m, _ = drive(t, m, special(tea.KeyCtrlT))
	assert.True(t, ctrl.Validated(wizard.StepMergin))
	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepDatabase, ctrl.Step())

	m = typeText(t, m, "host=db")
	m, _ = drive(t, m, special(tea.KeyCtrlT))
	assert.Contains(t, m.View(), "PostgreSQL 16.2")
	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepProject, ctrl.Step())
	assert.Contains(t, m.View(), "Org/My Survey (v12)")

	m, _ = drive(t, m, special(tea.KeySpace))
	assert.Equal(t, "Org/My Survey", ctrl.Draft().Project)
	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepFile, ctrl.Step())
	assert.Contains(t, m.View(), "survey.gpkg (2.0 kB)")

	m, _ = drive(t, m, special(tea.KeySpace))
	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepSchemas, ctrl.Step())
	assert.Contains(t, m.View(), "my_survey_data_base")

	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepReview, ctrl.Step())
	assert.Contains(t, m.View(), "Org/My Survey")

	_, quit := drive(t, m, special(tea.KeyEnter))
	assert.True(t, ctrl.Finished())
	require.Len(t, quit, 1)
}

func TestWizardBackFromFirstStepStays(t *testing.T) {
	m := newWizardModel(nil)
	m, _ = drive(t, m, special(tea.KeyEsc))
	assert.Equal(t, wizard.StepMergin, m.Controller().Step())
}

func TestWizardEmptyFilesShowInfo(t *testing.T) {
	ctrl := wizard.New(wizard.Options{DefaultMerginURL: "https://app.merginmaps.com"})
	m := tui.NewWizardModel(context.Background(), ctrl, wizard.Deps{Gateway: stubGateway{}}, nil)

	m, _ = drive(t, m, special(tea.KeyCtrlT))
	m, _ = drive(t, m, special(tea.KeyEnter))
	m = typeText(t, m, "host=db")
	m, _ = drive(t, m, special(tea.KeyCtrlT))
	m, _ = drive(t, m, special(tea.KeyEnter))
	m, _ = drive(t, m, special(tea.KeySpace))
	m, _ = drive(t, m, special(tea.KeyEnter))
	require.Equal(t, wizard.StepFile, ctrl.Step())

	status := ctrl.Status(wizard.StepFile)
	assert.Equal(t, wizard.StatusInfo, status.Kind)
	assert.Contains(t, m.View(), wizard.MsgNoFiles)

	m = typeText(t, m, "f")
	assert.Equal(t, api.InitFromDatabase, ctrl.Draft().InitFrom)
	m, _ = drive(t, m, special(tea.KeyEnter))
	assert.Equal(t, wizard.StepSchemas, ctrl.Step())
}

func TestWizardPrefillFillsInputs(t *testing.T) {
	loader := stubLoader{cfg: api.StoredConfig{
		Mergin:      &api.Credentials{URL: "https://mergin.example.com", Username: "bob"},
		Connections: []api.StoredConnection{{ConnInfo: "host=db dbname=gis"}},
	}}
	m := newWizardModel(loader)

	var prefill tea.Msg
	for _, out := range runCmd(m.Init()) {
		if isResult(out) {
			prefill = out
		}
	}
	require.NotNil(t, prefill)
	m, _ = drive(t, m, prefill)

	d := m.Controller().Draft()
	assert.Equal(t, "https://mergin.example.com", d.Credentials.URL)
	assert.Equal(t, "bob", d.Credentials.Username)
	assert.Equal(t, "host=db dbname=gis", d.ConnInfo)
	assert.Contains(t, m.View(), "https://mergin.example.com")
	assert.False(t, m.Controller().Validated(wizard.StepMergin))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Org/Trees (v3)", tui.ProjectLabel(api.ProjectRef{FullName: "Org/Trees", Version: "v3"}))
	assert.Equal(t, "Org/Trees", tui.ProjectLabel(api.ProjectRef{FullName: "Org/Trees"}))
	assert.Equal(t, "data/trees.gpkg (1.5 MB)", tui.FileLabel(api.FileRef{Path: "data/trees.gpkg", Size: 1_500_000}))
}

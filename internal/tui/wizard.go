package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/syncconfig"
	"dbsyncctl/internal/wizard"
)

// ConfigLoader returns the daemon's stored configuration for prefilling.
type ConfigLoader interface {
	LoadConfig(ctx context.Context) (api.StoredConfig, error)
}

type wizardResultMsg struct {
	res wizard.Result
}

type prefillMsg struct {
	cfg api.StoredConfig
	err error
}

// Input slots per step.
const (
	inputURL = iota
	inputUsername
	inputPassword
)

const (
	inputModified = iota
	inputBase
)

// WizardModel renders the configuration wizard.
type WizardModel struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	deps   wizard.Deps
	loader ConfigLoader

	keys    wizardKeys
	spinner spinner.Model
	inputs  map[wizard.Step][]textinput.Model
	focus   int
	cursor  map[wizard.Step]int

	prefillErr error
	width      int
}

// NewWizardModel returns a wizard model driving ctrl. loader may be nil to
// skip prefilling from the daemon.
func NewWizardModel(ctx context.Context, ctrl *wizard.Controller, deps wizard.Deps, loader ConfigLoader) WizardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := WizardModel{
		ctx:     ctx,
		ctrl:    ctrl,
		deps:    deps,
		loader:  loader,
		keys:    newWizardKeys(),
		spinner: s,
		cursor:  make(map[wizard.Step]int),
		inputs: map[wizard.Step][]textinput.Model{
			wizard.StepMergin: {
				newInput("Mergin URL", false),
				newInput("Username", false),
				newInput("Password", true),
			},
			wizard.StepDatabase: {
				newInput("host=localhost port=5432 dbname=gis user=postgres password=...", false),
			},
			wizard.StepSchemas: {
				newInput("Modified schema", false),
				newInput("Base schema", false),
			},
		},
	}
	m.syncInputs()
	m.focusInput(0)
	return m
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 512
	ti.Width = 60
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

// Controller exposes the wizard state behind the model.
func (m WizardModel) Controller() *wizard.Controller { return m.ctrl }

// Init implements tea.Model.
func (m WizardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.loader != nil {
		loader, ctx := m.loader, m.ctx
		cmds = append(cmds, func() tea.Msg {
			cfg, err := loader.LoadConfig(ctx)
			return prefillMsg{cfg: cfg, err: err}
		})
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case prefillMsg:
		if msg.err != nil {
			m.prefillErr = msg.err
			return m, nil
		}
		m.ctrl.Prefill(msg.cfg)
		m.syncInputs()
		return m, nil
	case wizardResultMsg:
		m.ctrl.Apply(msg.res)
		m.clampCursors()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	step := m.ctrl.Step()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		reqs := m.ctrl.Next()
		if m.ctrl.Finished() {
			return m, tea.Quit
		}
		m.enteredStep()
		return m, m.execute(reqs)
	case key.Matches(msg, m.keys.Back):
		reqs := m.ctrl.Back()
		m.enteredStep()
		return m, m.execute(reqs)
	case key.Matches(msg, m.keys.Test):
		return m, m.executeOne(m.testRequest(step))
	case key.Matches(msg, m.keys.Refresh) && step == wizard.StepProject:
		return m, m.executeOne(m.ctrl.RefreshProjects())
	case key.Matches(msg, m.keys.Save) && step == wizard.StepReview:
		return m, m.executeOne(m.ctrl.SaveRequest())
	case key.Matches(msg, m.keys.Focus):
		m.focusInput(m.focus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Unfocus):
		m.focusInput(m.focus - 1)
		return m, nil
	}

	if step == wizard.StepProject || step == wizard.StepFile {
		return m.handleListKey(step, msg)
	}
	return m.updateInput(step, msg)
}

func (m WizardModel) testRequest(step wizard.Step) (wizard.Request, bool) {
	switch step {
	case wizard.StepMergin:
		return m.ctrl.TestMergin()
	case wizard.StepDatabase:
		return m.ctrl.TestDatabase()
	default:
		return wizard.Request{}, false
	}
}

func (m WizardModel) handleListKey(step wizard.Step, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := m.listLen(step)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor[step] > 0 {
			m.cursor[step]--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor[step] < n-1 {
			m.cursor[step]++
		}
	case key.Matches(msg, m.keys.Choose):
		if n == 0 {
			return m, nil
		}
		if step == wizard.StepProject {
			return m, m.execute(m.ctrl.SelectProject(m.ctrl.Projects()[m.cursor[step]].FullName))
		}
		m.ctrl.SelectFile(m.ctrl.Files()[m.cursor[step]].Path)
	case key.Matches(msg, m.keys.InitFrom) && step == wizard.StepFile:
		next := api.InitFromDatabase
		if m.ctrl.Draft().InitFrom == api.InitFromDatabase {
			next = api.InitFromGPKG
		}
		m.ctrl.SetInitFrom(next)
	}
	return m, nil
}

func (m WizardModel) updateInput(step wizard.Step, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inputs := m.inputs[step]
	if len(inputs) == 0 || m.focus >= len(inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	inputs[m.focus], cmd = inputs[m.focus].Update(msg)
	m.pushInputs(step)
	return m, cmd
}

// pushInputs copies the step's field values into the controller.
func (m WizardModel) pushInputs(step wizard.Step) {
	inputs := m.inputs[step]
	switch step {
	case wizard.StepMergin:
		m.ctrl.SetCredentials(api.Credentials{
			URL:      strings.TrimSpace(inputs[inputURL].Value()),
			Username: strings.TrimSpace(inputs[inputUsername].Value()),
			Password: inputs[inputPassword].Value(),
		})
	case wizard.StepDatabase:
		m.ctrl.SetConnInfo(strings.TrimSpace(inputs[0].Value()))
	case wizard.StepSchemas:
		m.ctrl.SetSchemas(strings.TrimSpace(inputs[inputModified].Value()), strings.TrimSpace(inputs[inputBase].Value()))
	}
}

// syncInputs copies the draft into every field.
func (m WizardModel) syncInputs() {
	d := m.ctrl.Draft()
	set := func(step wizard.Step, idx int, value string) {
		if m.inputs[step][idx].Value() != value {
			m.inputs[step][idx].SetValue(value)
		}
	}
	set(wizard.StepMergin, inputURL, d.Credentials.URL)
	set(wizard.StepMergin, inputUsername, d.Credentials.Username)
	set(wizard.StepMergin, inputPassword, d.Credentials.Password)
	set(wizard.StepDatabase, 0, d.ConnInfo)
	set(wizard.StepSchemas, inputModified, d.Modified)
	set(wizard.StepSchemas, inputBase, d.Base)
}

func (m *WizardModel) enteredStep() {
	m.syncInputs()
	m.focusInput(0)
	m.clampCursors()
}

func (m *WizardModel) focusInput(idx int) {
	inputs := m.inputs[m.ctrl.Step()]
	if len(inputs) == 0 {
		m.focus = 0
		return
	}
	idx = (idx%len(inputs) + len(inputs)) % len(inputs)
	m.focus = idx
	for i := range inputs {
		if i == idx {
			inputs[i].Focus()
		} else {
			inputs[i].Blur()
		}
	}
	for step, other := range m.inputs {
		if step == m.ctrl.Step() {
			continue
		}
		for i := range other {
			other[i].Blur()
		}
	}
}

func (m WizardModel) listLen(step wizard.Step) int {
	if step == wizard.StepProject {
		return len(m.ctrl.Projects())
	}
	return len(m.ctrl.Files())
}

func (m WizardModel) clampCursors() {
	d := m.ctrl.Draft()
	for _, step := range []wizard.Step{wizard.StepProject, wizard.StepFile} {
		n := m.listLen(step)
		selected := -1
		if step == wizard.StepProject {
			for i, p := range m.ctrl.Projects() {
				if p.FullName == d.Project {
					selected = i
				}
			}
		} else {
			for i, f := range m.ctrl.Files() {
				if f.Path == d.SyncFile {
					selected = i
				}
			}
		}
		switch {
		case selected >= 0:
			m.cursor[step] = selected
		case m.cursor[step] >= n:
			m.cursor[step] = max(n-1, 0)
		}
	}
}

func (m WizardModel) executeOne(req wizard.Request, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	return m.execute([]wizard.Request{req})
}

func (m WizardModel) execute(reqs []wizard.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	ctx, deps := m.ctx, m.deps
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		req := req
		cmds = append(cmds, func() tea.Msg {
			return wizardResultMsg{res: wizard.Execute(ctx, deps, req)}
		})
	}
	return tea.Batch(cmds...)
}

// View implements tea.Model.
func (m WizardModel) View() string {
	step := m.ctrl.Step()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sync configuration"))
	b.WriteString("  ")
	b.WriteString(m.renderProgress())
	b.WriteString("\n\n")
	b.WriteString(selectedStyle.Render(fmt.Sprintf("Step %d of %d: %s", step, wizard.LastStep, step.Title())))
	b.WriteString("\n\n")

	switch step {
	case wizard.StepMergin:
		b.WriteString(m.renderInputs(step, []string{"Server URL", "Username", "Password"}))
	case wizard.StepDatabase:
		b.WriteString(m.renderInputs(step, []string{"Connection"}))
		b.WriteString(m.renderDatabase())
	case wizard.StepProject:
		b.WriteString(m.renderProjects())
	case wizard.StepFile:
		b.WriteString(m.renderFiles())
	case wizard.StepSchemas:
		b.WriteString(m.renderInputs(step, []string{"Modified schema", "Base schema"}))
	case wizard.StepReview:
		b.WriteString(m.renderReview())
	}

	if status := m.ctrl.Status(step); !status.Empty() {
		b.WriteString("\n")
		b.WriteString(renderStatus(status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(renderHelp(m.helpFor(step)))
	return b.String()
}

func (m WizardModel) renderProgress() string {
	parts := make([]string, 0, int(wizard.LastStep))
	for s := wizard.FirstStep; s <= wizard.LastStep; s++ {
		switch {
		case s == m.ctrl.Step():
			parts = append(parts, selectedStyle.Render("●"))
		case m.ctrl.Validated(s) && s < m.ctrl.Step():
			parts = append(parts, successStyle.Render("●"))
		default:
			parts = append(parts, subtleStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ")
}

func (m WizardModel) renderInputs(step wizard.Step, labels []string) string {
	var b strings.Builder
	for i, input := range m.inputs[step] {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	if m.busy(step) {
		b.WriteString(m.spinner.View() + " Testing...\n")
	}
	return b.String()
}

func (m WizardModel) busy(step wizard.Step) bool {
	switch step {
	case wizard.StepMergin:
		return m.ctrl.Loading(wizard.RequestValidateMergin)
	case wizard.StepDatabase:
		return m.ctrl.Loading(wizard.RequestTestPostgres)
	default:
		return false
	}
}

func (m WizardModel) renderDatabase() string {
	facts, ok := m.ctrl.Database()
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Database") + facts.Database + "\n")
	b.WriteString(labelStyle.Render("Server") + facts.ServerVersion + "\n")
	b.WriteString(labelStyle.Render("PostGIS") + facts.PostGISLabel() + "\n")
	return b.String()
}

func (m WizardModel) renderProjects() string {
	if m.ctrl.Loading(wizard.RequestListProjects) {
		return m.spinner.View() + " Loading projects...\n"
	}
	projects := m.ctrl.Projects()
	labels := make([]string, len(projects))
	selected := -1
	for i, p := range projects {
		labels[i] = ProjectLabel(p)
		if p.FullName == m.ctrl.Draft().Project {
			selected = i
		}
	}
	return m.renderList(labels, m.cursor[wizard.StepProject], selected)
}

func (m WizardModel) renderFiles() string {
	var b strings.Builder
	if m.ctrl.Loading(wizard.RequestListFiles) {
		b.WriteString(m.spinner.View() + " Loading files...\n")
	} else {
		files := m.ctrl.Files()
		labels := make([]string, len(files))
		selected := -1
		for i, f := range files {
			labels[i] = FileLabel(f)
			if f.Path == m.ctrl.Draft().SyncFile {
				selected = i
			}
		}
		b.WriteString(m.renderList(labels, m.cursor[wizard.StepFile], selected))
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Initialize from"))
	b.WriteString(syncconfig.InitFromLabel(m.ctrl.Draft().InitFrom))
	b.WriteString("\n")
	return b.String()
}

func (m WizardModel) renderList(labels []string, cursor, selected int) string {
	var b strings.Builder
	for i, label := range labels {
		prefix := "  "
		if i == cursor {
			prefix = "> "
		}
		mark := "○ "
		if i == selected {
			mark = "● "
			label = selectedStyle.Render(label)
		}
		b.WriteString(prefix + mark + label + "\n")
	}
	return b.String()
}

func (m WizardModel) renderReview() string {
	var b strings.Builder
	for _, item := range m.ctrl.Summary() {
		b.WriteString(labelStyle.Render(item.Label))
		b.WriteString(item.Value)
		b.WriteString("\n")
	}
	if m.ctrl.Loading(wizard.RequestSave) {
		b.WriteString(m.spinner.View() + " Saving...\n")
	}
	return b.String()
}

func (m WizardModel) helpFor(step wizard.Step) []key.Binding {
	bindings := []key.Binding{m.keys.Next}
	if m.ctrl.Step() > wizard.FirstStep {
		bindings = append(bindings, m.keys.Back)
	}
	switch step {
	case wizard.StepMergin, wizard.StepDatabase:
		bindings = append(bindings, m.keys.Test, m.keys.Focus)
	case wizard.StepProject:
		bindings = append(bindings, m.keys.Choose, m.keys.Refresh)
	case wizard.StepFile:
		bindings = append(bindings, m.keys.Choose, m.keys.InitFrom)
	case wizard.StepSchemas:
		bindings = append(bindings, m.keys.Focus)
	case wizard.StepReview:
		bindings = append(bindings, m.keys.Save)
	}
	return append(bindings, m.keys.Quit)
}

func renderStatus(status wizard.StatusMessage) string {
	switch status.Kind {
	case wizard.StatusSuccess:
		return successStyle.Render("✓ " + status.Text)
	case wizard.StatusError:
		return errorStyle.Render("✗ " + status.Text)
	default:
		return infoStyle.Render(status.Text)
	}
}

// ProjectLabel renders a project option as "full_name (version)".
func ProjectLabel(p api.ProjectRef) string {
	if p.Version == "" {
		return p.FullName
	}
	return fmt.Sprintf("%s (%s)", p.FullName, p.Version)
}

// FileLabel renders a file option as "path (size)".
func FileLabel(f api.FileRef) string {
	if f.Size < 0 {
		return f.Path
	}
	return fmt.Sprintf("%s (%s)", f.Path, humanize.Bytes(uint64(f.Size)))
}

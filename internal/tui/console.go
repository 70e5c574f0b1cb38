package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dbsyncctl/internal/console"
	"dbsyncctl/internal/daemonctl"
)

// ConsoleSource is the console controller surface the model drives.
type ConsoleSource interface {
	Updates() <-chan console.Snapshot
	Start()
	Stop()
	Reinit(confirm daemonctl.Confirmer)
	Clear()
}

type snapshotMsg console.Snapshot

// updatesClosedMsg signals that the controller stopped publishing.
type updatesClosedMsg struct{}

// ConsoleModel renders the live operations console.
type ConsoleModel struct {
	source     ConsoleSource
	keys       consoleKeys
	spinner    spinner.Model
	logs       viewport.Model
	snap       console.Snapshot
	confirming bool
	autoScroll bool
	width      int
	height     int
	title      string
}

// NewConsoleModel returns a console model fed by source. title names the
// daemon endpoint in the header.
func NewConsoleModel(source ConsoleSource, title string) ConsoleModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return ConsoleModel{
		source:     source,
		keys:       newConsoleKeys(),
		spinner:    s,
		logs:       viewport.New(80, 20),
		autoScroll: true,
		title:      title,
	}
}

// Snapshot returns the last state received from the controller.
func (m ConsoleModel) Snapshot() console.Snapshot { return m.snap }

// Confirming reports whether the re-initialize prompt is showing.
func (m ConsoleModel) Confirming() bool { return m.confirming }

// AutoScroll reports whether the log view follows new lines.
func (m ConsoleModel) AutoScroll() bool { return m.autoScroll }

func (m ConsoleModel) waitForSnapshot() tea.Cmd {
	ch := m.source.Updates()
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Init implements tea.Model.
func (m ConsoleModel) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.logs.Width = msg.Width - 4
		m.logs.Height = max(msg.Height-10, 3)
		m.refreshLogs()
		return m, nil
	case snapshotMsg:
		m.snap = console.Snapshot(msg)
		m.refreshLogs()
		return m, m.waitForSnapshot()
	case updatesClosedMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m ConsoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			m.source.Reinit(daemonctl.AlwaysConfirm)
		case key.Matches(msg, m.keys.Cancel):
			m.confirming = false
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Start):
		if m.snap.StartEnabled {
			m.source.Start()
		}
	case key.Matches(msg, m.keys.Stop):
		if m.snap.StopEnabled {
			m.source.Stop()
		}
	case key.Matches(msg, m.keys.Reinit):
		if m.snap.StartEnabled {
			m.confirming = true
		}
	case key.Matches(msg, m.keys.Clear):
		m.source.Clear()
	case key.Matches(msg, m.keys.AutoScroll):
		m.autoScroll = !m.autoScroll
		m.refreshLogs()
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ConsoleModel) refreshLogs() {
	if len(m.snap.Lines) == 0 {
		m.logs.SetContent(subtleStyle.Render("No logs yet. New logs will appear here..."))
		return
	}
	m.logs.SetContent(strings.Join(m.snap.Lines, "\n"))
	if m.autoScroll {
		m.logs.GotoBottom()
	}
}

// View implements tea.Model.
func (m ConsoleModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mergin DB Sync"))
	if m.title != "" {
		b.WriteString(subtleStyle.Render("  " + m.title))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.renderControls())
	b.WriteString("\n")
	if !m.snap.Notice.Empty() {
		style := successStyle
		if m.snap.Notice.Kind == console.NoticeError {
			style = errorStyle
		}
		b.WriteString(style.Render(m.snap.Notice.Text))
		b.WriteString("\n")
	}
	if m.confirming {
		b.WriteString(warningStyle.Render(daemonctl.ReinitPrompt + " [y/N]"))
		b.WriteString("\n")
	}
	b.WriteString(panelStyle.Render(m.logs.View()))
	b.WriteString("\n")
	b.WriteString(renderHelp(m.keys.help()))
	return b.String()
}

func (m ConsoleModel) renderStatus() string {
	label := m.snap.StatusLabel()
	var style lipgloss.Style
	switch {
	case !m.snap.StatusKnown:
		style = subtleStyle
	case m.snap.Status.Running:
		style = successStyle
	default:
		style = errorStyle
	}
	line := labelStyle.Render("Status") + style.Render("● "+label)
	if m.snap.Status.PID != nil && m.snap.Status.Running {
		line += subtleStyle.Render(fmt.Sprintf("  (PID %d)", *m.snap.Status.PID))
	}
	line += subtleStyle.Render("  stream " + m.snap.Stream.String())
	if m.snap.StatusError != "" {
		line += "  " + warningStyle.Render(m.snap.StatusError)
	}
	return line
}

func (m ConsoleModel) renderControls() string {
	button := func(name string, enabled, busy bool) string {
		switch {
		case busy:
			return m.spinner.View() + " " + name
		case enabled:
			return selectedStyle.Render("[" + name + "]")
		default:
			return subtleStyle.Render("[" + name + "]")
		}
	}
	scroll := "off"
	if m.autoScroll {
		scroll = "on"
	}
	return strings.Join([]string{
		labelStyle.Render("Controls"),
		button("start", m.snap.StartEnabled, m.snap.Starting),
		button("stop", m.snap.StopEnabled, m.snap.Stopping),
		button("re-initialize", m.snap.StartEnabled, m.snap.Reinitializing),
		subtleStyle.Render("auto-scroll " + scroll),
	}, " ")
}

package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts model in the alternate screen and blocks until it exits or
// ctx ends.
func Run(ctx context.Context, model tea.Model) (tea.Model, error) {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	return p.Run()
}

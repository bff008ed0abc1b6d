package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justchokingaround/playcore/internal/tui/common"
)

// Run starts the TUI and blocks until the user quits. bridge receives the
// program so core callbacks reach the model.
func Run(ctx context.Context, bridge *common.Bridge, opts Options) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p.Send)
	defer bridge.Attach(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

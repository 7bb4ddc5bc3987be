// Package tui is the interactive session editor: a full screen form over
// the configured settings, a live transcript while a combination runs, and
// the same dialogs the command line prints, shown inline.
package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/earwighaven/masterflatmaker/internal/app"
)

// Run drives the session editor until the user quits. Cancelling ctx shuts
// the program down; that counts as a normal exit.
func Run(ctx context.Context, application *app.Application) error {
	program := tea.NewProgram(
		newModel(ctx, application),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}

package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/yanani99/reso/internal/repositories"
	"github.com/yanani99/reso/internal/shared"
	"github.com/yanani99/reso/internal/ui"
)

// TUI launches the interactive track browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.configFor(cmd)

	db, err := r.database(config)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/reso-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, repositories.NewJobRepository(db), nil)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

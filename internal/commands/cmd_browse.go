package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/tui"
)

type BrowseCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	scope scopeFlags
}

// NewBrowseCmd creates a new browse command
func NewBrowseCmd(flags *Flags, app *codetribute.App) *BrowseCmd {
	return &BrowseCmd{flags: flags, app: app}
}

// Register adds the browse command to the application
func (cmd *BrowseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "browse",
		Usage:     "Browse tasks interactively",
		UsageText: "codetribute browse (--project KEY | --language NAME | --tag TAG) [--query CRITERIA]",
		Description: `Opens the interactive task browser. Further pages load on demand with 'n';
filters and sort order change with single keys. Press '?' for every binding.`,
		Flags:  cmd.scope.Flags(),
		Action: cmd.run,
	})

	return app
}

func (cmd *BrowseCmd) run(ctx context.Context, _ *cli.Command) error {
	scope, err := cmd.scope.Scope(cmd.app)
	if err != nil {
		return err
	}

	m := tui.New(cmd.app.NewSession(), cmd.app.Views, tui.Options{
		Scope:    scope,
		Criteria: cmd.scope.Criteria(),
		Context:  ctx,
	})

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

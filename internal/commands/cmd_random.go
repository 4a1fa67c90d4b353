package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

type RandomCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	scope      scopeFlags
	pages      int
	jsonOutput bool
}

// NewRandomCmd creates a new random command
func NewRandomCmd(flags *Flags, app *codetribute.App) *RandomCmd {
	return &RandomCmd{flags: flags, app: app}
}

// Register adds the random command to the application
func (cmd *RandomCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "random",
		Usage:     "Pick a random task, preferring unassigned ones",
		UsageText: "codetribute random (--project KEY | --language NAME | --tag TAG) [--query CRITERIA] [--pages N] [--json]",
		Flags: append(cmd.scope.Flags(),
			&cli.IntFlag{
				Name:        "pages",
				Usage:       "number of result pages to pick from (0 loads every page)",
				Value:       1,
				Destination: &cmd.pages,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the task as JSON",
				Destination: &cmd.jsonOutput,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *RandomCmd) run(ctx context.Context, c *cli.Command) error {
	scope, err := cmd.scope.Scope(cmd.app)
	if err != nil {
		return err
	}

	session := cmd.app.NewSession()
	session.SetScope(scope)
	if err := collectResult(c.Root().ErrWriter, cmd.app.Collect(ctx, session, cmd.pages), session, cmd.jsonOutput); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	t, ok := view.PickRandom(cmd.app.Views.Derive(session.Tasks(), cmd.scope.Criteria()), nil)
	if !ok {
		return fmt.Errorf("no tasks found for %s", scope)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, t)
	}
	return writeTaskDetail(c.Root().Writer, t, t.Description, time.Now())
}

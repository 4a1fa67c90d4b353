package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

type ShowCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	scope      scopeFlags
	jsonOutput bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *codetribute.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show the details of one task",
		UsageText: "codetribute show (--project KEY | --language NAME | --tag TAG) [--json] TITLE",
		Description: `Finds the task with the given title in the selected scope and prints its
description, rendered as markdown, with a hint on how to pick it up.
Titles match case-insensitively. Bugzilla descriptions are fetched from the
bug's first comment.`,
		Flags: append(cmd.scope.Flags(),
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

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	title := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if title == "" {
		return fmt.Errorf("task title is required")
	}

	scope, err := cmd.scope.Scope(cmd.app)
	if err != nil {
		return err
	}

	session := cmd.app.NewSession()
	session.SetScope(scope)

	t, err := cmd.app.FindTask(ctx, session, title)
	if err != nil {
		return err
	}

	description, err := session.Description(ctx, t)
	if err != nil {
		return err
	}
	t.Description = description

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, t)
	}
	return writeTaskDetail(c.Root().Writer, t, description, time.Now())
}

package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
)

type TasksCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	scope      scopeFlags
	pages      int
	all        bool
	jsonOutput bool
}

// NewTasksCmd creates a new tasks command
func NewTasksCmd(flags *Flags, app *codetribute.App) *TasksCmd {
	return &TasksCmd{flags: flags, app: app}
}

// Register adds the tasks command to the application
func (cmd *TasksCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tasks",
		Aliases:   []string{"ls"},
		Usage:     "List beginner-friendly tasks for a project, language or tag",
		UsageText: "codetribute tasks (--project KEY | --language NAME | --tag TAG) [--query CRITERIA] [--pages N | --all] [--json]",
		Description: `Searches GitHub issues and Bugzilla bugs for the selected scope, merges
them into one list and prints it filtered and sorted by --query.

The query uses the same keys as the web view: sortBy, sortDirection, tag,
assignee and project. For example:

  codetribute tasks --language rust --query 'assignee=Unassigned&sortBy=Summary'

Use --json for JSON lines that 'codetribute filter' can read back.`,
		Flags: append(cmd.scope.Flags(),
			&cli.IntFlag{
				Name:        "pages",
				Usage:       "number of result pages to load from every source",
				Value:       1,
				Destination: &cmd.pages,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "load every page",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *TasksCmd) run(ctx context.Context, c *cli.Command) error {
	scope, err := cmd.scope.Scope(cmd.app)
	if err != nil {
		return err
	}

	pages := cmd.pages
	if cmd.all {
		pages = 0
	}

	session := cmd.app.NewSession()
	session.SetScope(scope)
	if err := collectResult(c.Root().ErrWriter, cmd.app.Collect(ctx, session, pages), session, cmd.jsonOutput); err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	tasks := cmd.app.Views.Derive(session.Tasks(), cmd.scope.Criteria())
	if len(tasks) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No tasks found for %s\n", scope)
		}
		return nil
	}

	if err := writeTasks(c.Root().Writer, tasks, cmd.jsonOutput, time.Now()); err != nil {
		return err
	}

	if session.HasNextPage() && !cmd.jsonOutput {
		fmt.Fprintln(os.Stderr, styles.MutedStyle.Render("More tasks are available; use --pages or --all to load them."))
	}
	return nil
}

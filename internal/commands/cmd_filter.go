package commands

import (
	"context"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

type FilterCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	reader     iojson.FileReader[task.Task]
	criteria   string
	jsonOutput bool
}

// NewFilterCmd creates a new filter command
func NewFilterCmd(flags *Flags, app *codetribute.App) *FilterCmd {
	return &FilterCmd{flags: flags, app: app}
}

// Register adds the filter command to the application
func (cmd *FilterCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "filter",
		Usage:     "Filter and sort previously saved tasks",
		UsageText: "codetribute filter [-f FILE] [--query CRITERIA] [--json]",
		Description: `Reads tasks written by 'codetribute tasks --json' from a file or stdin and
prints the view selected by --query without contacting GitHub or Bugzilla.

  codetribute tasks --tag good-first-bug --all --json > tasks.jsonl
  codetribute filter -f tasks.jsonl --query 'assignee=Unassigned&project=devtools'`,
		Flags: []cli.Flag{
			cmd.reader.Flag(),
			&cli.StringFlag{
				Name:        "query",
				Aliases:     []string{"q"},
				Usage:       "view criteria as a query string",
				Destination: &cmd.criteria,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *FilterCmd) run(_ context.Context, c *cli.Command) error {
	tasks, err := cmd.reader.Read()
	if err != nil {
		return err
	}

	for i := range tasks {
		tasks[i].Tags = task.NormalizeTags(tasks[i].Tags)
		if strings.TrimSpace(tasks[i].Assignee) == "" {
			tasks[i].Assignee = task.Unassigned
		}
	}

	derived := cmd.app.Views.Derive(tasks, view.Decode(cmd.criteria))
	return writeTasks(c.Root().Writer, derived, cmd.jsonOutput, time.Now())
}

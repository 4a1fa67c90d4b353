package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

type ProjectsCmd struct {
	flags *Flags
	app   *codetribute.App

	// flags
	jsonOutput bool
}

// NewProjectsCmd creates a new projects command
func NewProjectsCmd(flags *Flags, app *codetribute.App) *ProjectsCmd {
	return &ProjectsCmd{flags: flags, app: app}
}

// Register adds the projects command to the application
func (cmd *ProjectsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "projects",
		Usage:     "List participating projects",
		UsageText: "codetribute projects [--json]",
		Description: `Lists the project table with the number of GitHub repositories and
Bugzilla products each project searches. The KEY column is the value
accepted by --project.`,
		Flags: []cli.Flag{
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

// projectInfo is the JSON output format for codetribute projects --json.
type projectInfo struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary,omitempty"`
	Repositories []string `json:"repositories"`
	Products     []string `json:"products"`
}

func newProjectInfo(p config.Project) projectInfo {
	info := projectInfo{
		Key:          p.Key,
		Name:         p.Name,
		Summary:      p.Summary,
		Repositories: make([]string, 0, len(p.Repositories)),
		Products:     make([]string, 0, len(p.Products)),
	}
	for _, r := range p.Repositories {
		info.Repositories = append(info.Repositories, r.Name)
	}
	for _, prod := range p.Products {
		info.Products = append(info.Products, prod.Name)
	}
	return info
}

func (cmd *ProjectsCmd) run(_ context.Context, c *cli.Command) error {
	out := c.Root().Writer
	projects := cmd.app.Projects

	if cmd.jsonOutput {
		for _, key := range projects.Keys() {
			if err := iojson.WriteLine(out, newProjectInfo(projects[key])); err != nil {
				return fmt.Errorf("encode project: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tNAME\tREPOS\tPRODUCTS\tSUMMARY")
	for _, key := range projects.Keys() {
		p := projects[key]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", key, p.Name, len(p.Repositories), len(p.Products), p.Summary)
	}
	return w.Flush()
}

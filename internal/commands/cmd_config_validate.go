package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
)

type ConfigValidateCmd struct {
	flags  *Flags
	app    *codetribute.App
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags, app *codetribute.App) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags, app: app}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file and project table",
				UsageText:   "codetribute config validate [options]",
				Description: "Validates the configuration file, endpoint URLs, unassigned account patterns and every project definition.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath, cmd.app.Projects)
	warnings := cmd.flags.Config.Warnings(cmd.app.Projects)
	issues := validationIssues(err)

	if cmd.format == "json" {
		return cmd.outputJSON(c.Root().Writer, issues, warnings)
	}

	return cmd.outputText(c.Root().Writer, issues, warnings)
}

// validationIssues flattens criterio field errors. Other errors become a
// single issue without a field.
func validationIssues(err error) []validationIssue {
	if err == nil {
		return nil
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationIssue{{Message: err.Error()}}
	}

	issues := make([]validationIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, validationIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return issues
}

func (cmd *ConfigValidateCmd) outputJSON(w io.Writer, issues []validationIssue, warnings []config.ValidationWarning) error {
	out := struct {
		Valid    bool                       `json:"valid"`
		Errors   []validationIssue          `json:"errors,omitempty"`
		Warnings []config.ValidationWarning `json:"warnings,omitempty"`
	}{
		Valid:    len(issues) == 0,
		Errors:   issues,
		Warnings: warnings,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if len(issues) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputText(w io.Writer, issues []validationIssue, warnings []config.ValidationWarning) error {
	for _, warn := range warnings {
		_, _ = fmt.Fprintln(w, styles.WarningStyle.Render(fmt.Sprintf("%s: %s", warn.Category, warn.Message)))
		if warn.Item != "" {
			_, _ = fmt.Fprintf(w, "  Item: %s\n", warn.Item)
		}
	}

	for _, issue := range issues {
		if issue.Field != "" {
			_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(fmt.Sprintf("%s: %s", issue.Field, issue.Message)))
		} else {
			_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(issue.Message))
		}
	}

	_, _ = fmt.Fprintln(w)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render(fmt.Sprintf("Configuration is valid (%d projects)", len(cmd.app.Projects))))
		return nil
	}

	_, _ = fmt.Fprintln(w, styles.ErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(issues))))
	return cli.Exit("", 1)
}

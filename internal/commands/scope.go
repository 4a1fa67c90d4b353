package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
)

// scopeFlags are the browsing scope and view criteria flags shared by
// every command that loads tasks.
type scopeFlags struct {
	project  string
	language string
	tag      string
	criteria string
}

func (s *scopeFlags) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "browse one project by key (see 'codetribute projects')",
			Destination: &s.project,
		},
		&cli.StringFlag{
			Name:        "language",
			Aliases:     []string{"l"},
			Usage:       "browse every project written in a language",
			Destination: &s.language,
		},
		&cli.StringFlag{
			Name:        "tag",
			Aliases:     []string{"t"},
			Usage:       "browse every project by a label, keyword or whiteboard tag",
			Destination: &s.tag,
		},
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "view criteria as a query string, e.g. 'assignee=Unassigned&sortBy=Summary'",
			Destination: &s.criteria,
		},
	}
}

func (s *scopeFlags) Scope(app *codetribute.App) (query.Scope, error) {
	return app.ParseScope(s.project, s.language, s.tag)
}

func (s *scopeFlags) Criteria() view.Criteria {
	return view.Decode(s.criteria)
}

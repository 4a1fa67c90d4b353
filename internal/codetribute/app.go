// Package codetribute wires configuration, transports, the cache and the
// view engine into the App consumed by commands and the TUI.
package codetribute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/logging"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources/bugzilla"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources/github"
)

// ErrScopeRequired is returned when no scope flag was given.
var ErrScopeRequired = errors.New("one of --project, --language or --tag is required")

// App is the central entry point for all codetribute operations.
// Commands and TUI consume App instead of cherry-picking raw dependencies.
type App struct {
	Config   *config.Config
	Projects config.Projects
	Builder  *query.Builder
	GitHub   *github.Client
	Bugzilla *bugzilla.Client
	Views    *view.Engine

	cache kv.KV
	pool  *aggregate.WorkerPool
	log   zerolog.Logger
}

// NewApp constructs an App from explicit dependencies. cache may be nil to
// disable response caching.
func NewApp(cfg *config.Config, projects config.Projects, cache kv.KV) *App {
	return &App{
		Config:   cfg,
		Projects: projects,
		Builder:  query.NewBuilder(projects, cfg.Bugzilla),
		GitHub:   github.New(cfg.GitHub, cfg.HTTPTimeout, logging.Component("github")),
		Bugzilla: bugzilla.New(cfg.Bugzilla, cfg.HTTPTimeout, logging.Component("bugzilla")),
		Views:    view.NewEngine(),
		cache:    cache,
		pool:     aggregate.NewWorkerPool(cfg.Workers),
		log:      logging.Component("app"),
	}
}

// NewSession creates the aggregator for one browsing session. Sessions
// share the worker pool and the response cache but nothing else.
func (a *App) NewSession() *aggregate.Aggregator {
	opts := aggregate.Options{
		Builder:    a.Builder,
		Issues:     a.GitHub,
		Bugs:       a.Bugzilla,
		Normalizer: task.NewNormalizer(a.Config.Bugzilla.BugURL, a.Config.Bugzilla.Unassigned),
		Languages:  a.GitHub,
		Comments:   a.Bugzilla,
		Pool:       a.pool,
		Logger:     logging.Component("aggregator"),
	}
	if a.cache != nil {
		opts.Cache = a.cache
		opts.CacheTTL = a.Config.Cache.TTL
	}
	return aggregate.New(opts)
}

// ParseScope turns the mutually exclusive scope flags into a scope.
func (a *App) ParseScope(project, language, tag string) (query.Scope, error) {
	var scopes []query.Scope
	if project != "" {
		p, ok := a.Projects.Lookup(project)
		if !ok {
			return query.Scope{}, fmt.Errorf("%w: %q (known: %s)", query.ErrUnknownProject, project, strings.Join(a.Projects.Keys(), ", "))
		}
		scopes = append(scopes, query.Project(p.Key))
	}
	if language != "" {
		scopes = append(scopes, query.Language(language))
	}
	if tag != "" {
		scopes = append(scopes, query.Tag(tag))
	}

	switch len(scopes) {
	case 0:
		return query.Scope{}, ErrScopeRequired
	case 1:
		return scopes[0], scopes[0].Validate()
	default:
		return query.Scope{}, errors.New("--project, --language and --tag are mutually exclusive")
	}
}

// Collect loads up to pages increments into session, or every page when
// pages is zero or less. A failed source does not stop the others: loading
// continues while some query still makes progress, and the last load error
// is returned. Merged tasks always stay in the session.
func (a *App) Collect(ctx context.Context, session *aggregate.Aggregator, pages int) error {
	var lastErr error
	for i := 0; session.HasNextPage() && (pages <= 0 || i < pages); i++ {
		err := session.LoadNextPage(ctx)
		if err == nil {
			continue
		}
		lastErr = err
		if !session.Progressed() {
			break
		}
	}

	a.log.Debug().
		Str("scope", session.Scope().String()).
		Int("tasks", len(session.Tasks())).
		Bool("hasNextPage", session.HasNextPage()).
		Msg("collected")
	return lastErr
}

// FindTask returns the task titled title, loading further pages until it
// appears or every source is exhausted. Titles match case-insensitively.
func (a *App) FindTask(ctx context.Context, session *aggregate.Aggregator, title string) (task.Task, error) {
	for {
		for _, t := range session.Tasks() {
			if strings.EqualFold(t.Summary.Title, title) {
				return t, nil
			}
		}
		if !session.HasNextPage() {
			return task.Task{}, fmt.Errorf("no task titled %q in %s", title, session.Scope())
		}
		if err := session.LoadNextPage(ctx); err != nil {
			return task.Task{}, err
		}
	}
}

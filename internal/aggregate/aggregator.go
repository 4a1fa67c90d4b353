package aggregate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/kv"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/logging"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
)

const (
	issueCacheNamespace   = "github.search"
	bugCacheNamespace     = "bugzilla.search"
	commentCacheNamespace = "bugzilla.comment"
)

// LanguageResolver narrows repositories to those whose primary language
// matches.
type LanguageResolver interface {
	ReposByLanguage(ctx context.Context, language string, repos []string) ([]string, error)
}

// CommentFetcher returns the opening comment of a bug.
type CommentFetcher interface {
	FirstComment(ctx context.Context, id int) (string, error)
}

// Options configures an Aggregator. Builder, Issues, Bugs and Normalizer are
// required; everything else is optional.
type Options struct {
	Builder    *query.Builder
	Issues     Fetcher[query.IssueSearch, task.Issue]
	Bugs       Fetcher[query.BugSearch, task.Bug]
	Normalizer *task.Normalizer
	Languages  LanguageResolver
	Comments   CommentFetcher
	Pool       *WorkerPool
	Cache      kv.KV
	CacheTTL   time.Duration
	Logger     zerolog.Logger
}

// Snapshot is a consistent read-only view of the aggregator state.
type Snapshot struct {
	Scope       query.Scope
	Tasks       []task.Task
	HasNextPage bool
	Loading     bool
	Errors      map[task.Source]error
}

// pager erases the query and record types of a paginator so both sources
// can be driven from one list.
type pager interface {
	Name() string
	Done() bool
	next(ctx context.Context) (tasks []task.Task, skipped []error, err error)
}

type normalizingPager[Q, R any] struct {
	*Paginator[Q, R]
	normalize func(R) (task.Task, error)
}

func (p normalizingPager[Q, R]) next(ctx context.Context) ([]task.Task, []error, error) {
	records, err := p.FetchNext(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		tasks   = make([]task.Task, 0, len(records))
		skipped []error
	)
	for _, r := range records {
		t, err := p.normalize(r)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped, nil
}

type source struct {
	kind   task.Source
	pagers []pager
}

func (s *source) done() bool {
	for _, p := range s.pagers {
		if !p.Done() {
			return false
		}
	}
	return true
}

// Aggregator owns the task collection of one browsing session. It is the
// only writer of the collection and of the cursors.
type Aggregator struct {
	builder    *query.Builder
	issues     Fetcher[query.IssueSearch, task.Issue]
	bugs       Fetcher[query.BugSearch, task.Bug]
	normalizer *task.Normalizer
	languages  LanguageResolver
	comments   CommentFetcher
	pool       *WorkerPool
	cache      kv.KV
	cacheTTL   time.Duration
	log        zerolog.Logger

	mu       sync.Mutex
	scope    query.Scope
	token    string
	prepared bool
	sources  []*source
	tasks    []task.Task
	titles   map[string]struct{}
	hasNext  bool
	loading  bool
	progress bool
	errs     map[task.Source]error
}

// New creates an aggregator with no scope selected.
func New(opts Options) *Aggregator {
	a := &Aggregator{
		builder:    opts.Builder,
		issues:     opts.Issues,
		bugs:       opts.Bugs,
		normalizer: opts.Normalizer,
		languages:  opts.Languages,
		comments:   opts.Comments,
		pool:       opts.Pool,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		log:        opts.Logger,
		titles:     map[string]struct{}{},
		errs:       map[task.Source]error{},
	}

	if a.pool == nil {
		a.pool = NewWorkerPool(0)
	}

	if a.cache != nil {
		a.issues = Cached(a.issues, a.cache, issueCacheNamespace, query.IssueSearch.String, a.cacheTTL, a.log)
		a.bugs = Cached(a.bugs, a.cache, bugCacheNamespace, query.BugSearch.Key, a.cacheTTL, a.log)
	}

	return a
}

// SetScope switches the browsing context. The collection and every cursor
// are reset; a load already in flight for the previous scope has its result
// discarded when it completes.
func (a *Aggregator) SetScope(scope query.Scope) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked(scope)
}

func (a *Aggregator) resetLocked(scope query.Scope) {
	a.scope = scope
	a.token = uuid.NewString()
	a.prepared = false
	a.sources = nil
	a.tasks = nil
	a.titles = map[string]struct{}{}
	a.hasNext = true
	a.progress = false
	a.errs = map[task.Source]error{}
}

// Reload drops cached upstream responses and restarts the current scope.
func (a *Aggregator) Reload(ctx context.Context) error {
	if a.cache != nil {
		for _, ns := range []string{issueCacheNamespace, bugCacheNamespace} {
			if _, err := kv.Scoped[struct{}](a.cache, ns).Clear(ctx); err != nil {
				return fmt.Errorf("invalidate %s: %w", ns, err)
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked(a.scope)
	return nil
}

// Scope returns the active scope.
func (a *Aggregator) Scope() query.Scope {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scope
}

// HasNextPage reports whether any source has pages left.
func (a *Aggregator) HasNextPage() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasNext
}

// Loading reports whether a load is in flight.
func (a *Aggregator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

// Tasks returns a copy of the merged collection in merge order.
func (a *Aggregator) Tasks() []task.Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.tasks)
}

// Progressed reports whether the most recent load fetched a page for at
// least one query. A load where every query failed leaves it false.
func (a *Aggregator) Progressed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.progress
}

// Errors returns the latest fetch error per source.
func (a *Aggregator) Errors() map[task.Source]error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.errs)
}

// Snapshot returns the full state under one lock.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Scope:       a.scope,
		Tasks:       slices.Clone(a.tasks),
		HasNextPage: a.hasNext,
		Loading:     a.loading,
		Errors:      maps.Clone(a.errs),
	}
}

// LoadNextPage fetches the next page of every query that has one, merges the
// results and recomputes HasNextPage. It returns nil immediately once every
// source is exhausted. Per-source fetch failures are recorded in Errors and
// returned joined; results merged before the failure are kept.
func (a *Aggregator) LoadNextPage(ctx context.Context) error {
	a.mu.Lock()
	if a.scope.IsZero() {
		a.mu.Unlock()
		return ErrNoScope
	}
	if a.loading {
		a.mu.Unlock()
		return ErrLoadInProgress
	}
	if !a.hasNext {
		a.mu.Unlock()
		return nil
	}
	a.loading = true
	a.progress = false
	token, scope, prepared := a.token, a.scope, a.prepared
	a.mu.Unlock()

	ctx = logging.WithScope(logging.WithSessionID(ctx, token), scope.String())
	err := a.load(ctx, token, scope, prepared)

	if errors.Is(err, ErrStaleContext) {
		a.log.Debug().Ctx(ctx).Msg("discarded results for previous scope")
		// The scope changed mid-flight; fetch the first page of the new one.
		return a.LoadNextPage(ctx)
	}
	return err
}

// load runs one increment. a.loading is cleared before it returns.
func (a *Aggregator) load(ctx context.Context, token string, scope query.Scope, prepared bool) error {
	finish := func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}

	if !prepared {
		sources, err := a.prepare(ctx, scope)
		if err != nil {
			finish()
			return err
		}

		a.mu.Lock()
		if a.token != token {
			a.loading = false
			a.mu.Unlock()
			return ErrStaleContext
		}
		a.sources = sources
		a.prepared = true
		a.mu.Unlock()
	}

	a.mu.Lock()
	sources := a.sources
	a.mu.Unlock()

	type result struct {
		tasks   []task.Task
		skipped []error
		err     error
		ran     bool
	}

	results := make([][]result, len(sources))
	var wg sync.WaitGroup
	for si, src := range sources {
		results[si] = make([]result, len(src.pagers))
		for pi, p := range src.pagers {
			if p.Done() {
				continue
			}
			a.pool.Go(ctx, &wg, func(err error) {
				if err != nil {
					results[si][pi] = result{err: err, ran: true}
					return
				}
				tasks, skipped, err := p.next(ctx)
				results[si][pi] = result{tasks: tasks, skipped: skipped, err: err, ran: true}
			})
		}
	}
	wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false

	if a.token != token {
		return ErrStaleContext
	}

	var errs []error
	added, dropped := 0, 0
	for si, src := range sources {
		var srcErr error
		for pi, res := range results[si] {
			if !res.ran {
				continue
			}
			p := src.pagers[pi]
			if res.err != nil {
				srcErr = errors.Join(srcErr, fmt.Errorf("%s: %w", p.Name(), res.err))
				a.log.Warn().Ctx(ctx).Err(res.err).Str("source", string(src.kind)).Str("query", p.Name()).Msg("fetch failed")
				continue
			}
			a.progress = true
			for _, skipErr := range res.skipped {
				a.log.Warn().Ctx(ctx).Err(skipErr).Str("source", string(src.kind)).Msg("skipping malformed record")
			}
			for _, t := range res.tasks {
				if a.mergeLocked(t) {
					added++
				} else {
					dropped++
				}
			}
		}

		if srcErr != nil {
			a.errs[src.kind] = srcErr
			errs = append(errs, srcErr)
		} else {
			delete(a.errs, src.kind)
		}
	}

	a.hasNext = false
	for _, src := range sources {
		if !src.done() {
			a.hasNext = true
			break
		}
	}

	a.log.Debug().Ctx(ctx).
		Int("added", added).
		Int("duplicates", dropped).
		Int("total", len(a.tasks)).
		Bool("hasNextPage", a.hasNext).
		Msg("page merged")

	return errors.Join(errs...)
}

// mergeLocked appends t unless a task with the same title is already
// present. The first task seen for a title wins.
func (a *Aggregator) mergeLocked(t task.Task) bool {
	if _, dup := a.titles[t.Summary.Title]; dup {
		return false
	}
	a.titles[t.Summary.Title] = struct{}{}
	a.tasks = append(a.tasks, t)
	return true
}

// prepare builds the query set for scope and wraps every query in a
// paginator. Sources come back in merge priority order.
func (a *Aggregator) prepare(ctx context.Context, scope query.Scope) ([]*source, error) {
	var languageRepos []string
	if scope.Kind == query.KindLanguage && a.languages != nil {
		var names []string
		for _, repo := range a.builder.AllRepositories() {
			names = append(names, repo.Name)
		}
		if len(names) > 0 {
			repos, err := a.languages.ReposByLanguage(ctx, scope.Value, names)
			if err != nil {
				// The language label query still covers every repository.
				a.log.Warn().Ctx(ctx).Err(err).Str("language", scope.Value).Msg("repository language lookup failed")
			}
			languageRepos = repos
		}
	}

	set, err := a.builder.Build(scope, languageRepos)
	if err != nil {
		return nil, fmt.Errorf("build queries for %s: %w", scope, err)
	}

	github := &source{kind: task.SourceGitHub}
	for _, q := range set.Issues {
		github.pagers = append(github.pagers, normalizingPager[query.IssueSearch, task.Issue]{
			Paginator: NewPaginator(q.String(), q, a.issues),
			normalize: a.normalizer.NormalizeIssue,
		})
	}

	bugzilla := &source{kind: task.SourceBugzilla}
	for _, q := range set.Bugs {
		bugzilla.pagers = append(bugzilla.pagers, normalizingPager[query.BugSearch, task.Bug]{
			Paginator: NewPaginator(q.Name, q, a.bugs),
			normalize: a.normalizer.NormalizeBug,
		})
	}

	a.log.Debug().Ctx(ctx).
		Int("issueQueries", len(github.pagers)).
		Int("bugQueries", len(bugzilla.pagers)).
		Msg("queries prepared")

	sources := []*source{github, bugzilla}
	slices.SortStableFunc(sources, func(x, y *source) int { return x.kind.Priority() - y.kind.Priority() })
	return sources, nil
}

// Description returns the long description of t, fetching the opening
// comment of Bugzilla tasks on first use. The fetched text is stored on the
// task in the collection.
func (a *Aggregator) Description(ctx context.Context, t task.Task) (string, error) {
	if t.Description != "" || t.Source != task.SourceBugzilla || t.SourceID == 0 || a.comments == nil {
		return t.Description, nil
	}

	var cache *kv.TypedKV[string]
	key := strconv.Itoa(t.SourceID)
	if a.cache != nil {
		cache = kv.Scoped[string](a.cache, commentCacheNamespace)
		if text, err := cache.Get(ctx, key); err == nil {
			a.setDescription(t.Summary.Title, text)
			return text, nil
		}
	}

	text, err := a.comments.FirstComment(ctx, t.SourceID)
	if err != nil {
		return "", fmt.Errorf("load description for bug %d: %w", t.SourceID, err)
	}

	if cache != nil {
		if err := cache.SetTTL(ctx, key, text, a.cacheTTL); err != nil {
			a.log.Debug().Err(err).Int("bug", t.SourceID).Msg("cache store failed")
		}
	}
	a.setDescription(t.Summary.Title, text)
	return text, nil
}

func (a *Aggregator) setDescription(title, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := slices.IndexFunc(a.tasks, func(t task.Task) bool { return t.Summary.Title == title })
	if i >= 0 {
		a.tasks[i].Description = text
	}
}

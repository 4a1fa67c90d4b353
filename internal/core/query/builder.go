package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
)

// ErrUnknownProject is returned when a project scope names no configured project.
var ErrUnknownProject = errors.New("unknown project")

// Builder turns a scope into per-source searches. It only reads the project
// table it was constructed with.
type Builder struct {
	projects config.Projects
	keyword  string
	statuses []string
	language func(name string) (string, bool)
}

// NewBuilder creates a builder over the static project table.
func NewBuilder(projects config.Projects, bz config.BugzillaConfig) *Builder {
	return &Builder{
		projects: projects,
		keyword:  bz.Keyword,
		statuses: slices.Clone(bz.Statuses),
		language: bz.Language,
	}
}

// Build derives the query set for scope. For language scopes, languageRepos
// lists the configured repositories whose primary language matches; it is
// ignored for other scopes.
func (b *Builder) Build(scope Scope, languageRepos []string) (Set, error) {
	if err := scope.Validate(); err != nil {
		return Set{}, err
	}

	switch scope.Kind {
	case KindProject:
		proj, ok := b.projects.Lookup(scope.Value)
		if !ok {
			return Set{}, fmt.Errorf("%w: %q", ErrUnknownProject, scope.Value)
		}
		return Set{
			Issues: groupByTag(proj.Repositories),
			Bugs:   b.productSearches(proj.Products),
		}, nil

	case KindLanguage:
		return b.languageSet(scope.Value, languageRepos), nil

	default:
		return b.tagSet(scope.Value), nil
	}
}

// AllRepositories returns every configured repository across projects, in
// project key order, without duplicates.
func (b *Builder) AllRepositories() []config.Repository {
	var (
		out  []config.Repository
		seen = map[string]int{}
	)
	for _, key := range b.projects.Keys() {
		for _, repo := range b.projects[key].Repositories {
			if i, ok := seen[repo.Name]; ok {
				out[i].Tags = sortedUnique(append(slices.Clone(out[i].Tags), repo.Tags...))
				continue
			}
			seen[repo.Name] = len(out)
			out = append(out, config.Repository{Name: repo.Name, Tags: slices.Clone(repo.Tags)})
		}
	}
	return out
}

// groupByTag emits one search per distinct label, in order of first
// appearance, listing every repository carrying that label.
func groupByTag(repos []config.Repository) []IssueSearch {
	var (
		groups []IssueSearch
		index  = map[string]int{}
	)
	for _, repo := range repos {
		for _, tag := range repo.Tags {
			i, ok := index[tag]
			if !ok {
				i = len(groups)
				index[tag] = i
				groups = append(groups, IssueSearch{Label: tag})
			}
			if !slices.Contains(groups[i].Repos, repo.Name) {
				groups[i].Repos = append(groups[i].Repos, repo.Name)
			}
		}
	}
	return groups
}

// productSearches emits one product-level search for products without
// components and one search per product that lists components.
func (b *Builder) productSearches(products []config.Product) []BugSearch {
	var (
		plain    []string
		searches []BugSearch
	)
	for _, prod := range products {
		if len(prod.Components) == 0 {
			plain = append(plain, prod.Name)
			continue
		}
		searches = append(searches, BugSearch{
			Name:       prod.Name,
			Products:   []string{prod.Name},
			Components: slices.Clone(prod.Components),
			Keywords:   []string{b.keyword},
			Statuses:   b.statuses,
		})
	}

	if len(plain) > 0 {
		searches = append([]BugSearch{{
			Name:     strings.Join(plain, ","),
			Products: plain,
			Keywords: []string{b.keyword},
			Statuses: b.statuses,
		}}, searches...)
	}
	return searches
}

func (b *Builder) languageSet(language string, languageRepos []string) Set {
	all := b.AllRepositories()

	matched := make([]config.Repository, 0, len(languageRepos))
	for _, repo := range all {
		if slices.ContainsFunc(languageRepos, func(r string) bool { return strings.EqualFold(r, repo.Name) }) {
			matched = append(matched, repo)
		}
	}

	var set Set
	set.Issues = groupByTag(matched)
	if len(all) > 0 {
		names := make([]string, 0, len(all))
		for _, repo := range all {
			names = append(names, repo.Name)
		}
		// The language itself is also used as a label across every repository.
		i := slices.IndexFunc(set.Issues, func(q IssueSearch) bool { return q.Label == language })
		if i >= 0 {
			set.Issues[i].Repos = names
		} else {
			set.Issues = append(set.Issues, IssueSearch{Label: language, Repos: names})
		}
	}

	if lang, ok := b.language(language); ok {
		whiteboard := "lang=" + lang
		set.Bugs = []BugSearch{
			{Name: "good-first:" + lang, Keywords: []string{b.keyword}, Whiteboard: whiteboard, Statuses: b.statuses},
			{Name: "mentored:" + lang, Mentored: true, Whiteboard: whiteboard, Statuses: b.statuses},
		}
	}
	return set
}

func (b *Builder) tagSet(tag string) Set {
	var set Set

	all := b.AllRepositories()
	if len(all) > 0 {
		names := make([]string, 0, len(all))
		for _, repo := range all {
			names = append(names, repo.Name)
		}
		set.Issues = []IssueSearch{{Label: tag, Repos: names}}
	}

	search := BugSearch{Name: tag, Statuses: b.statuses}
	if tag == b.keyword {
		search.Keywords = []string{tag}
	} else {
		search.Whiteboard = "[" + tag + "]"
	}
	set.Bugs = []BugSearch{search}
	return set
}

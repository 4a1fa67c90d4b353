// Package github searches GitHub issues and repositories through the REST
// search API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v55/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources"
)

// reposPerSearch bounds the repo: clauses in one repository search so the
// query stays under GitHub's search length limit.
const reposPerSearch = 20

// Client searches the GitHub API.
type Client struct {
	gh       *github.Client
	pageSize int
	log      zerolog.Logger
}

var _ aggregate.Fetcher[query.IssueSearch, task.Issue] = (*Client)(nil)

// New creates a client. An empty token sends anonymous requests, which the
// search API serves under a much lower rate limit.
func New(cfg config.GitHubConfig, timeout time.Duration, log zerolog.Logger) *Client {
	httpClient := &http.Client{Timeout: timeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	gh := github.NewClient(httpClient)
	gh.UserAgent = "codetribute"
	if base, err := baseURL(cfg.Endpoint); err == nil {
		gh.BaseURL = base
	} else {
		log.Warn().Err(err).Str("endpoint", cfg.Endpoint).Msg("github: invalid endpoint, using api.github.com")
	}

	return &Client{
		gh:       gh,
		pageSize: cfg.PageSize,
		log:      log,
	}
}

// baseURL parses endpoint as an API root. go-github requires the trailing
// slash.
func baseURL(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		return nil, errors.New("empty endpoint")
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return url.Parse(endpoint)
}

// Fetch returns one page of open issues matching q. The cursor token is the
// next page number; an empty token means the first page.
func (c *Client) Fetch(ctx context.Context, q query.IssueSearch, cursor aggregate.Cursor) (aggregate.Page[task.Issue], error) {
	page, err := pageNumber(cursor.Token)
	if err != nil {
		return aggregate.Page[task.Issue]{}, c.transportErr("search issues", nil, err)
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{Page: page, PerPage: c.pageSize}}
	result, resp, err := c.gh.Search.Issues(ctx, q.String(), opts)
	if err != nil {
		return aggregate.Page[task.Issue]{}, c.transportErr("search issues", resp, err)
	}

	issues := make([]task.Issue, 0, len(result.Issues))
	for _, is := range result.Issues {
		if is.IsPullRequest() {
			continue
		}
		issue := task.Issue{
			Title:      is.GetTitle(),
			URL:        is.GetHTMLURL(),
			Body:       is.GetBody(),
			Repository: path.Base(is.GetRepositoryURL()),
			UpdatedAt:  is.GetUpdatedAt().Time,
		}
		for _, l := range is.Labels {
			issue.Labels = append(issue.Labels, l.GetName())
		}
		for _, a := range is.Assignees {
			issue.Assignees = append(issue.Assignees, a.GetLogin())
		}
		if len(issue.Assignees) == 0 && is.Assignee != nil {
			issue.Assignees = []string{is.Assignee.GetLogin()}
		}
		issues = append(issues, issue)
	}

	return aggregate.Page[task.Issue]{
		Records: issues,
		Cursor:  nextCursor(resp),
	}, nil
}

// ReposByLanguage returns the repositories in repos whose primary language
// is language.
func (c *Client) ReposByLanguage(ctx context.Context, language string, repos []string) ([]string, error) {
	var out []string
	for start := 0; start < len(repos); start += reposPerSearch {
		chunk := repos[start:min(start+reposPerSearch, len(repos))]

		clauses := make([]string, 0, len(chunk)+1)
		clauses = append(clauses, "language:"+quoteIfSpaced(language))
		for _, r := range chunk {
			clauses = append(clauses, "repo:"+r)
		}
		searchQuery := strings.Join(clauses, " ")

		opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: c.pageSize}}
		for {
			result, resp, err := c.gh.Search.Repositories(ctx, searchQuery, opts)
			if err != nil {
				return out, c.transportErr("search repositories", resp, err)
			}
			for _, r := range result.Repositories {
				if name := r.GetFullName(); name != "" {
					out = append(out, name)
				}
			}

			if resp == nil || resp.NextPage == 0 || resp.NextPage == opts.Page {
				break
			}
			opts.Page = resp.NextPage
		}
	}

	c.log.Debug().Str("language", language).Int("matched", len(out)).Int("repos", len(repos)).Msg("resolved repository languages")
	return out, nil
}

func pageNumber(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page cursor %q", token)
	}
	return n, nil
}

func nextCursor(resp *github.Response) aggregate.Cursor {
	if resp == nil || resp.NextPage == 0 {
		return aggregate.Cursor{}
	}
	return aggregate.Cursor{Token: strconv.Itoa(resp.NextPage), HasNextPage: true}
}

func (c *Client) transportErr(op string, resp *github.Response, err error) error {
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return &sources.TransportError{Source: task.SourceGitHub, Op: op, StatusCode: status, Err: err}
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// Package bugzilla searches bugs over the Bugzilla REST API.
package bugzilla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources"
)

const (
	order         = "changeddate DESC"
	includeFields = "id,summary,component,assigned_to,assigned_to_detail,keywords,whiteboard,last_change_time"
)

// Client talks to a Bugzilla REST endpoint.
type Client struct {
	endpoint string
	pageSize int
	http     *http.Client
	log      zerolog.Logger
}

var _ aggregate.Fetcher[query.BugSearch, task.Bug] = (*Client)(nil)

// New creates a client.
func New(cfg config.BugzillaConfig, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		pageSize: cfg.PageSize,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

type bugsResponse struct {
	Bugs []bugJSON `json:"bugs"`
}

type bugJSON struct {
	ID               int       `json:"id"`
	Summary          string    `json:"summary"`
	Component        string    `json:"component"`
	AssignedTo       string    `json:"assigned_to"`
	AssignedToDetail *struct {
		Name     string `json:"name"`
		RealName string `json:"real_name"`
	} `json:"assigned_to_detail"`
	Keywords       []string  `json:"keywords"`
	Whiteboard     string    `json:"whiteboard"`
	LastChangeTime time.Time `json:"last_change_time"`
}

type commentsResponse struct {
	Bugs map[string]struct {
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
	} `json:"bugs"`
}

type apiError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Fetch returns one page of bugs matching q. The cursor token is the
// result offset of the page to fetch.
func (c *Client) Fetch(ctx context.Context, q query.BugSearch, cursor aggregate.Cursor) (aggregate.Page[task.Bug], error) {
	offset := 0
	if cursor.Token != "" {
		n, err := strconv.Atoi(cursor.Token)
		if err != nil || n < 0 {
			return aggregate.Page[task.Bug]{}, fmt.Errorf("bugzilla: invalid cursor %q", cursor.Token)
		}
		offset = n
	}

	var resp bugsResponse
	if err := c.get(ctx, "search bugs", "/bug", searchParams(q, c.pageSize, offset), &resp); err != nil {
		return aggregate.Page[task.Bug]{}, err
	}

	bugs := make([]task.Bug, 0, len(resp.Bugs))
	for _, b := range resp.Bugs {
		bug := task.Bug{
			ID:          b.ID,
			Summary:     b.Summary,
			Component:   b.Component,
			AssignedTo:  task.Person{Name: b.AssignedTo},
			Keywords:    b.Keywords,
			Whiteboard:  b.Whiteboard,
			LastChanged: b.LastChangeTime,
		}
		if b.AssignedToDetail != nil {
			bug.AssignedTo.RealName = b.AssignedToDetail.RealName
			if bug.AssignedTo.Name == "" {
				bug.AssignedTo.Name = b.AssignedToDetail.Name
			}
		}
		bugs = append(bugs, bug)
	}

	// Bugzilla reports no total; a full page means there may be more.
	next := offset + len(resp.Bugs)
	return aggregate.Page[task.Bug]{
		Records: bugs,
		Cursor: aggregate.Cursor{
			Token:       strconv.Itoa(next),
			HasNextPage: len(resp.Bugs) > 0 && len(resp.Bugs) >= c.pageSize,
		},
	}, nil
}

// FirstComment returns the text of the bug's opening comment, which
// Bugzilla uses as the description.
func (c *Client) FirstComment(ctx context.Context, id int) (string, error) {
	var resp commentsResponse
	path := "/bug/" + strconv.Itoa(id) + "/comment"
	if err := c.get(ctx, "load comments", path, url.Values{"include_fields": {"text"}}, &resp); err != nil {
		return "", err
	}

	bug, ok := resp.Bugs[strconv.Itoa(id)]
	if !ok || len(bug.Comments) == 0 {
		return "", nil
	}
	return bug.Comments[0].Text, nil
}

func searchParams(q query.BugSearch, limit, offset int) url.Values {
	v := url.Values{}
	for _, p := range q.Products {
		v.Add("product", p)
	}
	for _, comp := range q.Components {
		v.Add("component", comp)
	}
	if len(q.Keywords) > 0 {
		v.Set("keywords", strings.Join(q.Keywords, ","))
		v.Set("keywords_type", "allwords")
	}
	for _, s := range q.Statuses {
		v.Add("status", s)
	}
	if q.Whiteboard != "" {
		v.Set("status_whiteboard", q.Whiteboard)
		v.Set("status_whiteboard_type", "substring")
	}
	if q.Mentored {
		v.Set("f1", "bug_mentor")
		v.Set("o1", "isnotempty")
	}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	v.Set("order", order)
	v.Set("include_fields", includeFields)
	return v
}

func (c *Client) get(ctx context.Context, op, path string, params url.Values, dest any) error {
	u := c.endpoint + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return c.transportErr(op, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "codetribute")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportErr(op, 0, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("bugzilla: close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportErr(op, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return c.transportErr(op, resp.StatusCode, fmt.Errorf("code %d: %s", apiErr.Code, apiErr.Message))
		}
		return c.transportErr(op, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return c.transportErr(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

func (c *Client) transportErr(op string, status int, err error) error {
	return &sources.TransportError{Source: task.SourceBugzilla, Op: op, StatusCode: status, Err: err}
}

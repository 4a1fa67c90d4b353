package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Issue is a GitHub issue as returned by the search API.
type Issue struct {
	Title      string
	URL        string
	Body       string
	Repository string // short repository name
	UpdatedAt  time.Time
	Labels     []string
	Assignees  []string // logins, in API order
}

// Bug is a Bugzilla bug as returned by the search API.
type Bug struct {
	ID          int
	Summary     string
	Component   string
	AssignedTo  Person
	Keywords    []string
	Whiteboard  string
	LastChanged time.Time
}

// Person identifies a Bugzilla account.
type Person struct {
	Name     string // login, usually an email address
	RealName string
}

// MalformedRecordError reports a raw record missing required fields.
// It only ever affects the single record; callers skip it and continue.
type MalformedRecordError struct {
	Source Source
	Field  string
	Record string
}

func (e *MalformedRecordError) Error() string {
	if e.Record == "" {
		return fmt.Sprintf("%s record missing %s", e.Source, e.Field)
	}
	return fmt.Sprintf("%s record %s missing %s", e.Source, e.Record, e.Field)
}

// Normalizer maps raw source records into Tasks.
type Normalizer struct {
	bugURL      string
	placeholder []string
}

// NewNormalizer creates a normalizer. bugURL is the prefix the numeric bug id
// is appended to; placeholders lists the account suffixes (or glob patterns)
// that mean "nobody".
func NewNormalizer(bugURL string, placeholders []string) *Normalizer {
	return &Normalizer{bugURL: bugURL, placeholder: placeholders}
}

// Normalize dispatches on kind. raw must be an Issue for GitHub and a Bug
// for Bugzilla.
func (n *Normalizer) Normalize(kind Source, raw any) (Task, error) {
	switch kind {
	case SourceGitHub:
		issue, ok := raw.(Issue)
		if !ok {
			return Task{}, fmt.Errorf("normalize %s: unexpected record type %T", kind, raw)
		}
		return n.NormalizeIssue(issue)
	case SourceBugzilla:
		bug, ok := raw.(Bug)
		if !ok {
			return Task{}, fmt.Errorf("normalize %s: unexpected record type %T", kind, raw)
		}
		return n.NormalizeBug(bug)
	default:
		return Task{}, fmt.Errorf("normalize: unknown source %q", kind)
	}
}

// NormalizeIssue converts a GitHub issue.
func (n *Normalizer) NormalizeIssue(issue Issue) (Task, error) {
	if issue.Title == "" {
		return Task{}, &MalformedRecordError{Source: SourceGitHub, Field: "title", Record: issue.URL}
	}
	if issue.URL == "" {
		return Task{}, &MalformedRecordError{Source: SourceGitHub, Field: "url", Record: issue.Title}
	}

	assignee := Unassigned
	if len(issue.Assignees) > 0 && issue.Assignees[0] != "" {
		assignee = issue.Assignees[0]
	}

	return Task{
		Project:     issue.Repository,
		Summary:     Summary{Title: issue.Title, URL: issue.URL},
		Tags:        NormalizeTags(issue.Labels),
		Assignee:    assignee,
		LastUpdated: issue.UpdatedAt,
		Description: issue.Body,
		Source:      SourceGitHub,
	}, nil
}

// NormalizeBug converts a Bugzilla bug.
func (n *Normalizer) NormalizeBug(bug Bug) (Task, error) {
	if bug.ID <= 0 {
		return Task{}, &MalformedRecordError{Source: SourceBugzilla, Field: "id", Record: bug.Summary}
	}
	if bug.Summary == "" {
		return Task{}, &MalformedRecordError{Source: SourceBugzilla, Field: "summary", Record: strconv.Itoa(bug.ID)}
	}

	return Task{
		Project:     bug.Component,
		Summary:     Summary{Title: bug.Summary, URL: n.bugURL + strconv.Itoa(bug.ID)},
		Tags:        NormalizeTags(bug.Keywords, ExtractWhiteboardTags(bug.Whiteboard)),
		Assignee:    n.assignee(bug.AssignedTo),
		LastUpdated: bug.LastChanged,
		SourceID:    bug.ID,
		Source:      SourceBugzilla,
	}, nil
}

func (n *Normalizer) assignee(p Person) string {
	if p.Name == "" || n.IsPlaceholder(p.Name) {
		return Unassigned
	}
	if p.RealName != "" {
		return p.RealName
	}
	return p.Name
}

// IsPlaceholder reports whether account is a bot or "nobody" account.
// Plain entries match as suffixes; entries with glob syntax match the whole
// account name.
func (n *Normalizer) IsPlaceholder(account string) bool {
	account = strings.ToLower(account)
	for _, entry := range n.placeholder {
		entry = strings.ToLower(entry)
		if strings.ContainsAny(entry, "*?[{") {
			if ok, err := doublestar.Match(entry, account); err == nil && ok {
				return true
			}
			continue
		}
		if strings.HasSuffix(account, entry) {
			return true
		}
	}
	return false
}

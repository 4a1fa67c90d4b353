// Package query derives source-specific search requests from the static
// project table and the active browsing scope.
package query

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is what a browsing scope is keyed on.
type Kind string

const (
	KindProject  Kind = "project"
	KindLanguage Kind = "language"
	KindTag      Kind = "tag"
)

// Scope is the active browsing context.
type Scope struct {
	Kind  Kind
	Value string
}

func Project(key string) Scope   { return Scope{Kind: KindProject, Value: key} }
func Language(name string) Scope { return Scope{Kind: KindLanguage, Value: name} }
func Tag(name string) Scope      { return Scope{Kind: KindTag, Value: name} }

func (s Scope) String() string {
	return string(s.Kind) + ":" + s.Value
}

// IsZero reports whether no scope has been selected.
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.Value == ""
}

// Validate reports malformed scopes.
func (s Scope) Validate() error {
	switch s.Kind {
	case KindProject, KindLanguage, KindTag:
	default:
		return fmt.Errorf("unknown scope kind %q", s.Kind)
	}
	if strings.TrimSpace(s.Value) == "" {
		return fmt.Errorf("%s scope requires a value", s.Kind)
	}
	return nil
}

// IssueSearch is one GitHub issue search covering every repository that
// shares a label.
type IssueSearch struct {
	Label string
	Repos []string
}

// String renders the GitHub search syntax for the query.
func (q IssueSearch) String() string {
	parts := make([]string, 0, len(q.Repos)+2)
	for _, repo := range q.Repos {
		parts = append(parts, "repo:"+repo)
	}
	parts = append(parts, fmt.Sprintf("label:%q", q.Label), "state:open")
	return strings.Join(parts, " ")
}

// BugSearch is one Bugzilla search.
type BugSearch struct {
	Name       string // label used in logs and errors
	Products   []string
	Components []string
	Keywords   []string
	Whiteboard string // substring match on the status whiteboard
	Mentored   bool   // only bugs with a mentor
	Statuses   []string
}

// Key returns a canonical representation used for caching.
func (q BugSearch) Key() string {
	var b strings.Builder
	write := func(k string, vs []string) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(vs, ","))
		b.WriteByte(';')
	}
	write("p", q.Products)
	write("c", q.Components)
	write("k", q.Keywords)
	write("s", q.Statuses)
	write("w", []string{q.Whiteboard})
	if q.Mentored {
		b.WriteString("m;")
	}
	return b.String()
}

// Set is every query needed to cover a scope.
type Set struct {
	Issues []IssueSearch
	Bugs   []BugSearch
}

// Empty reports whether neither source has anything to fetch.
func (s Set) Empty() bool {
	return len(s.Issues) == 0 && len(s.Bugs) == 0
}

func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

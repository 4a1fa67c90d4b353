// Package task defines the canonical task record shared by every source,
// along with the normalization rules that map raw upstream records into it.
package task

import (
	"slices"
	"time"
)

// Unassigned is the assignee sentinel for tasks nobody has picked up.
const Unassigned = "-"

// Source identifies the upstream a task came from.
type Source string

const (
	SourceGitHub   Source = "github"
	SourceBugzilla Source = "bugzilla"
)

// Priority returns the merge priority of the source. Lower merges first.
func (s Source) Priority() int {
	switch s {
	case SourceGitHub:
		return 0
	case SourceBugzilla:
		return 1
	default:
		return 2
	}
}

// Summary is the title/link pair of a task. Title is the dedup key.
type Summary struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Task is one open issue or bug suitable for a first contribution.
type Task struct {
	Project     string    `json:"project"`
	Summary     Summary   `json:"summary"`
	Tags        []string  `json:"tags"`
	Assignee    string    `json:"assignee"`
	LastUpdated time.Time `json:"lastUpdated"`
	Description string    `json:"description,omitempty"`
	SourceID    int       `json:"sourceId,omitempty"`
	Source      Source    `json:"source"`
}

// IsAssigned reports whether somebody owns the task.
func (t Task) IsAssigned() bool {
	return t.Assignee != Unassigned
}

// HasTag reports whether the task carries tag.
func (t Task) HasTag(tag string) bool {
	_, found := slices.BinarySearch(t.Tags, tag)
	return found
}

// NormalizeTags returns a sorted, deduplicated, non-nil copy of tags with
// empty entries removed.
func NormalizeTags(tags ...[]string) []string {
	out := []string{}
	for _, group := range tags {
		for _, tag := range group {
			if tag != "" {
				out = append(out, tag)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

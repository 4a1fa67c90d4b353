package view

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/natural"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
)

// Derive filters and sorts tasks according to c. It never modifies tasks
// and returns a new slice. Filters apply in order: assignee, tag, project.
// The sort is stable, so tasks with equal keys keep their merge order.
func Derive(tasks []task.Task, c Criteria) []task.Task {
	c = c.Normalize()

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		switch c.Assignee {
		case AssigneeAssigned:
			if !t.IsAssigned() {
				continue
			}
		case AssigneeUnassigned:
			if t.IsAssigned() {
				continue
			}
		}
		if c.Tag != "" && !t.HasTag(c.Tag) {
			continue
		}
		if c.Project != "" && t.Project != c.Project {
			continue
		}
		out = append(out, t)
	}

	slices.SortStableFunc(out, func(a, b task.Task) int {
		return compareTasks(a, b, c.SortBy, c.SortDirection)
	})
	return out
}

// compareTasks orders by field in direction dir. Tasks missing the field
// sort after every task that has it, whatever the direction.
func compareTasks(a, b task.Task, field SortField, dir Direction) int {
	var (
		c                int
		absentA, absentB bool
	)

	if field == SortLastUpdated {
		absentA, absentB = a.LastUpdated.IsZero(), b.LastUpdated.IsZero()
		c = a.LastUpdated.Compare(b.LastUpdated)
	} else {
		ka, kb := textKey(a, field), textKey(b, field)
		absentA, absentB = ka == "", kb == ""
		c = compareText(ka, kb)
	}

	switch {
	case absentA && absentB:
		return 0
	case absentA:
		return 1
	case absentB:
		return -1
	}

	if dir == Desc {
		return -c
	}
	return c
}

func textKey(t task.Task, field SortField) string {
	switch field {
	case SortProject:
		return t.Project
	case SortSummary:
		return t.Summary.Title
	case SortTags:
		return strings.Join(t.Tags, " ")
	case SortAssignee:
		return t.Assignee
	default:
		return ""
	}
}

// compareText compares case-insensitively with natural ordering of digit
// runs, so "Bug 9" sorts before "Bug 10".
func compareText(a, b string) int {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	switch {
	case la == lb:
		return 0
	case natural.Less(la, lb):
		return -1
	default:
		return 1
	}
}

// Projects returns the distinct project names in tasks, naturally sorted.
func Projects(tasks []task.Task) []string {
	return distinct(tasks, func(t task.Task) []string { return []string{t.Project} })
}

// Tags returns the distinct tags in tasks, naturally sorted.
func Tags(tasks []task.Task) []string {
	return distinct(tasks, func(t task.Task) []string { return t.Tags })
}

func distinct(tasks []task.Task, values func(task.Task) []string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range tasks {
		for _, v := range values(t) {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compareText)
	return out
}

// Since formats the age of t relative to now, e.g. "3 days ago".
func Since(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "month") + " ago"
	default:
		return plural(int(d/(365*24*time.Hour)), "year") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

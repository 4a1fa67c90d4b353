package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func mk(title, project, assignee string, updated time.Time, tags ...string) task.Task {
	return task.Task{
		Project:     project,
		Summary:     task.Summary{Title: title, URL: "https://example.com/" + title},
		Tags:        task.NormalizeTags(tags),
		Assignee:    assignee,
		LastUpdated: updated,
	}
}

func summaries(tasks []task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Summary.Title)
	}
	return out
}

func TestDecode_Defaults(t *testing.T) {
	for _, raw := range []string{"", "?", "sortBy=Bogus&sortDirection=up&assignee=maybe", "%zz"} {
		assert.Equal(t, DefaultCriteria(), Decode(raw), "input %q", raw)
	}
}

func TestDecode(t *testing.T) {
	c := Decode("?sortBy=Summary&sortDirection=asc&tag=good-first-bug&assignee=Unassigned&project=devtools")
	assert.Equal(t, Criteria{
		SortBy:        SortSummary,
		SortDirection: Asc,
		Tag:           "good-first-bug",
		Assignee:      AssigneeUnassigned,
		Project:       "devtools",
	}, c)

	assert.Empty(t, Decode("project=All").Project)
}

func TestEncode_OmitsDefaults(t *testing.T) {
	assert.Empty(t, Encode(DefaultCriteria()))
	assert.Empty(t, Encode(Criteria{}), "zero criteria normalizes to defaults")
	assert.Equal(t, "assignee=Assigned", Encode(Criteria{SortBy: SortLastUpdated, SortDirection: Desc, Assignee: AssigneeAssigned}))
	assert.Equal(t, "sortDirection=asc", Encode(DefaultCriteria().ToggleSort(SortLastUpdated)))
	assert.Equal(t, "sortBy=Summary", Encode(DefaultCriteria().ToggleSort(SortSummary)))
}

func TestCodec_RoundTrip(t *testing.T) {
	var all []Criteria
	for _, sortBy := range SortFields {
		for _, dir := range []Direction{Asc, Desc} {
			for _, assignee := range AssigneeFilters {
				for _, tag := range []string{"", "good-first-bug", "lang=js", "a b&c"} {
					for _, project := range []string{"", "Toolbars", "org/foo"} {
						all = append(all, Criteria{SortBy: sortBy, SortDirection: dir, Tag: tag, Assignee: assignee, Project: project})
					}
				}
			}
		}
	}

	for _, c := range all {
		require.Equal(t, c, Decode(Encode(c)), "criteria %+v", c)
	}
}

func TestToggleSort(t *testing.T) {
	c := DefaultCriteria()

	c = c.ToggleSort(SortLastUpdated)
	assert.Equal(t, Asc, c.SortDirection)
	c = c.ToggleSort(SortLastUpdated)
	assert.Equal(t, Desc, c.SortDirection)

	c = c.ToggleSort(SortSummary)
	assert.Equal(t, SortSummary, c.SortBy)
	assert.Equal(t, Desc, c.SortDirection, "new column starts descending")

	assert.Equal(t, c, c.ToggleSort(SortTags), "tags is not sortable from the header")
}

func TestToggleTagAndAssignee(t *testing.T) {
	c := DefaultCriteria().ToggleTag("easy")
	assert.Equal(t, "easy", c.Tag)
	assert.Empty(t, c.ToggleTag("easy").Tag)
	assert.Equal(t, "other", c.ToggleTag("other").Tag)

	c = DefaultCriteria()
	c = c.NextAssignee()
	assert.Equal(t, AssigneeUnassigned, c.Assignee)
	c = c.NextAssignee().NextAssignee()
	assert.Equal(t, AssigneeAny, c.Assignee)
}

func TestDerive_AssignedNewestFirst(t *testing.T) {
	tasks := []task.Task{
		mk("Old", "p", "alice", base.Add(-48*time.Hour)),
		mk("Newest", "p", "bob", base),
		mk("Open", "p", task.Unassigned, base.Add(time.Hour)),
		mk("Middle", "p", "carol", base.Add(-24*time.Hour)),
	}

	c := Criteria{SortBy: SortLastUpdated, SortDirection: Desc, Assignee: AssigneeAssigned}
	assert.Equal(t, []string{"Newest", "Middle", "Old"}, summaries(Derive(tasks, c)))
}

func TestDerive_Unassigned(t *testing.T) {
	tasks := []task.Task{
		mk("A", "p", task.Unassigned, base),
		mk("B", "p", "bob", base),
		mk("C", "p", task.Unassigned, base),
	}

	got := Derive(tasks, Criteria{Assignee: AssigneeUnassigned})
	assert.Equal(t, []string{"A", "C"}, summaries(got))
	for _, tk := range got {
		assert.Equal(t, task.Unassigned, tk.Assignee)
	}
}

func TestDerive_FiltersTagThenProject(t *testing.T) {
	tasks := []task.Task{
		mk("A", "devtools", "-", base, "good-first-bug"),
		mk("B", "devtools", "-", base, "easy"),
		mk("C", "servo", "-", base, "good-first-bug", "easy"),
	}

	c := DefaultCriteria()
	c.Tag = "good-first-bug"
	assert.ElementsMatch(t, []string{"A", "C"}, summaries(Derive(tasks, c)))

	c.Project = "servo"
	assert.Equal(t, []string{"C"}, summaries(Derive(tasks, c)))

	c.Project = AllProjects
	assert.Len(t, Derive(tasks, c), 2, "All means no project filter")
}

func TestDerive_NaturalCaseInsensitiveOrder(t *testing.T) {
	tasks := []task.Task{
		mk("bug 10", "p", "-", base),
		mk("Bug 9", "p", "-", base),
		mk("apple", "p", "-", base),
		mk("Zebra", "p", "-", base),
	}

	c := Criteria{SortBy: SortSummary, SortDirection: Asc}
	assert.Equal(t, []string{"apple", "Bug 9", "bug 10", "Zebra"}, summaries(Derive(tasks, c)))

	c.SortDirection = Desc
	assert.Equal(t, []string{"Zebra", "bug 10", "Bug 9", "apple"}, summaries(Derive(tasks, c)))
}

func TestDerive_AbsentValuesLast(t *testing.T) {
	tasks := []task.Task{
		mk("NoProject", "", "-", time.Time{}),
		mk("B", "beta", "-", base),
		mk("A", "alpha", "-", base.Add(time.Hour)),
	}

	for _, dir := range []Direction{Asc, Desc} {
		got := summaries(Derive(tasks, Criteria{SortBy: SortProject, SortDirection: dir}))
		assert.Equal(t, "NoProject", got[2], "direction %s", dir)

		got = summaries(Derive(tasks, Criteria{SortBy: SortLastUpdated, SortDirection: dir}))
		assert.Equal(t, "NoProject", got[2], "direction %s", dir)
	}
}

func TestDerive_StableAndPure(t *testing.T) {
	tasks := []task.Task{
		mk("First", "same", "-", base),
		mk("Second", "same", "-", base),
		mk("Third", "same", "-", base),
	}
	input := append([]task.Task(nil), tasks...)

	c := Criteria{SortBy: SortProject, SortDirection: Asc}
	first := Derive(tasks, c)
	assert.Equal(t, []string{"First", "Second", "Third"}, summaries(first))
	assert.Equal(t, first, Derive(tasks, c))
	assert.Equal(t, input, tasks, "input is not modified")
}

func TestEngine_Memoizes(t *testing.T) {
	e := NewEngine()
	tasks := []task.Task{
		mk("B", "beta", "-", base, "easy"),
		mk("A", "alpha", "bob", base.Add(time.Hour), "good-first-bug"),
	}
	c := DefaultCriteria()

	first := e.Derive(tasks, c)
	copied := append([]task.Task(nil), tasks...)
	second := e.Derive(copied, c)

	assert.Equal(t, first, second)
	assert.Equal(t, Derive(tasks, c), first)
	assert.Equal(t, 1, e.views.Len(), "equal content shares one entry")

	e.Derive(tasks, DefaultCriteria().ToggleSort(SortSummary))
	assert.Equal(t, 2, e.views.Len())

	copied[0].Assignee = "carol"
	e.Derive(copied, c)
	assert.Equal(t, 3, e.views.Len(), "content change misses the memo")
}

func TestEngine_SourceIsPartOfTheKey(t *testing.T) {
	e := NewEngine()
	fromGitHub := []task.Task{mk("A", "p", "-", base)}
	fromGitHub[0].Source = task.SourceGitHub
	fromBugzilla := []task.Task{mk("A", "p", "-", base)}
	fromBugzilla[0].Source = task.SourceBugzilla

	e.Derive(fromGitHub, DefaultCriteria())
	got := e.Derive(fromBugzilla, DefaultCriteria())

	require.Len(t, got, 1)
	assert.Equal(t, task.SourceBugzilla, got[0].Source)
	assert.Equal(t, 2, e.views.Len())
}

func TestEngine_SelectorOptions(t *testing.T) {
	e := NewEngine()
	tasks := []task.Task{
		mk("A", "servo", "-", base, "easy", "lang=rust"),
		mk("B", "devtools", "-", base, "easy"),
		mk("C", "servo", "-", base),
	}

	assert.Equal(t, []string{"devtools", "servo"}, e.Projects(tasks))
	assert.Equal(t, []string{"easy", "lang=rust"}, e.Tags(tasks))
	assert.Equal(t, 1, e.options.Len())

	e.Reset()
	assert.Zero(t, e.options.Len())
}

func TestFingerprint_TimeSensitive(t *testing.T) {
	a := []task.Task{mk("A", "p", "-", base)}
	b := []task.Task{mk("A", "p", "-", base.Add(time.Second))}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestHelperText(t *testing.T) {
	now := base

	tests := []struct {
		name string
		task task.Task
		want string
	}{
		{
			name: "fresh unassigned",
			task: mk("A", "p", task.Unassigned, now.AddDate(0, 0, -10)),
			want: "The task is assigned to nobody. Ask in the comments to have it assigned to you.",
		},
		{
			name: "stale unassigned",
			task: mk("A", "p", task.Unassigned, now.AddDate(0, 0, -120)),
			want: "The task is assigned to nobody but a few months have passed. Ask in the comments if this task is still relevant to tackle and whether you could have it assigned to you.",
		},
		{
			name: "stale assigned",
			task: mk("A", "p", "alice", now.AddDate(0, 0, -45)),
			want: "The task is assigned but has not been touched for over a month. Ask in the comments if you can have it assigned to you.",
		},
		{
			name: "recently assigned",
			task: mk("A", "p", "alice", now.AddDate(0, 0, -3)),
			want: "This was recently assigned to alice.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HelperText(tt.task, now))
		})
	}
}

func TestPickRandom(t *testing.T) {
	_, ok := PickRandom(nil, nil)
	assert.False(t, ok)

	tasks := []task.Task{
		mk("Taken", "p", "bob", base),
		mk("Open 1", "p", task.Unassigned, base),
		mk("Open 2", "p", task.Unassigned, base),
	}
	got, ok := PickRandom(tasks, func(n int) int {
		assert.Equal(t, 2, n, "only unassigned tasks are candidates")
		return 1
	})
	require.True(t, ok)
	assert.Equal(t, "Open 2", got.Summary.Title)

	got, ok = PickRandom(tasks[:1], func(int) int { return 0 })
	require.True(t, ok)
	assert.Equal(t, "Taken", got.Summary.Title)

	_, ok = PickRandom(tasks, nil)
	assert.True(t, ok)
}

func TestSince(t *testing.T) {
	assert.Equal(t, "-", Since(time.Time{}, base))
	assert.Equal(t, "just now", Since(base, base))
	assert.Equal(t, "1 hour ago", Since(base.Add(-time.Hour), base))
	assert.Equal(t, "3 days ago", Since(base.Add(-72*time.Hour), base))
	assert.Equal(t, "2 years ago", Since(base.AddDate(-2, 0, -1), base))
}

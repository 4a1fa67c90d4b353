package tui

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
	"github.com/mozilla-frontend-infra/codetribute/pkg/tuitest"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeSession struct {
	mu       sync.Mutex
	scope    query.Scope
	pages    [][]task.Task
	loaded   []task.Task
	next     int
	loadErr  error
	reloads  int
	describe map[string]string
}

func (f *fakeSession) SetScope(scope query.Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scope = scope
	f.loaded, f.next = nil, 0
}

func (f *fakeSession) Scope() query.Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scope
}

func (f *fakeSession) LoadNextPage(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	if f.next < len(f.pages) {
		f.loaded = append(f.loaded, f.pages[f.next]...)
		f.next++
	}
	return nil
}

func (f *fakeSession) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	f.loaded, f.next = nil, 0
	return nil
}

func (f *fakeSession) Description(_ context.Context, t task.Task) (string, error) {
	text, ok := f.describe[t.Summary.Title]
	if !ok {
		return "", errors.New("no description")
	}
	return text, nil
}

func (f *fakeSession) Snapshot() aggregate.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return aggregate.Snapshot{
		Scope:       f.scope,
		Tasks:       slices.Clone(f.loaded),
		HasNextPage: f.next < len(f.pages),
		Errors:      map[task.Source]error{},
	}
}

func mk(title, project, assignee string, age time.Duration, tags ...string) task.Task {
	return task.Task{
		Project:     project,
		Summary:     task.Summary{Title: title, URL: "https://example.com/" + title},
		Tags:        task.NormalizeTags(tags),
		Assignee:    assignee,
		LastUpdated: now.Add(-age),
		Source:      task.SourceGitHub,
	}
}

func newTestModel(t *testing.T, session *fakeSession) Model {
	t.Helper()
	m := New(session, view.NewEngine(), Options{
		Scope:    query.Project("devtools"),
		Criteria: view.DefaultCriteria(),
		Now:      func() time.Time { return now },
	})
	m = update(t, m, tuitest.WindowSize(120, 30))
	return update(t, m, m.loadNextPage()())
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tuitest.KeyEnter()
	case "esc":
		msg = tuitest.KeyEsc()
	default:
		msg = tuitest.KeyPress([]rune(k)[0])
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func titles(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Summary.Title
	}
	return out
}

func twoPages() *fakeSession {
	return &fakeSession{
		pages: [][]task.Task{
			{
				mk("Newest", "devtools", task.Unassigned, time.Hour, "good-first-bug"),
				mk("Older", "servo", "alice", 48*time.Hour, "easy"),
			},
			{
				mk("Later page", "devtools", task.Unassigned, 2*time.Hour, "easy", "lang=js"),
			},
		},
		describe: map[string]string{"Newest": "Steps to **reproduce**"},
	}
}

func TestNew_ScopesSessionAndLoadsFirstPage(t *testing.T) {
	session := twoPages()
	m := newTestModel(t, session)

	assert.Equal(t, query.Project("devtools"), session.Scope())
	assert.False(t, m.loading)
	assert.True(t, m.hasNext)
	assert.Equal(t, []string{"Newest", "Older"}, titles(m.Rows()))
	assert.Contains(t, tuitest.StripANSI(m.View()), "2 of 2 tasks")
}

func TestNextPage(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, cmd := press(t, m, "n")
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	m, cmd = press(t, m, "n")
	assert.Nil(t, cmd, "no second load while one is running")

	m = update(t, m, m.loadNextPage()())
	assert.Equal(t, []string{"Newest", "Later page", "Older"}, titles(m.Rows()))
	assert.False(t, m.hasNext)

	_, cmd = press(t, m, "n")
	assert.Nil(t, cmd, "exhausted sessions do not load")
}

func TestAssigneeFilterCycles(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, _ = press(t, m, "a")
	assert.Equal(t, view.AssigneeUnassigned, m.Criteria().Assignee)
	assert.Equal(t, []string{"Newest"}, titles(m.Rows()))

	m, _ = press(t, m, "a")
	assert.Equal(t, []string{"Older"}, titles(m.Rows()))

	m, _ = press(t, m, "a")
	assert.Equal(t, view.AssigneeAny, m.Criteria().Assignee)
	assert.Len(t, m.Rows(), 2)
}

func TestSortKeys(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, _ = press(t, m, "s")
	assert.Equal(t, view.SortProject, m.Criteria().SortBy, "wraps to the first column")
	assert.Equal(t, view.Desc, m.Criteria().SortDirection)
	assert.Equal(t, []string{"Older", "Newest"}, titles(m.Rows()))

	m, _ = press(t, m, "S")
	assert.Equal(t, view.Asc, m.Criteria().SortDirection)
	assert.Equal(t, []string{"Newest", "Older"}, titles(m.Rows()))
	assert.Contains(t, tuitest.StripANSI(m.View()), "sortBy=Project")
}

func TestTagAndProjectFilters(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, _ = press(t, m, "t")
	assert.Equal(t, "easy", m.Criteria().Tag)
	assert.Equal(t, []string{"Older"}, titles(m.Rows()))

	m, _ = press(t, m, "t")
	assert.Equal(t, "good-first-bug", m.Criteria().Tag)
	m, _ = press(t, m, "t")
	assert.Empty(t, m.Criteria().Tag, "cycling past the last tag clears the filter")

	m, _ = press(t, m, "p")
	assert.Equal(t, "devtools", m.Criteria().Project)
	assert.Equal(t, []string{"Newest"}, titles(m.Rows()))
}

func TestDetailLoadsDescription(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, stateDetail, m.state)
	assert.Equal(t, "Newest", m.detail.Summary.Title)
	assert.True(t, m.describe)

	m = update(t, m, m.loadDescription(m.detail)())
	assert.False(t, m.describe)
	assert.Equal(t, "Steps to **reproduce**", m.detail.Description)
	out := tuitest.StripANSI(m.View())
	assert.Contains(t, out, "reproduce")
	assert.Contains(t, out, "assigned to nobody")

	m, _ = press(t, m, "esc")
	assert.Equal(t, stateBrowsing, m.state)
}

func TestStaleDescriptionIgnored(t *testing.T) {
	m := newTestModel(t, twoPages())
	m, _ = press(t, m, "enter")

	m = update(t, m, descriptionMsg{title: "Older", text: "wrong task"})
	assert.Empty(t, m.detail.Description)
	assert.False(t, m.describe)
}

func TestLoadFailureShownInStatus(t *testing.T) {
	session := twoPages()
	m := newTestModel(t, session)

	session.loadErr = errors.New("bugzilla down")
	m = update(t, m, m.loadNextPage()())
	assert.Contains(t, tuitest.StripANSI(m.View()), "bugzilla down")
	assert.Len(t, m.Rows(), 2, "loaded tasks are kept")

	m = update(t, m, pageLoadedMsg{err: aggregate.ErrLoadInProgress})
	assert.EqualError(t, m.lastErr, "bugzilla down", "a rejected load keeps the last result")
}

func TestReload(t *testing.T) {
	session := twoPages()
	m := newTestModel(t, session)

	m, cmd := press(t, m, "r")
	require.NotNil(t, cmd)
	assert.True(t, m.loading)

	m = update(t, m, m.reload()())
	assert.Equal(t, 1, session.reloads)
	assert.Equal(t, []string{"Newest", "Older"}, titles(m.Rows()))
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, twoPages())

	m, _ = press(t, m, "enter")
	m, cmd := press(t, m, "q")
	assert.Nil(t, cmd, "q in the detail pane goes back")
	assert.Equal(t, stateBrowsing, m.state)

	m, cmd = press(t, m, "q")
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestCycle(t *testing.T) {
	opts := []string{"a", "b"}
	assert.Equal(t, "a", cycle(opts, ""))
	assert.Equal(t, "b", cycle(opts, "a"))
	assert.Empty(t, cycle(opts, "b"))
	assert.Empty(t, cycle(opts, "gone"))
	assert.Empty(t, cycle(nil, "a"))
}

func TestNextSortField(t *testing.T) {
	assert.Equal(t, view.SortSummary, nextSortField(view.SortProject))
	assert.Equal(t, view.SortAssignee, nextSortField(view.SortSummary), "tags are skipped")
	assert.Equal(t, view.SortProject, nextSortField(view.SortLastUpdated))
}

// Package tui implements the interactive task browser.
package tui

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/query"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
)

// UIState represents the current state of the TUI.
type UIState int

const (
	stateBrowsing UIState = iota
	stateDetail
)

// Session is the part of the aggregator the browser drives.
type Session interface {
	SetScope(scope query.Scope)
	Scope() query.Scope
	LoadNextPage(ctx context.Context) error
	Reload(ctx context.Context) error
	Description(ctx context.Context, t task.Task) (string, error)
	Snapshot() aggregate.Snapshot
}

// Options configures the TUI behavior.
type Options struct {
	Scope    query.Scope
	Criteria view.Criteria
	Context  context.Context // bounds every load; defaults to context.Background
	Now      func() time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	session Session
	views   *view.Engine
	opts    Options
	keys    KeyMap

	state    UIState
	criteria view.Criteria
	table    table.Model
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	width    int
	height   int
	quitting bool

	// Collection state, refreshed from the session snapshot.
	all      []task.Task
	rows     []task.Task
	hasNext  bool
	loading  bool
	errs     map[task.Source]error
	lastErr  error
	detail   task.Task
	describe bool // description load in flight
}

// Messages
type (
	pageLoadedMsg struct{ err error }

	descriptionMsg struct {
		title string
		text  string
		err   error
	}
)

// New creates the browser for session scoped to opts.Scope. The first page
// is requested by Init.
func New(session Session, views *view.Engine, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if session.Scope() != opts.Scope {
		session.SetScope(opts.Scope)
	}

	t := table.New(
		table.WithColumns(columns(defaultWidth)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	ts := table.DefaultStyles()
	ts.Header = styles.TableHeader
	ts.Selected = styles.TableSelected
	t.SetStyles(ts)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		session:  session,
		views:    views,
		opts:     opts,
		keys:     DefaultKeyMap(),
		criteria: opts.Criteria.Normalize(),
		table:    t,
		spinner:  sp,
		viewport: viewport.New(defaultWidth, 10),
		help:     help.New(),
		width:    defaultWidth,
		loading:  true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadNextPage())
}

func (m Model) loadNextPage() tea.Cmd {
	ctx, session := m.opts.Context, m.session
	return func() tea.Msg {
		return pageLoadedMsg{err: session.LoadNextPage(ctx)}
	}
}

func (m Model) reload() tea.Cmd {
	ctx, session := m.opts.Context, m.session
	return func() tea.Msg {
		if err := session.Reload(ctx); err != nil {
			return pageLoadedMsg{err: err}
		}
		return pageLoadedMsg{err: session.LoadNextPage(ctx)}
	}
}

func (m Model) loadDescription(t task.Task) tea.Cmd {
	ctx, session := m.opts.Context, m.session
	return func() tea.Msg {
		text, err := session.Description(ctx, t)
		return descriptionMsg{title: t.Summary.Title, text: text, err: err}
	}
}

// Criteria returns the active view criteria.
func (m Model) Criteria() view.Criteria { return m.criteria }

// Rows returns the tasks currently shown, in display order.
func (m Model) Rows() []task.Task { return slices.Clone(m.rows) }

// refresh re-reads the session and re-derives the visible rows, keeping the
// cursor on the same task where possible.
func (m *Model) refresh() {
	var selected string
	if i := m.table.Cursor(); i >= 0 && i < len(m.rows) {
		selected = m.rows[i].Summary.Title
	}

	snap := m.session.Snapshot()
	m.all = snap.Tasks
	m.hasNext = snap.HasNextPage
	m.errs = snap.Errors
	m.rows = m.views.Derive(m.all, m.criteria)
	m.table.SetRows(tableRows(m.rows, m.opts.Now()))

	cursor := slices.IndexFunc(m.rows, func(t task.Task) bool { return t.Summary.Title == selected })
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
}

func (m *Model) handlePageLoaded(msg pageLoadedMsg) {
	m.loading = false
	switch {
	case msg.err == nil:
		m.lastErr = nil
	case errors.Is(msg.err, aggregate.ErrLoadInProgress):
		// the running load reports its own result
	default:
		log.Warn().Err(msg.err).Str("scope", m.session.Scope().String()).Msg("page load failed")
		m.lastErr = msg.err
	}
	m.refresh()
}

func (m *Model) handleDescription(msg descriptionMsg) {
	m.describe = false
	if msg.title != m.detail.Summary.Title {
		return
	}
	if msg.err != nil {
		m.lastErr = msg.err
		return
	}
	m.detail.Description = msg.text
	m.viewport.SetContent(m.renderDetailBody())
	m.viewport.GotoTop()
}

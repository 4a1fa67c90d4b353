package tui

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case pageLoadedMsg:
		m.handlePageLoaded(msg)
		return m, nil
	case descriptionMsg:
		m.handleDescription(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.state == stateBrowsing) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.state == stateDetail {
			return m.handleDetailKey(msg)
		}
		return m.handleBrowseKey(msg)
	}

	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		if m.loading || !m.hasNext {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.loadNextPage())

	case key.Matches(msg, m.keys.Reload):
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.lastErr = nil
		m.views.Reset()
		return m, tea.Batch(m.spinner.Tick, m.reload())

	case key.Matches(msg, m.keys.Assignee):
		m.setCriteria(m.criteria.NextAssignee())

	case key.Matches(msg, m.keys.Sort):
		m.setCriteria(m.criteria.ToggleSort(nextSortField(m.criteria.SortBy)))

	case key.Matches(msg, m.keys.Reverse):
		m.setCriteria(m.criteria.ToggleSort(m.criteria.SortBy))

	case key.Matches(msg, m.keys.Tag):
		c := m.criteria
		c.Tag = cycle(m.views.Tags(m.all), c.Tag)
		m.setCriteria(c)

	case key.Matches(msg, m.keys.Project):
		c := m.criteria
		c.Project = cycle(m.views.Projects(m.all), c.Project)
		m.setCriteria(c)

	case key.Matches(msg, m.keys.Open):
		i := m.table.Cursor()
		if i < 0 || i >= len(m.rows) {
			return m, nil
		}
		m.detail = m.rows[i]
		m.state = stateDetail
		m.viewport.SetContent(m.renderDetailBody())
		m.viewport.GotoTop()
		if m.detail.Description == "" {
			m.describe = true
			return m, tea.Batch(m.spinner.Tick, m.loadDescription(m.detail))
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Quit) {
		m.state = stateBrowsing
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) setCriteria(c view.Criteria) {
	m.criteria = c.Normalize()
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	// header, status bar and help
	chrome := 4
	if m.help.ShowAll {
		chrome += 4
	}
	m.table.SetColumns(columns(width))
	m.table.SetWidth(width)
	m.table.SetHeight(max(height-chrome, 3))

	m.help.Width = width
	m.viewport.Width = max(width-4, 20)
	m.viewport.Height = max(height-chrome-2, 3)
	if m.state == stateDetail {
		m.viewport.SetContent(m.renderDetailBody())
	}
}

// nextSortField returns the column after f in display order. Tags is not
// sortable and is skipped.
func nextSortField(f view.SortField) view.SortField {
	i := slices.Index(view.SortFields, f)
	for {
		i = (i + 1) % len(view.SortFields)
		if view.SortFields[i] != view.SortTags {
			return view.SortFields[i]
		}
	}
}

// cycle returns the option after current, or "" (no filter) after the last
// one.
func cycle(options []string, current string) string {
	if len(options) == 0 {
		return ""
	}
	if current == "" {
		return options[0]
	}
	i := slices.Index(options, current)
	if i < 0 || i == len(options)-1 {
		return ""
	}
	return options[i+1]
}

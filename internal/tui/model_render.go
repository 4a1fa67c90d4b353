package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
)

const defaultWidth = 100

// columns sizes the table columns for width. Summary takes the slack.
func columns(width int) []table.Column {
	project, tags, assignee, updated := 16, 20, 18, 14
	summary := max(width-project-tags-assignee-updated-10, 20)

	return []table.Column{
		{Title: string(view.SortProject), Width: project},
		{Title: string(view.SortSummary), Width: summary},
		{Title: string(view.SortTags), Width: tags},
		{Title: string(view.SortAssignee), Width: assignee},
		{Title: string(view.SortLastUpdated), Width: updated},
	}
}

func tableRows(tasks []task.Task, now time.Time) []table.Row {
	rows := make([]table.Row, len(tasks))
	for i, t := range tasks {
		rows[i] = table.Row{
			t.Project,
			t.Summary.Title,
			strings.Join(t.Tags, " "),
			t.Assignee,
			view.Since(t.LastUpdated, now),
		}
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.state == stateDetail {
		b.WriteString(styles.DetailPaneStyle.Width(max(m.width-2, 20)).Render(m.viewport.View()))
	} else {
		b.WriteString(m.table.View())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderHeader() string {
	scope := m.session.Scope()
	title := styles.HeaderStyle.Render("codetribute") + " " + styles.TitleStyle.Render(fmt.Sprintf("%s %s", scope.Kind, scope.Value))

	arrow := "↓"
	if m.criteria.SortDirection == view.Asc {
		arrow = "↑"
	}
	parts := []string{
		styles.MutedStyle.Render("sort ") + string(m.criteria.SortBy) + " " + arrow,
		styles.MutedStyle.Render("assignee ") + string(m.criteria.Assignee),
	}
	if m.criteria.Tag != "" {
		parts = append(parts, styles.ActiveTagStyle.Render(m.criteria.Tag))
	}
	if m.criteria.Project != "" {
		parts = append(parts, styles.MutedStyle.Render("project ")+m.criteria.Project)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", strings.Join(parts, styles.DividerStyle.Render(" │ ")))
}

func (m Model) renderStatusBar() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%d of %d tasks", len(m.rows), len(m.all)))
	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" loading")
	case m.describe:
		parts = append(parts, m.spinner.View()+" loading description")
	case m.hasNext:
		parts = append(parts, "more available (n)")
	default:
		parts = append(parts, "all loaded")
	}

	sources := make([]string, 0, len(m.errs))
	for src := range m.errs {
		sources = append(sources, string(src))
	}
	slices.Sort(sources)
	for _, src := range sources {
		parts = append(parts, styles.ErrorStyle.Render(src+" failed"))
	}
	if m.lastErr != nil && len(m.errs) == 0 {
		parts = append(parts, styles.ErrorStyle.Render(m.lastErr.Error()))
	}

	if q := view.Encode(m.criteria); q != "" {
		parts = append(parts, styles.MutedStyle.Render("?"+q))
	}

	return styles.StatusBarStyle.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderDetailBody() string {
	t := m.detail
	now := m.opts.Now()

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render(t.Summary.Title))
	b.WriteString("\n")
	b.WriteString(styles.LinkStyle.Render(t.Summary.URL))
	b.WriteString("\n\n")

	assignee := styles.AssignedStyle.Render(t.Assignee)
	if !t.IsAssigned() {
		assignee = styles.UnassignedStyle.Render(t.Assignee)
	}

	tags := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		if tag == m.criteria.Tag {
			tags[i] = styles.ActiveTagStyle.Render(tag)
		} else {
			tags[i] = styles.TagStyle.Render(tag)
		}
	}

	fmt.Fprintf(&b, "%s %s\n", styles.MutedStyle.Render("Project  "), t.Project)
	fmt.Fprintf(&b, "%s %s\n", styles.MutedStyle.Render("Tags     "), strings.Join(tags, " "))
	fmt.Fprintf(&b, "%s %s\n", styles.MutedStyle.Render("Assignee "), assignee)
	fmt.Fprintf(&b, "%s %s\n", styles.MutedStyle.Render("Updated  "), view.Since(t.LastUpdated, now))

	if body := styles.RenderMarkdown(t.Description, max(m.viewport.Width-2, 20)); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.SuccessStyle.Render(view.HelperText(t, now)))
	return b.String()
}

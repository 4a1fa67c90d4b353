package commands

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/mozilla-frontend-infra/codetribute/internal/aggregate"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/styles"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/view"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

const defaultWidth = 100

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultWidth
}

// collectResult reports a failed load. Partial results are still usable, so
// the error is only returned when nothing was loaded at all.
func collectResult(ew io.Writer, err error, session *aggregate.Aggregator, jsonOutput bool) error {
	if err == nil {
		return nil
	}
	if len(session.Tasks()) == 0 {
		return err
	}

	warnSources(ew, session.Errors(), jsonOutput)
	return nil
}

// warnSources prints one warning per failed source, as JSON error
// documents when the command output is JSON.
func warnSources(ew io.Writer, errs map[task.Source]error, jsonOutput bool) {
	for _, src := range slices.Sorted(maps.Keys(errs)) {
		srcErr := errs[src]
		hint := errorHint(srcErr)
		log.Warn().Err(srcErr).Str("source", string(src)).Msg("source failed, showing partial results")

		if jsonOutput {
			data := map[string]any{"source": src, "error": srcErr.Error()}
			if hint != "" {
				data["hint"] = hint
			}
			fmt.Fprintln(ew, iojson.MarshalError("source failed, showing partial results", data))
			continue
		}

		msg := fmt.Sprintf("warning: %s: %v", src, srcErr)
		if hint != "" {
			msg += " (" + hint + ")"
		}
		fmt.Fprintln(ew, styles.WarningStyle.Render(msg))
	}
}

// errorHint suggests what to do about a failed upstream request.
func errorHint(err error) string {
	te, ok := sources.IsTransportError(err)
	switch {
	case !ok:
		return ""
	case te.StatusCode == http.StatusUnauthorized:
		return "set GITHUB_TOKEN or github.token"
	case te.Temporary():
		return "temporary, try again later"
	default:
		return ""
	}
}

// writeTasks prints tasks as JSON lines, a styled table on terminals, or
// a plain tab-aligned table otherwise.
func writeTasks(w io.Writer, tasks []task.Task, jsonOutput bool, now time.Time) error {
	if jsonOutput {
		for _, t := range tasks {
			if err := iojson.WriteLine(w, t); err != nil {
				return fmt.Errorf("encode task: %w", err)
			}
		}
		return nil
	}

	if isTerminal(w) {
		_, err := fmt.Fprintln(w, taskTable(tasks, terminalWidth(w), now))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROJECT\tSUMMARY\tTAGS\tASSIGNEE\tUPDATED\tURL")
	for _, t := range tasks {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Project, t.Summary.Title, strings.Join(t.Tags, ","), t.Assignee, view.Since(t.LastUpdated, now), t.Summary.URL)
	}
	return tw.Flush()
}

func taskTable(tasks []task.Task, width int, now time.Time) string {
	headers := make([]string, len(view.SortFields))
	for i, f := range view.SortFields {
		headers[i] = string(f)
	}

	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		rows[i] = []string{t.Project, t.Summary.Title, strings.Join(t.Tags, " "), t.Assignee, view.Since(t.LastUpdated, now)}
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.DividerStyle).
		Width(width).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.HeaderStyle.Padding(0, 1)
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 3 && rows[row][col] == task.Unassigned {
				return base.Inherit(styles.UnassignedStyle)
			}
			if col == 2 {
				return base.Inherit(styles.TagStyle)
			}
			return base
		}).
		String()
}

// writeTaskDetail prints one task with its description and a suggestion on
// how to pick it up.
func writeTaskDetail(w io.Writer, t task.Task, description string, now time.Time) error {
	var b strings.Builder

	b.WriteString(styles.TitleStyle.Render(t.Summary.Title))
	b.WriteString("\n")
	b.WriteString(styles.LinkStyle.Render(t.Summary.URL))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("%-10s", name)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	field("Project", t.Project)
	field("Tags", strings.Join(t.Tags, ", "))
	field("Assignee", t.Assignee)
	field("Updated", view.Since(t.LastUpdated, now))

	if text := styles.RenderMarkdown(description, terminalWidth(w)); text != "" {
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.SuccessStyle.Render(view.HelperText(t, now)))

	_, err := fmt.Fprintln(w, b.String())
	return err
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/mozilla-frontend-infra/codetribute/internal/codetribute"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/config"
	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/internal/sources"
	"github.com/mozilla-frontend-infra/codetribute/pkg/iojson"
)

var testProjects = config.Projects{
	"foo": {
		Key:          "foo",
		Name:         "Foo",
		Summary:      "The foo project",
		Repositories: config.Repositories{{Name: "org/foo", Tags: []string{"good-first-bug"}}},
		Products:     config.Products{{Name: "Core"}},
	},
}

func newTestApp(t *testing.T) (*Flags, *codetribute.App) {
	t.Helper()

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_count":1,"items":[{"title":"Fix crash","html_url":"https://github.com/org/foo/issues/1",
			"body":"Crashes on **start**","updated_at":"2024-05-01T10:00:00Z",
			"repository_url":"https://api.github.com/repos/org/foo",
			"labels":[{"name":"good-first-bug"}],"assignees":[{"login":"octocat"}]}]}`))
	}))
	t.Cleanup(gh.Close)

	bz := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/comment") {
			_, _ = w.Write([]byte(`{"bugs":{"7":{"comments":[{"text":"The menu says Fiel."}]}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"bugs":[{"id":7,"summary":"Typo in menu","component":"General",
			"assigned_to":"nobody@mozilla.org","keywords":["good-first-bug"],"whiteboard":"[lang=js]",
			"last_change_time":"2024-03-01T08:00:00Z"}]}`))
	}))
	t.Cleanup(bz.Close)

	cfg := config.DefaultConfig()
	cfg.GitHub.Endpoint = gh.URL
	cfg.Bugzilla.Endpoint = bz.URL + "/rest/"
	cfg.HTTPTimeout = 5 * time.Second

	return &Flags{Config: &cfg}, codetribute.NewApp(&cfg, testProjects, nil)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flags, app := newTestApp(t)

	var out bytes.Buffer
	root := &cli.Command{Name: "codetribute", Writer: &out, ErrWriter: &out}
	root = NewProjectsCmd(flags, app).Register(root)
	root = NewTasksCmd(flags, app).Register(root)
	root = NewShowCmd(flags, app).Register(root)
	root = NewRandomCmd(flags, app).Register(root)
	root = NewFilterCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags, app).Register(root)

	err := root.Run(context.Background(), append([]string{"codetribute"}, args...))
	return out.String(), err
}

func TestTasks_JSONLines(t *testing.T) {
	out, err := run(t, "tasks", "--project", "foo", "--json")
	require.NoError(t, err)

	tasks, err := iojson.Decode[task.Task](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Fix crash", tasks[0].Summary.Title, "newest first by default")
	assert.Equal(t, "Typo in menu", tasks[1].Summary.Title)
	assert.Equal(t, []string{"good-first-bug", "lang=js"}, tasks[1].Tags)
}

func TestTasks_TableWithCriteria(t *testing.T) {
	out, err := run(t, "tasks", "--project", "foo", "--query", "assignee=Unassigned")
	require.NoError(t, err)

	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "Typo in menu")
	assert.NotContains(t, out, "Fix crash")
}

func TestTasks_RequiresScope(t *testing.T) {
	_, err := run(t, "tasks")
	require.ErrorIs(t, err, codetribute.ErrScopeRequired)
}

func TestProjects(t *testing.T) {
	out, err := run(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "The foo project")

	out, err = run(t, "projects", "--json")
	require.NoError(t, err)

	infos, err := iojson.Decode[projectInfo](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, []string{"org/foo"}, infos[0].Repositories)
	assert.Equal(t, []string{"Core"}, infos[0].Products)
}

func TestShow_LoadsBugDescription(t *testing.T) {
	out, err := run(t, "show", "--project", "foo", "--json", "typo in menu")
	require.NoError(t, err)

	tasks, err := iojson.Decode[task.Task](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "The menu says Fiel.", tasks[0].Description)
}

func TestShow_Text(t *testing.T) {
	out, err := run(t, "show", "--project", "foo", "Fix crash")
	require.NoError(t, err)

	assert.Contains(t, out, "https://github.com/org/foo/issues/1")
	assert.Contains(t, out, "start")
	assert.Contains(t, out, "octocat")
}

func TestShow_Missing(t *testing.T) {
	_, err := run(t, "show", "--project", "foo", "nothing like this")
	require.Error(t, err)
}

func TestRandom_PrefersUnassigned(t *testing.T) {
	out, err := run(t, "random", "--project", "foo", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Typo in menu")
}

func TestFilter_ReadsSavedTasks(t *testing.T) {
	saved, err := run(t, "tasks", "--project", "foo", "--json")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "tasks.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(saved), 0o644))

	out, err := run(t, "filter", "-f", file, "--query", "assignee=Assigned", "--json")
	require.NoError(t, err)

	tasks, err := iojson.Decode[task.Task](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Fix crash", tasks[0].Summary.Title)
}

func TestFilter_EmptyAssigneeIsUnassigned(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tasks.json")
	saved := `[
		{"project":"foo","summary":{"title":"Nobody","url":"u/1"},"tags":null,"assignee":""},
		{"project":"foo","summary":{"title":"Someone","url":"u/2"},"tags":["b","a","b"],"assignee":"alice"}
	]`
	require.NoError(t, os.WriteFile(file, []byte(saved), 0o644))

	out, err := run(t, "filter", "-f", file, "--query", "assignee=Unassigned", "--json")
	require.NoError(t, err)

	tasks, err := iojson.Decode[task.Task](strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Nobody", tasks[0].Summary.Title)
	assert.Equal(t, task.Unassigned, tasks[0].Assignee)
	assert.Equal(t, []string{}, tasks[0].Tags)
}

func TestWarnSources(t *testing.T) {
	errs := map[task.Source]error{
		task.SourceGitHub:   &sources.TransportError{Source: task.SourceGitHub, Op: "search issues", StatusCode: http.StatusUnauthorized, Err: errors.New("Bad credentials")},
		task.SourceBugzilla: errors.New("bugzilla down"),
	}

	var text bytes.Buffer
	warnSources(&text, errs, false)
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "bugzilla down", "sources print in a stable order")
	assert.Contains(t, lines[1], "(set GITHUB_TOKEN or github.token)")

	var js bytes.Buffer
	warnSources(&js, map[task.Source]error{task.SourceGitHub: errs[task.SourceGitHub]}, true)
	var doc iojson.Error
	require.NoError(t, json.Unmarshal(js.Bytes(), &doc))
	assert.Equal(t, "source failed, showing partial results", doc.Message)
	assert.Equal(t, "github", doc.Data["source"])
	assert.Equal(t, "set GITHUB_TOKEN or github.token", doc.Data["hint"])
}

func TestConfigValidate(t *testing.T) {
	out, err := run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "no token configured")
	assert.Contains(t, out, "Configuration is valid (1 projects)")

	out, err = run(t, "config", "validate", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
}

func TestValidationIssues(t *testing.T) {
	assert.Nil(t, validationIssues(nil))

	cfg := config.DefaultConfig()
	cfg.Bugzilla.Endpoint = "ftp://bugzilla"
	issues := validationIssues(cfg.ValidateDeep("", testProjects))
	require.Len(t, issues, 1)
	assert.Equal(t, "bugzilla.endpoint", issues[0].Field)
}

func TestErrorHint(t *testing.T) {
	assert.Empty(t, errorHint(errors.New("plain")))
	assert.Contains(t, errorHint(&sources.TransportError{Source: task.SourceGitHub, StatusCode: http.StatusUnauthorized}), "GITHUB_TOKEN")
	assert.Contains(t, errorHint(fmt.Errorf("wrapped: %w", &sources.TransportError{StatusCode: http.StatusBadGateway})), "temporary")
	assert.Empty(t, errorHint(&sources.TransportError{StatusCode: http.StatusNotFound}))
}

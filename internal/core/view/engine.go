package view

import (
	"fmt"
	"slices"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
	"github.com/mozilla-frontend-infra/codetribute/pkg/kv"
)

// memoLimit bounds each memo table. Tables are flushed, not evicted, when
// full.
const memoLimit = 64

// fingerprintRow is the hashed projection of a task. time.Time is reduced to
// nanoseconds since hashstructure ignores unexported struct fields.
type fingerprintRow struct {
	Project     string
	Title       string
	URL         string
	Tags        []string
	Assignee    string
	Updated     int64
	Description string
	SourceID    int
	Source      string
}

// Fingerprint hashes the content of tasks. Equal content in equal order
// always yields the same value, independent of slice identity.
func Fingerprint(tasks []task.Task) (uint64, error) {
	rows := make([]fingerprintRow, len(tasks))
	for i, t := range tasks {
		rows[i] = fingerprintRow{
			Project:     t.Project,
			Title:       t.Summary.Title,
			URL:         t.Summary.URL,
			Tags:        t.Tags,
			Assignee:    t.Assignee,
			Updated:     t.LastUpdated.UnixNano(),
			Description: t.Description,
			SourceID:    t.SourceID,
			Source:      string(t.Source),
		}
	}

	h, err := hashstructure.Hash(rows, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("fingerprint tasks: %w", err)
	}
	return h, nil
}

type viewKey struct {
	Tasks    uint64
	Criteria string
}

type options struct {
	projects []string
	tags     []string
}

// Engine memoizes Derive and the selector options on the content
// fingerprint of the collection. It is safe for concurrent use.
type Engine struct {
	views   *kv.Store[viewKey, []task.Task]
	options *kv.Store[uint64, options]
}

// NewEngine creates an engine with empty memo tables.
func NewEngine() *Engine {
	return &Engine{
		views:   kv.NewBounded[viewKey, []task.Task](memoLimit),
		options: kv.NewBounded[uint64, options](memoLimit),
	}
}

// Derive returns Derive(tasks, c), reusing a previous result when the
// collection content and the canonical criteria are unchanged.
func (e *Engine) Derive(tasks []task.Task, c Criteria) []task.Task {
	fp, err := Fingerprint(tasks)
	if err != nil {
		return Derive(tasks, c)
	}

	key := viewKey{Tasks: fp, Criteria: Encode(c)}
	if v, ok := e.views.Get(key); ok {
		return slices.Clone(v)
	}

	v := Derive(tasks, c)
	e.views.Set(key, v)
	return slices.Clone(v)
}

// Projects returns the distinct projects of the unfiltered collection.
func (e *Engine) Projects(tasks []task.Task) []string {
	return slices.Clone(e.selectorOptions(tasks).projects)
}

// Tags returns the distinct tags of the unfiltered collection.
func (e *Engine) Tags(tasks []task.Task) []string {
	return slices.Clone(e.selectorOptions(tasks).tags)
}

func (e *Engine) selectorOptions(tasks []task.Task) options {
	fp, err := Fingerprint(tasks)
	if err != nil {
		return options{projects: Projects(tasks), tags: Tags(tasks)}
	}

	if o, ok := e.options.Get(fp); ok {
		return o
	}

	o := options{projects: Projects(tasks), tags: Tags(tasks)}
	e.options.Set(fp, o)
	return o
}

// Reset drops every memoized result.
func (e *Engine) Reset() {
	e.views.Clear()
	e.options.Clear()
}

// Package aggregate drives paginated searches against both upstreams and
// merges their results into one deduplicated task collection.
package aggregate

import (
	"context"
	"errors"
)

var (
	// ErrFetchInProgress is returned when a paginator is asked for its next
	// page while a fetch against the same cursor is still running.
	ErrFetchInProgress = errors.New("fetch already in progress")
	// ErrPaginatorDone is returned when fetching from an exhausted paginator.
	ErrPaginatorDone = errors.New("paginator exhausted")
	// ErrLoadInProgress is returned when LoadNextPage is called concurrently.
	ErrLoadInProgress = errors.New("load already in progress")
	// ErrNoScope is returned when loading before a scope has been selected.
	ErrNoScope = errors.New("no browsing scope selected")
	// ErrStaleContext marks results dropped because the scope changed while
	// they were in flight. It is logged, never returned to callers.
	ErrStaleContext = errors.New("stale browsing context")
)

// Cursor is the continuation state of one paginated query.
type Cursor struct {
	Token       string `json:"token"`
	HasNextPage bool   `json:"hasNextPage"`
}

// Page is one page of raw records plus the cursor for the page after it.
type Page[R any] struct {
	Records []R    `json:"records"`
	Cursor  Cursor `json:"cursor"`
}

// Fetcher issues one paged query against an upstream. An empty cursor token
// requests the first page.
type Fetcher[Q, R any] interface {
	Fetch(ctx context.Context, q Q, cursor Cursor) (Page[R], error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc[Q, R any] func(ctx context.Context, q Q, cursor Cursor) (Page[R], error)

func (f FetcherFunc[Q, R]) Fetch(ctx context.Context, q Q, cursor Cursor) (Page[R], error) {
	return f(ctx, q, cursor)
}

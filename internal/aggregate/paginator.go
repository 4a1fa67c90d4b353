package aggregate

import (
	"context"
	"sync"
)

// State is the lifecycle state of a paginator.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Paginator walks the pages of a single query.
//
// Transitions: Idle -> Fetching -> Idle | Done | Failed. Failed behaves like
// Idle for the next FetchNext, resuming from the last stored cursor. Done is
// terminal.
type Paginator[Q, R any] struct {
	mu      sync.Mutex
	name    string
	query   Q
	fetcher Fetcher[Q, R]
	cursor  Cursor
	state   State
	err     error
	fetches int
}

// NewPaginator creates a paginator positioned before the first page.
func NewPaginator[Q, R any](name string, q Q, fetcher Fetcher[Q, R]) *Paginator[Q, R] {
	return &Paginator[Q, R]{name: name, query: q, fetcher: fetcher}
}

// Name identifies the query in logs.
func (p *Paginator[Q, R]) Name() string { return p.name }

// Query returns the query this paginator walks.
func (p *Paginator[Q, R]) Query() Q { return p.query }

// State returns the current state.
func (p *Paginator[Q, R]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cursor returns the last successfully stored cursor.
func (p *Paginator[Q, R]) Cursor() Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Err returns the error of the last failed fetch, or nil.
func (p *Paginator[Q, R]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Fetches returns how many fetches have completed, successful or not.
func (p *Paginator[Q, R]) Fetches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches
}

// Done reports whether every page has been fetched.
func (p *Paginator[Q, R]) Done() bool {
	return p.State() == StateDone
}

// FetchNext fetches the page after the stored cursor. On failure the cursor
// is left untouched so calling FetchNext again retries the same page.
func (p *Paginator[Q, R]) FetchNext(ctx context.Context) ([]R, error) {
	p.mu.Lock()
	switch p.state {
	case StateFetching:
		p.mu.Unlock()
		return nil, ErrFetchInProgress
	case StateDone:
		p.mu.Unlock()
		return nil, ErrPaginatorDone
	}
	p.state = StateFetching
	cursor := p.cursor
	p.mu.Unlock()

	page, err := p.fetcher.Fetch(ctx, p.query, cursor)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++

	if err != nil {
		p.state = StateFailed
		p.err = err
		return nil, err
	}

	p.err = nil
	p.cursor = page.Cursor
	// A cursor that does not advance would refetch the same page forever.
	if !page.Cursor.HasNextPage || (cursor.Token != "" && page.Cursor.Token == cursor.Token) {
		p.cursor.HasNextPage = false
		p.state = StateDone
	} else {
		p.state = StateIdle
	}

	return page.Records, nil
}

package aggregate

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedFetcher serves pages of ints from a fixed slice of pages.
func pagedFetcher(pages ...[]int) (FetcherFunc[string, int], *[]string) {
	var (
		mu      sync.Mutex
		cursors []string
	)
	fn := func(_ context.Context, _ string, c Cursor) (Page[int], error) {
		mu.Lock()
		cursors = append(cursors, c.Token)
		mu.Unlock()

		i := 0
		if c.Token != "" {
			i, _ = strconv.Atoi(c.Token)
		}
		next := i + 1
		return Page[int]{
			Records: pages[i],
			Cursor:  Cursor{Token: strconv.Itoa(next), HasNextPage: next < len(pages)},
		}, nil
	}
	return fn, &cursors
}

func TestPaginator_WalksAllPages(t *testing.T) {
	fetch, cursors := pagedFetcher([]int{1, 2}, []int{3}, []int{4, 5})
	p := NewPaginator("numbers", "q", Fetcher[string, int](fetch))

	var got []int
	for !p.Done() {
		records, err := p.FetchNext(context.Background())
		require.NoError(t, err)
		got = append(got, records...)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, []string{"", "1", "2"}, *cursors)
	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, 3, p.Fetches())
	assert.False(t, p.Cursor().HasNextPage)

	_, err := p.FetchNext(context.Background())
	require.ErrorIs(t, err, ErrPaginatorDone)
	assert.Equal(t, 3, p.Fetches(), "done paginators never fetch")
}

func TestPaginator_FailureKeepsCursor(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	fetch := FetcherFunc[string, int](func(_ context.Context, _ string, c Cursor) (Page[int], error) {
		calls++
		switch calls {
		case 1:
			return Page[int]{Records: []int{1}, Cursor: Cursor{Token: "a", HasNextPage: true}}, nil
		case 2:
			return Page[int]{}, boom
		default:
			assert.Equal(t, "a", c.Token, "retry resumes from the last stored cursor")
			return Page[int]{Records: []int{2}, Cursor: Cursor{Token: "b"}}, nil
		}
	})
	p := NewPaginator("q", "q", Fetcher[string, int](fetch))

	_, err := p.FetchNext(context.Background())
	require.NoError(t, err)

	_, err = p.FetchNext(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, Cursor{Token: "a", HasNextPage: true}, p.Cursor())
	require.ErrorIs(t, p.Err(), boom)

	records, err := p.FetchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2}, records)
	assert.True(t, p.Done())
	assert.NoError(t, p.Err())
}

func TestPaginator_RejectsConcurrentFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := FetcherFunc[string, int](func(context.Context, string, Cursor) (Page[int], error) {
		close(started)
		<-release
		return Page[int]{Cursor: Cursor{}}, nil
	})
	p := NewPaginator("q", "q", Fetcher[string, int](fetch))

	done := make(chan error, 1)
	go func() {
		_, err := p.FetchNext(context.Background())
		done <- err
	}()

	<-started
	assert.Equal(t, StateFetching, p.State())
	_, err := p.FetchNext(context.Background())
	require.ErrorIs(t, err, ErrFetchInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.Fetches())
}

func TestPaginator_StuckCursorTerminates(t *testing.T) {
	fetch := FetcherFunc[string, int](func(context.Context, string, Cursor) (Page[int], error) {
		return Page[int]{Records: []int{1}, Cursor: Cursor{Token: "same", HasNextPage: true}}, nil
	})
	p := NewPaginator("q", "q", Fetcher[string, int](fetch))

	_, err := p.FetchNext(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Done())

	_, err = p.FetchNext(context.Background())
	require.NoError(t, err)
	assert.True(t, p.Done())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

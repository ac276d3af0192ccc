package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_New_RequiresCollaborators(t *testing.T) {
	_, err := New(Config[testItem]{Factory: testFactory, BaseURL: testBase})
	assert.Error(t, err)

	_, err = New(Config[testItem]{Fetcher: newFakeFetcher(), BaseURL: testBase})
	assert.Error(t, err)

	_, err = New(Config[testItem]{Fetcher: newFakeFetcher(), Factory: testFactory})
	assert.Error(t, err)
}

func TestFeed_PagesConcatenateInServerOrder(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(10, 9, 8)...), NextPageURL: "c2", HasMore: true}, nil)
	fetcher.queue("c2", &RawPage{Items: rawItems(t, itemsWithIDs(7, 6)...), NextPageURL: "c3", HasMore: true}, nil)
	fetcher.queue("c3", &RawPage{Items: rawItems(t, itemsWithIDs(5, 4, 3)...), NextPageURL: "c4", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.LoadMore(ctx))
	}

	snap := f.Snapshot()
	assert.Equal(t, []uint64{10, 9, 8, 7, 6, 5, 4, 3}, ids(snap.Entries))
	assert.True(t, snap.HasMore)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, []string{testBase, "c2", "c3"}, fetcher.calls)
}

func TestFeed_AppendSkipsDuplicateIDs(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(5, 4, 3)...), NextPageURL: "c2", HasMore: true}, nil)
	// A post created between fetches shifts the server window by one.
	fetcher.queue("c2", &RawPage{Items: rawItems(t, itemsWithIDs(3, 2, 1)...), NextPageURL: "c3", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	require.NoError(t, f.LoadMore(context.Background()))
	require.NoError(t, f.LoadMore(context.Background()))

	assert.Equal(t, []uint64{5, 4, 3, 2, 1}, ids(f.Snapshot().Entries))
}

func TestFeed_TwoPageLoadThenExhausted(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(7, 6, 5, 4)...), NextPageURL: "C2", HasMore: true}, nil)
	fetcher.queue("C2", &RawPage{Items: rawItems(t, itemsWithIDs(3, 2, 1)...), NextPageURL: "C3", HasMore: false}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	ctx := context.Background()

	require.NoError(t, f.LoadMore(ctx))
	assert.True(t, f.HasMore())

	require.NoError(t, f.LoadMore(ctx))
	snap := f.Snapshot()
	assert.Equal(t, []uint64{7, 6, 5, 4, 3, 2, 1}, ids(snap.Entries))
	assert.False(t, snap.HasMore)
	assert.Equal(t, StateExhausted, snap.State)

	// Further triggers never reach the network and never flip HasMore back.
	require.NoError(t, f.LoadMore(ctx))
	require.NoError(t, f.Retry(ctx))
	assert.Equal(t, 2, fetcher.callCount())
	assert.False(t, f.HasMore())
}

func TestFeed_EmptyScope(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase+"?post=42", &RawPage{Items: nil, NextPageURL: testBase + "?cutoff=0&post=42", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Post(42))
	require.NoError(t, f.LoadMore(context.Background()))

	snap := f.Snapshot()
	assert.Zero(t, snap.Len())
	assert.False(t, snap.HasMore)
	assert.NoError(t, snap.Err)
}

func TestFeed_EmptyNextURLExhausts(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(1)...), HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	require.NoError(t, f.LoadMore(context.Background()))

	assert.False(t, f.HasMore())
}

func TestFeed_LoadMoreWhileFetchingIsNoop(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate = make(chan struct{})
	fetcher.started = make(chan string, 4)
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(3, 2)...), NextPageURL: "c2", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	ctx := context.Background()

	done := f.LoadMoreAsync(ctx)
	<-fetcher.started
	assert.Equal(t, StateFetching, f.State())
	assert.True(t, f.Snapshot().IsFetching)

	for i := 0; i < 5; i++ {
		require.NoError(t, f.LoadMore(ctx))
	}
	assert.Equal(t, 1, fetcher.callCount())

	fetcher.gate <- struct{}{}
	require.NoError(t, <-done)

	assert.Equal(t, 1, fetcher.maxFlight)
	assert.Equal(t, []uint64{3, 2}, ids(f.Snapshot().Entries))
	assert.Equal(t, StateIdle, f.State())
}

func TestFeed_UninitializedDoesNotFetch(t *testing.T) {
	fetcher := newFakeFetcher()
	f := newTestFeed(t, fetcher, nil, nil, Scope{})

	assert.Equal(t, StateUninitialized, f.State())
	err := f.LoadMore(context.Background())
	assert.ErrorIs(t, err, ErrScopeUnresolved)
	assert.Zero(t, fetcher.callCount())

	fetcher.queue(testBase+"?community=12", &RawPage{Items: rawItems(t, itemsWithIDs(1)...), NextPageURL: "n", HasMore: true}, nil)
	require.NoError(t, f.Resolve(Community(12)))
	assert.Equal(t, StateIdle, f.State())

	require.NoError(t, f.LoadMore(context.Background()))
	assert.Equal(t, []string{testBase + "?community=12"}, fetcher.calls)
}

func TestFeed_ResolveRejectsInvalidScope(t *testing.T) {
	f := newTestFeed(t, newFakeFetcher(), nil, nil, Scope{})

	err := f.Resolve(Community(0))
	assert.ErrorIs(t, err, ErrInvalidScope)
	assert.Equal(t, StateUninitialized, f.State())
}

func TestFeed_ErroredRetriesSameCursor(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(4, 3)...), NextPageURL: "c2", HasMore: true}, nil)
	fetcher.queue("c2", nil, errors.New("connection refused"))
	fetcher.queue("c2", &RawPage{Items: rawItems(t, itemsWithIDs(2, 1)...), NextPageURL: "c3", HasMore: false}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	ctx := context.Background()

	require.NoError(t, f.LoadMore(ctx))

	err := f.LoadMore(ctx)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))

	snap := f.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Error(t, snap.Err)
	// Items from earlier pages stay visible below which the retry affordance renders.
	assert.Equal(t, []uint64{4, 3}, ids(snap.Entries))
	assert.True(t, snap.HasMore)

	require.NoError(t, f.Retry(ctx))
	snap = f.Snapshot()
	assert.NoError(t, snap.Err)
	assert.Equal(t, []uint64{4, 3, 2, 1}, ids(snap.Entries))
	assert.Equal(t, []string{testBase, "c2", "c2"}, fetcher.calls)
}

func TestFeed_RetryIsNoopUnlessErrored(t *testing.T) {
	fetcher := newFakeFetcher()
	f := newTestFeed(t, fetcher, nil, nil, Global())

	require.NoError(t, f.Retry(context.Background()))
	assert.Zero(t, fetcher.callCount())
	assert.Equal(t, StateIdle, f.State())
}

func TestFeed_InitialLoadFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, nil, errors.New("503"))

	f := newTestFeed(t, fetcher, nil, nil, Global())
	err := f.LoadMore(context.Background())

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, testBase, netErr.URL)
	assert.Zero(t, f.Snapshot().Len())
	assert.Equal(t, StateErrored, f.State())
}

func TestFeed_SkipsMalformedRecords(t *testing.T) {
	fetcher := newFakeFetcher()
	page := &RawPage{Items: rawItems(t, itemsWithIDs(3)...), NextPageURL: "c2", HasMore: true}
	page.Items = append(page.Items, []byte(`{"text":"no id"}`), []byte(`not json`))
	fetcher.queue(testBase, page, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	require.NoError(t, f.LoadMore(context.Background()))

	assert.Equal(t, []uint64{3}, ids(f.Snapshot().Entries))
}

func TestFeed_CloseDiscardsLateResponse(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate = make(chan struct{})
	fetcher.started = make(chan string, 1)
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(1)...), NextPageURL: "c2", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	changes := 0
	f.Subscribe(func() { changes++ })

	done := f.LoadMoreAsync(context.Background())
	<-fetcher.started
	f.Close()
	fetcher.gate <- struct{}{}
	require.NoError(t, <-done)

	assert.Zero(t, f.Snapshot().Len())
	assert.Zero(t, changes)
	assert.True(t, f.Closed())
	assert.ErrorIs(t, f.LoadMore(context.Background()), ErrClosed)
	assert.ErrorIs(t, f.Resolve(Global()), ErrClosed)
}

func TestFeed_OnCloseRunsOnce(t *testing.T) {
	f := newTestFeed(t, newFakeFetcher(), nil, nil, Global())

	calls := 0
	f.OnClose(func() { calls++ })
	f.Close()
	f.Close()
	assert.Equal(t, 1, calls)

	// Registering on a closed feed runs the hook right away
	f.OnClose(func() { calls++ })
	assert.Equal(t, 2, calls)
}

func TestFeed_ScopeChangeResetsAndDiscardsStalePage(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.gate = make(chan struct{})
	fetcher.started = make(chan string, 2)
	fetcher.queue(testBase+"?community=1", &RawPage{Items: rawItems(t, itemsWithIDs(11, 10)...), NextPageURL: "old-c2", HasMore: true}, nil)
	fetcher.queue(testBase+"?community=2", &RawPage{Items: rawItems(t, itemsWithIDs(21)...), NextPageURL: "new-c2", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Community(1))
	ctx := context.Background()

	stale := f.LoadMoreAsync(ctx)
	<-fetcher.started

	require.NoError(t, f.Resolve(Community(2)))
	assert.Equal(t, StateIdle, f.State())
	assert.Equal(t, Community(2), f.Scope())

	// The old request has not returned yet, so this trigger is dropped
	require.NoError(t, f.LoadMore(ctx))
	assert.Equal(t, 1, fetcher.callCount())

	fetcher.gate <- struct{}{}
	require.NoError(t, <-stale)
	assert.Zero(t, f.Snapshot().Len())

	fresh := f.LoadMoreAsync(ctx)
	assert.Equal(t, testBase+"?community=2", <-fetcher.started)
	fetcher.gate <- struct{}{}
	require.NoError(t, <-fresh)

	assert.Equal(t, []uint64{21}, ids(f.Snapshot().Entries))
	assert.Equal(t, 1, fetcher.maxFlight)
}

func TestFeed_ScopeChangeCancelsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan error, 1)
	fetcher := FetcherFunc(func(ctx context.Context, url string) (*RawPage, error) {
		close(started)
		<-ctx.Done()
		cancelled <- ctx.Err()
		return nil, ctx.Err()
	})

	f := newTestFeed(t, fetcher, nil, nil, Community(1))
	done := f.LoadMoreAsync(context.Background())
	<-started

	require.NoError(t, f.Resolve(Community(2)))
	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("stale fetch was not cancelled")
	}

	// The cancelled page belongs to the old scope and is not reported
	require.NoError(t, <-done)
	assert.Equal(t, StateIdle, f.State())
	assert.NoError(t, f.Snapshot().Err)
}

func TestFeed_ResolveSameScopeKeepsList(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase+"?project=3", &RawPage{Items: rawItems(t, itemsWithIDs(1)...), NextPageURL: "n", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Project(3))
	require.NoError(t, f.LoadMore(context.Background()))
	require.NoError(t, f.Resolve(Project(3)))

	assert.Equal(t, 1, f.Snapshot().Len())
}

func TestFeed_SubscribersNotified(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.queue(testBase, &RawPage{Items: rawItems(t, itemsWithIDs(1)...), NextPageURL: "n", HasMore: true}, nil)

	f := newTestFeed(t, fetcher, nil, nil, Global())
	notified := make(chan struct{}, 4)
	unsubscribe := f.Subscribe(func() { notified <- struct{}{} })

	require.NoError(t, f.LoadMore(context.Background()))
	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified")
	}

	unsubscribe()
	require.NoError(t, f.Resolve(Community(5)))
	assert.Len(t, notified, 0)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "exhausted", StateExhausted.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "unknown", State(42).String())
}

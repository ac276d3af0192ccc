package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"Skillnet/internal/core/notify"

	"github.com/stretchr/testify/require"
)

const testBase = "http://backend.test/auth/posts"

type testItem struct {
	Text  string `json:"text"`
	ID    uint64 `json:"id"`
	Likes uint64 `json:"likes"`
	Liked bool   `json:"liked"`
}

func (i testItem) ItemID() uint64      { return i.ID }
func (i testItem) CounterActive() bool { return i.Liked }
func (i testItem) WithCounter(c Counter) testItem {
	i.Likes = c.Value
	i.Liked = c.Active
	return i
}

func testFactory(raw json.RawMessage) (testItem, error) {
	var item testItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return testItem{}, err
	}
	if item.ID == 0 {
		return testItem{}, errors.New("missing id")
	}
	return item, nil
}

func rawItems(t *testing.T, items ...testItem) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func itemsWithIDs(ids ...uint64) []testItem {
	out := make([]testItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, testItem{ID: id, Text: fmt.Sprintf("item %d", id)})
	}
	return out
}

type fetchResult struct {
	page *RawPage
	err  error
}

// fakeFetcher serves queued responses per URL. When gate is set, every call
// blocks until a value is received from it.
type fakeFetcher struct {
	responses map[string][]fetchResult
	gate      chan struct{}
	started   chan string
	calls     []string
	inFlight  int
	maxFlight int
	mu        sync.Mutex
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{responses: make(map[string][]fetchResult)}
}

func (f *fakeFetcher) queue(url string, page *RawPage, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = append(f.responses[url], fetchResult{page: page, err: err})
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (*RawPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- url
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	queue := f.responses[url]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no response queued for %s", url)
	}
	f.responses[url] = queue[1:]
	return queue[0].page, queue[0].err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeMutations lets each test script the server's answers
type fakeMutations struct {
	createFn func(payload any) (testItem, error)
	updateFn func(id uint64, payload any) (testItem, error)
	deleteFn func(id uint64) error
	toggleFn func(id uint64, active bool) (Counter, error)
}

func (m *fakeMutations) Create(_ context.Context, payload any) (testItem, error) {
	return m.createFn(payload)
}

func (m *fakeMutations) Update(_ context.Context, id uint64, payload any) (testItem, error) {
	return m.updateFn(id, payload)
}

func (m *fakeMutations) Delete(_ context.Context, id uint64) error {
	return m.deleteFn(id)
}

func (m *fakeMutations) ToggleCounter(_ context.Context, id uint64, active bool) (Counter, error) {
	return m.toggleFn(id, active)
}

type toastRecorder struct {
	toasts []notify.Notification
	mu     sync.Mutex
}

func recordToasts(bus *notify.Bus) *toastRecorder {
	rec := &toastRecorder{}
	bus.Subscribe(func(e notify.Event) {
		if e.Kind != notify.EventToast || e.Toast == nil {
			return
		}
		rec.mu.Lock()
		rec.toasts = append(rec.toasts, *e.Toast)
		rec.mu.Unlock()
	})
	return rec
}

func (r *toastRecorder) errors() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.toasts {
		if n.Level == notify.LevelError {
			out = append(out, n)
		}
	}
	return out
}

func newTestFeed(t *testing.T, fetcher Fetcher, mutations MutationChannel[testItem], bus *notify.Bus, scope Scope) *Feed[testItem] {
	t.Helper()
	f, err := New(Config[testItem]{
		Fetcher:   fetcher,
		Factory:   testFactory,
		Mutations: mutations,
		Bus:       bus,
		BaseURL:   testBase,
		Noun:      "post",
		Scope:     scope,
	})
	require.NoError(t, err)
	return f
}

func ids(entries []Entry[testItem]) []uint64 {
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Item.ID)
	}
	return out
}

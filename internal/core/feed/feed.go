// Package feed implements the paginated, incrementally loaded list that backs
// every list view (global feed, community feed, comment thread, project
// gallery) together with in-place reconciliation of the viewer's own writes.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"Skillnet/internal/core/notify"
)

// Config wires a Feed to its collaborators
type Config[T Item] struct {
	Fetcher   Fetcher
	Factory   ItemFactory[T]
	Mutations MutationChannel[T]
	Bus       *notify.Bus
	Logger    *slog.Logger

	// BaseURL is the unqualified list endpoint, e.g. "http://host/auth/posts"
	BaseURL string

	// Noun names the item type in notifications, e.g. "post"
	Noun string

	// Scope may be left unset when the hosting view resolves it later
	Scope Scope
}

// Feed is a per-view paginated list. All methods are safe for concurrent use.
type Feed[T Item] struct {
	fetcher   Fetcher
	factory   ItemFactory[T]
	mutations MutationChannel[T]
	bus       *notify.Bus
	logger    *slog.Logger

	err         error
	createDraft any
	editDrafts  map[uint64]any
	subscribers map[int]func()
	closeHooks  []func()

	baseURL string
	noun    string
	cursor  string

	scope Scope
	list  list[T]

	// cancelFetch aborts the request in flight; nil when none is
	cancelFetch context.CancelFunc

	generation uint64
	nextSubID  int
	state      State
	closed     bool
	inFlight   bool

	mu sync.Mutex
}

// New creates a feed. If cfg.Scope is set the feed starts Idle, otherwise it
// stays Uninitialized until Resolve is called.
func New[T Item](cfg Config[T]) (*Feed[T], error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("feed: fetcher is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("feed: item factory is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("feed: base URL is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	noun := cfg.Noun
	if noun == "" {
		noun = "item"
	}

	f := &Feed[T]{
		fetcher:     cfg.Fetcher,
		factory:     cfg.Factory,
		mutations:   cfg.Mutations,
		bus:         cfg.Bus,
		logger:      logger,
		baseURL:     cfg.BaseURL,
		noun:        noun,
		editDrafts:  make(map[uint64]any),
		subscribers: make(map[int]func()),
		list:        newList[T](),
		state:       StateUninitialized,
	}

	if cfg.Scope.IsResolved() {
		if err := f.Resolve(cfg.Scope); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Resolve binds the feed to scope and moves it from Uninitialized to Idle.
// Resolving to a different scope later discards the list and the cursor,
// cancels any in-flight fetch and restarts from Idle. Triggers stay no-ops
// until the cancelled request has returned.
func (f *Feed[T]) Resolve(scope Scope) error {
	firstURL, err := BuildURL(f.baseURL, scope)
	if err != nil {
		return err
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.state != StateUninitialized && f.scope == scope {
		f.mu.Unlock()
		return nil
	}

	if f.state != StateUninitialized {
		f.logger.Debug("feed: scope changed, resetting",
			"noun", f.noun, "from", f.scope.Key(), "to", scope.Key())
	}

	f.generation++
	f.abortFetch()
	f.scope = scope
	f.cursor = firstURL
	f.list = newList[T]()
	f.err = nil
	f.createDraft = nil
	f.editDrafts = make(map[uint64]any)
	f.state = StateIdle
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
	return nil
}

// LoadMore fetches the next page. It is a no-op while a fetch is already in
// flight or after the scope is exhausted. From Errored it retries the same
// cursor. LoadMore blocks until the fetch completes.
func (f *Feed[T]) LoadMore(ctx context.Context) error {
	return f.load(ctx, false)
}

// Retry re-attempts the failed fetch. It is a no-op unless the feed is Errored.
func (f *Feed[T]) Retry(ctx context.Context) error {
	return f.load(ctx, true)
}

// LoadMoreAsync starts LoadMore on a new goroutine and reports its result on
// the returned channel, which receives exactly one value.
func (f *Feed[T]) LoadMoreAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- f.LoadMore(ctx)
	}()
	return done
}

func (f *Feed[T]) load(ctx context.Context, retryOnly bool) error {
	fetchCtx, gen, pageURL, ok, err := f.beginFetch(ctx, retryOnly)
	if err != nil || !ok {
		return err
	}

	f.logger.Debug("feed: fetching page", "noun", f.noun, "url", pageURL)
	page, fetchErr := f.fetcher.FetchPage(fetchCtx, pageURL)

	return f.finishFetch(gen, pageURL, page, fetchErr)
}

// beginFetch moves the feed into Fetching if a trigger is allowed now. A
// request left over from a previous scope still counts as in flight.
func (f *Feed[T]) beginFetch(ctx context.Context, retryOnly bool) (fetchCtx context.Context, gen uint64, pageURL string, ok bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, 0, "", false, ErrClosed
	}
	if f.inFlight {
		return nil, 0, "", false, nil
	}

	switch f.state {
	case StateUninitialized:
		return nil, 0, "", false, ErrScopeUnresolved
	case StateFetching, StateExhausted:
		return nil, 0, "", false, nil
	case StateIdle:
		if retryOnly {
			return nil, 0, "", false, nil
		}
	case StateErrored:
	}

	fetchCtx, f.cancelFetch = context.WithCancel(ctx)
	f.inFlight = true
	f.state = StateFetching
	f.err = nil
	return fetchCtx, f.generation, f.cursor, true, nil
}

// abortFetch cancels the request in flight. f.mu must be held.
func (f *Feed[T]) abortFetch() {
	if f.cancelFetch != nil {
		f.cancelFetch()
	}
}

// finishFetch applies a page result unless the feed was reset or closed
// while the request was in flight.
func (f *Feed[T]) finishFetch(gen uint64, pageURL string, page *RawPage, fetchErr error) error {
	f.mu.Lock()

	f.abortFetch()
	f.cancelFetch = nil
	f.inFlight = false

	if f.closed || gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug("feed: discarding stale page", "noun", f.noun, "url", pageURL)
		return nil
	}

	if fetchErr == nil && page == nil {
		fetchErr = fmt.Errorf("empty response")
	}

	if fetchErr != nil {
		netErr := &NetworkError{Op: "fetch " + f.noun + "s", URL: pageURL, Err: fetchErr}
		f.state = StateErrored
		f.err = netErr
		notifyFns := f.subscriberFns()
		f.mu.Unlock()

		f.logger.Warn("feed: page fetch failed", "noun", f.noun, "url", pageURL, "error", fetchErr)
		runAll(notifyFns)
		return netErr
	}

	appended := 0
	for _, raw := range page.Items {
		item, err := f.factory(raw)
		if err != nil {
			f.logger.Warn("feed: skipping malformed record", "noun", f.noun, "error", err)
			continue
		}
		if f.list.appendPaged(item) {
			appended++
		}
	}

	f.cursor = page.NextPageURL
	if len(page.Items) == 0 || !page.HasMore || page.NextPageURL == "" {
		f.state = StateExhausted
	} else {
		f.state = StateIdle
	}
	notifyFns := f.subscriberFns()
	state := f.state
	f.mu.Unlock()

	f.logger.Debug("feed: page applied",
		"noun", f.noun, "received", len(page.Items), "appended", appended, "state", state.String())
	runAll(notifyFns)
	return nil
}

// Close unmounts the feed. Responses that arrive afterwards are discarded
// and every later call returns ErrClosed.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.generation++
	f.abortFetch()
	f.subscribers = make(map[int]func())
	hooks := f.closeHooks
	f.closeHooks = nil
	f.mu.Unlock()

	runAll(hooks)
}

// OnClose registers fn to run once when the feed is closed. On a feed that
// is already closed fn runs immediately.
func (f *Feed[T]) OnClose(fn func()) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	if !f.closed {
		f.closeHooks = append(f.closeHooks, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

// Closed reports whether Close has been called
func (f *Feed[T]) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// State returns the current pagination state
func (f *Feed[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Scope returns the scope the feed is bound to
func (f *Feed[T]) Scope() Scope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scope
}

// HasMore is false only once the server has signalled the end of the scope
func (f *Feed[T]) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state != StateExhausted
}

// Snapshot returns a copy of everything a view needs to render
func (f *Feed[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	drafts := make(map[uint64]any, len(f.editDrafts))
	for id, d := range f.editDrafts {
		drafts[id] = d
	}

	return Snapshot[T]{
		Scope:       f.scope,
		State:       f.state,
		Entries:     f.list.entries(),
		IsFetching:  f.state == StateFetching,
		HasMore:     f.state != StateExhausted,
		Err:         f.err,
		CreateDraft: f.createDraft,
		EditDrafts:  drafts,
	}
}

// Subscribe registers fn to run after every state change. fn runs on the
// goroutine that caused the change, outside the feed's lock.
func (f *Feed[T]) Subscribe(fn func()) func() {
	f.mu.Lock()
	id := f.nextSubID
	f.nextSubID++
	if !f.closed {
		f.subscribers[id] = fn
	}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// subscriberFns must be called with f.mu held
func (f *Feed[T]) subscriberFns() []func() {
	fns := make([]func(), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		fns = append(fns, fn)
	}
	return fns
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

package feed

import (
	"context"
	"encoding/json"
)

// State is the pagination state of a Feed
type State int

const (
	// StateUninitialized means the scope is not yet known; nothing is fetched
	StateUninitialized State = iota
	// StateIdle means more pages may be available and no fetch is running
	StateIdle
	// StateFetching means exactly one page request is in flight
	StateFetching
	// StateExhausted means the server signalled the end of the scope
	StateExhausted
	// StateErrored means the last fetch failed; the next trigger retries it
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Item is a renderable list element with a server-assigned identity
type Item interface {
	ItemID() uint64
}

// RawPage is one page as returned by a Fetcher, before item mapping.
// HasMore must come from the server; the feed never infers it from the
// page size or from cursor contents.
type RawPage struct {
	NextPageURL string
	Items       []json.RawMessage
	HasMore     bool
}

// Fetcher performs a single GET against a page URL
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*RawPage, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, url string) (*RawPage, error)

// FetchPage calls f
func (f FetcherFunc) FetchPage(ctx context.Context, url string) (*RawPage, error) {
	return f(ctx, url)
}

// ItemFactory maps one raw server record to an item. It must be pure.
type ItemFactory[T Item] func(raw json.RawMessage) (T, error)

// Counter is a server-computed counter value together with the viewer's
// toggle state (e.g. like count and whether the viewer has liked).
type Counter struct {
	Value  uint64 `json:"value"`
	Active bool   `json:"active"`
}

// CounterPatcher is implemented by items that carry a toggleable counter
type CounterPatcher[T Item] interface {
	CounterActive() bool
	WithCounter(c Counter) T
}

// MutationChannel performs writes whose results are reconciled into the list.
// Every method returns the server's authoritative view of what it touched.
type MutationChannel[T Item] interface {
	Create(ctx context.Context, payload any) (T, error)
	Update(ctx context.Context, id uint64, payload any) (T, error)
	Delete(ctx context.Context, id uint64) error
	// ToggleCounter sets the viewer's toggle to active and returns the
	// resulting counter.
	ToggleCounter(ctx context.Context, id uint64, active bool) (Counter, error)
}

// Entry is a list slot. Deleted entries are tombstones: they keep their
// position but their content is no longer shown.
type Entry[T Item] struct {
	Item    T    `json:"item"`
	Deleted bool `json:"deleted"`
	Local   bool `json:"local"`
}

// Snapshot is a consistent copy of the state a view renders from
type Snapshot[T Item] struct {
	Err         error
	CreateDraft any
	EditDrafts  map[uint64]any
	Scope       Scope
	Entries     []Entry[T]
	State       State
	IsFetching  bool
	HasMore     bool
}

// Len returns the number of list slots, tombstones included
func (s Snapshot[T]) Len() int {
	return len(s.Entries)
}

// Visible returns the entries that are not tombstoned
func (s Snapshot[T]) Visible() []T {
	out := make([]T, 0, len(s.Entries))
	for _, e := range s.Entries {
		if !e.Deleted {
			out = append(out, e.Item)
		}
	}
	return out
}

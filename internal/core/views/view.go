// Package views hosts the feeds a browser session has mounted. A View hides
// the item type of its feed so handlers can drive every list the same way.
package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"Skillnet/internal/core/communities"
	"Skillnet/internal/core/feed"
)

// Kind names the list a view shows
type Kind string

const (
	KindPosts     Kind = "posts"
	KindCommunity Kind = "community"
	KindComments  Kind = "comments"
	KindProjects  Kind = "projects"
)

// ErrInvalidPayload is returned when a request body cannot be decoded into
// the draft type of the view
var ErrInvalidPayload = errors.New("invalid payload")

// Snapshot is the JSON form of a feed snapshot
type Snapshot struct {
	Entries      any                     `json:"entries"`
	CreateDraft  any                     `json:"createDraft,omitempty"`
	EditDrafts   map[uint64]any          `json:"editDrafts,omitempty"`
	Community    *communities.Resolution `json:"community,omitempty"`
	Key          string                  `json:"key"`
	Kind         Kind                    `json:"kind"`
	Scope        string                  `json:"scope"`
	State        string                  `json:"state"`
	Error        string                  `json:"error,omitempty"`
	EmptyMessage string                  `json:"emptyMessage,omitempty"`
	SeeAll       bool                    `json:"seeAll,omitempty"`
	IsFetching   bool                    `json:"isFetching"`
	HasMore      bool                    `json:"hasMore"`
}

// View is a mounted feed with its item type erased
type View interface {
	Key() string
	Kind() Kind
	Snapshot() Snapshot
	LoadMore(ctx context.Context) error
	Retry(ctx context.Context) error
	Create(ctx context.Context, payload json.RawMessage) (any, error)
	Update(ctx context.Context, id uint64, payload json.RawMessage) (any, error)
	Delete(ctx context.Context, id uint64) error
	ToggleCounter(ctx context.Context, id uint64) (feed.Counter, error)
	Subscribe(fn func()) func()
	Close()
}

// adapter erases T from a *feed.Feed[T]
type adapter[T feed.Item] struct {
	feed   *feed.Feed[T]
	decode func(json.RawMessage) (any, error)
	render func(feed.Snapshot[T], *Snapshot)
	// resolve binds a feed whose scope is looked up after mounting
	resolve func(ctx context.Context) error

	community *communities.Resolution
	// resolveErr is shown while the scope could not be resolved
	resolveErr error

	key  string
	kind Kind

	mu sync.Mutex
}

func (a *adapter[T]) Key() string { return a.key }
func (a *adapter[T]) Kind() Kind  { return a.kind }

func (a *adapter[T]) Snapshot() Snapshot {
	snap := a.feed.Snapshot()

	out := Snapshot{
		Entries:     snap.Entries,
		CreateDraft: snap.CreateDraft,
		Key:         a.key,
		Kind:        a.kind,
		Scope:       snap.Scope.Key(),
		State:       snap.State.String(),
		IsFetching:  snap.IsFetching,
		HasMore:     snap.HasMore,
	}
	if len(snap.EditDrafts) > 0 {
		out.EditDrafts = snap.EditDrafts
	}
	if snap.Err != nil {
		out.Error = feed.UserMessage(snap.Err)
	}

	a.mu.Lock()
	out.Community = a.community
	if a.resolveErr != nil && out.Error == "" {
		out.Error = feed.UserMessage(a.resolveErr)
	}
	a.mu.Unlock()

	if a.render != nil {
		a.render(snap, &out)
	}
	return out
}

func (a *adapter[T]) LoadMore(ctx context.Context) error { return a.feed.LoadMore(ctx) }

// Retry re-attempts a failed page fetch, or the scope lookup if that is what
// failed
func (a *adapter[T]) Retry(ctx context.Context) error {
	if a.resolve != nil && a.feed.State() == feed.StateUninitialized {
		if err := a.resolve(ctx); err != nil {
			return err
		}
		return a.feed.LoadMore(ctx)
	}
	return a.feed.Retry(ctx)
}

func (a *adapter[T]) Create(ctx context.Context, payload json.RawMessage) (any, error) {
	draft, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	return a.feed.Create(ctx, draft)
}

func (a *adapter[T]) Update(ctx context.Context, id uint64, payload json.RawMessage) (any, error) {
	draft, err := a.decode(payload)
	if err != nil {
		return nil, err
	}
	return a.feed.Update(ctx, id, draft)
}

func (a *adapter[T]) Delete(ctx context.Context, id uint64) error {
	return a.feed.Delete(ctx, id)
}

func (a *adapter[T]) ToggleCounter(ctx context.Context, id uint64) (feed.Counter, error) {
	return a.feed.ToggleCounter(ctx, id)
}

func (a *adapter[T]) Subscribe(fn func()) func() {
	return a.feed.Subscribe(fn)
}

func (a *adapter[T]) Close() {
	a.feed.Close()
}

func (a *adapter[T]) setCommunity(res *communities.Resolution, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.community = res
	a.resolveErr = err
}

// decodeInto returns a decoder for the draft type D
func decodeInto[D any]() func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		var d D
		if len(raw) == 0 {
			return nil, ErrInvalidPayload
		}
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return d, nil
	}
}

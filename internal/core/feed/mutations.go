package feed

import (
	"context"
	"errors"
	"fmt"

	"Skillnet/internal/core/notify"
)

var errNoMutations = errors.New("feed: no mutation channel configured")

// Create asks the server to create an item and prepends the returned item.
// On failure the list is untouched and payload is kept as the create draft.
func (f *Feed[T]) Create(ctx context.Context, payload any) (T, error) {
	var zero T

	gen, err := f.mutationGeneration()
	if err != nil {
		return zero, err
	}

	item, err := f.mutations.Create(ctx, payload)
	if err != nil {
		f.mu.Lock()
		if !f.closed && gen == f.generation {
			f.createDraft = payload
		}
		notifyFns := f.subscriberFns()
		f.mu.Unlock()

		f.failed("create", err)
		runAll(notifyFns)
		return zero, err
	}

	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug("feed: created item belongs to a stale scope", "noun", f.noun, "id", item.ItemID())
		return item, nil
	}
	f.list.prependLocal(item)
	f.createDraft = nil
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	f.bus.Toast(notify.LevelSuccess, titleCase(f.noun)+" created.", "Your "+f.noun+" has been created.")
	runAll(notifyFns)
	return item, nil
}

// Update replaces the item with id in place using exactly what the server
// returned. On failure the item keeps its previous content and payload is
// kept as that item's edit draft.
func (f *Feed[T]) Update(ctx context.Context, id uint64, payload any) (T, error) {
	var zero T

	gen, err := f.mutationTarget(id)
	if err != nil {
		return zero, err
	}

	item, err := f.mutations.Update(ctx, id, payload)
	if err != nil {
		f.mu.Lock()
		if !f.closed && gen == f.generation {
			f.editDrafts[id] = payload
		}
		notifyFns := f.subscriberFns()
		f.mu.Unlock()

		f.failed("update", err)
		runAll(notifyFns)
		return zero, err
	}

	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		return item, nil
	}
	if entry := f.list.find(id); entry != nil {
		entry.Item = item
	}
	delete(f.editDrafts, id)
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
	return item, nil
}

// Delete tombstones the item once the server confirms. The slot stays in
// the list so length and positions do not change.
func (f *Feed[T]) Delete(ctx context.Context, id uint64) error {
	gen, err := f.mutationTarget(id)
	if err != nil {
		return err
	}

	if err := f.mutations.Delete(ctx, id); err != nil {
		f.failed("delete", err)
		return err
	}

	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		return nil
	}
	if entry := f.list.find(id); entry != nil {
		entry.Deleted = true
	}
	delete(f.editDrafts, id)
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
	return nil
}

// ToggleCounter flips the viewer's toggle on the item (like/unlike) and sets
// the counter to the value the server returns. The counter is never
// incremented locally.
func (f *Feed[T]) ToggleCounter(ctx context.Context, id uint64) (Counter, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return Counter{}, ErrClosed
	}
	if f.mutations == nil {
		f.mu.Unlock()
		return Counter{}, errNoMutations
	}
	entry := f.list.find(id)
	if entry == nil {
		f.mu.Unlock()
		return Counter{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if entry.Deleted {
		f.mu.Unlock()
		return Counter{}, fmt.Errorf("%w: %d", ErrItemDeleted, id)
	}
	patcher, ok := any(entry.Item).(CounterPatcher[T])
	if !ok {
		f.mu.Unlock()
		return Counter{}, ErrCounterUnsupported
	}
	want := !patcher.CounterActive()
	gen := f.generation
	f.mu.Unlock()

	counter, err := f.mutations.ToggleCounter(ctx, id, want)
	if err != nil {
		op := "like"
		if !want {
			op = "unlike"
		}
		f.failed(op, err)
		return Counter{}, err
	}

	f.mu.Lock()
	if f.closed || gen != f.generation {
		f.mu.Unlock()
		return counter, nil
	}
	if entry := f.list.find(id); entry != nil {
		if p, ok := any(entry.Item).(CounterPatcher[T]); ok {
			entry.Item = p.WithCounter(counter)
		}
	}
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
	return counter, nil
}

// Patch applies fn to the item with id in place. It is used to reconcile
// server-computed fields that arrive from another view. It returns false if
// the item is not in the list.
func (f *Feed[T]) Patch(id uint64, fn func(T) T) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	entry := f.list.find(id)
	if entry == nil {
		f.mu.Unlock()
		return false
	}
	entry.Item = fn(entry.Item)
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
	return true
}

// DiscardDraft closes the edit UI for id, or the create form when id is 0
func (f *Feed[T]) DiscardDraft(id uint64) {
	f.mu.Lock()
	if id == 0 {
		f.createDraft = nil
	} else {
		delete(f.editDrafts, id)
	}
	notifyFns := f.subscriberFns()
	f.mu.Unlock()

	runAll(notifyFns)
}

func (f *Feed[T]) mutationGeneration() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if f.mutations == nil {
		return 0, errNoMutations
	}
	return f.generation, nil
}

func (f *Feed[T]) mutationTarget(id uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if f.mutations == nil {
		return 0, errNoMutations
	}
	entry := f.list.find(id)
	if entry == nil {
		return 0, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	if entry.Deleted {
		return 0, fmt.Errorf("%w: %d", ErrItemDeleted, id)
	}
	return f.generation, nil
}

// failed reports a mutation error to the user exactly once
func (f *Feed[T]) failed(op string, err error) {
	f.logger.Warn("feed: mutation failed", "noun", f.noun, "op", op, "error", err)
	f.bus.Toast(notify.LevelError, fmt.Sprintf("Failed to %s %s.", op, f.noun), UserMessage(err))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

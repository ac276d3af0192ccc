package view

import (
	"net/http"

	"Skillnet/internal/api/handlers"
	"Skillnet/internal/core/feed"
	"Skillnet/internal/core/views"
)

type itemResponse struct {
	Item     any            `json:"item"`
	Snapshot views.Snapshot `json:"snapshot"`
}

type counterResponse struct {
	Counter  feed.Counter   `json:"counter"`
	Snapshot views.Snapshot `json:"snapshot"`
}

// HandleSnapshot returns the current state of a view
// GET /api/views/{key}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// HandleLoadMore fetches the next page of a view
// POST /api/views/{key}/more
func (h *Handler) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	h.respondPaged(w, v, v.LoadMore(r.Context()))
}

// HandleRetry re-attempts a failed fetch
// POST /api/views/{key}/retry
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	h.respondPaged(w, v, v.Retry(r.Context()))
}

// respondPaged writes the snapshot after a fetch. A failed fetch is part of
// the snapshot (state "errored" with its message), so only errors that are
// not page failures become error responses.
func (h *Handler) respondPaged(w http.ResponseWriter, v views.View, err error) {
	if err != nil && !feed.IsNetworkError(err) {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// HandleCreate creates an item in a view
// POST /api/views/{key}/items
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	item, err := v.Create(r.Context(), body)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, itemResponse{Item: item, Snapshot: v.Snapshot()})
}

// HandleUpdate edits an item in place
// PATCH /api/views/{key}/items/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	item, err := v.Update(r.Context(), id, body)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, itemResponse{Item: item, Snapshot: v.Snapshot()})
}

// HandleDelete tombstones an item
// DELETE /api/views/{key}/items/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	if err := v.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, v.Snapshot())
}

// HandleToggleLike likes or unlikes an item
// POST /api/views/{key}/items/{id}/like
func (h *Handler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	v, ok := mounted(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}

	counter, err := v.ToggleCounter(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, counterResponse{Counter: counter, Snapshot: v.Snapshot()})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"watchdeck/models"
	"watchdeck/services/list"
)

type listService interface {
	Add(ctx context.Context, addedByID string, input models.ListItemUpsert) (models.ListItem, error)
	Update(ctx context.Context, id string, patch models.ListItemPatch) (models.ListItem, error)
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.ListItem, error)
	Get(ctx context.Context, id string) (models.ListItem, error)
	History(ctx context.Context, itemID string) ([]models.StatusChange, error)
}

var _ listService = (*list.Service)(nil)

type ListHandler struct {
	List listService
}

func NewListHandler(listSvc listService) *ListHandler {
	return &ListHandler{List: listSvc}
}

// Items returns the whole list in position order.
// GET /api/list
func (h *ListHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.List.List(r.Context())
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Item returns one list entry with its content and users attached.
// GET /api/list/{itemID}
func (h *ListHandler) Item(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["itemID"])
	item, err := h.List.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, list.ErrItemNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Add inserts content into the list. The authenticated user is
// recorded as the adder; requestedById defaults to them as well.
// POST /api/list
func (h *ListHandler) Add(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		writeJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var input models.ListItemUpsert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if input.RequestedByID == "" {
		input.RequestedByID = user.ID
	}

	item, err := h.List.Add(r.Context(), user.ID, input)
	if err != nil {
		switch {
		case errors.Is(err, list.ErrContentIDRequired),
			errors.Is(err, list.ErrRequesterRequired),
			errors.Is(err, list.ErrPositionRange),
			errors.Is(err, list.ErrInvalidStatus),
			errors.Is(err, list.ErrInvalidRating):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, list.ErrContentNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, list.ErrAlreadyListed):
			writeJSONError(w, err.Error(), http.StatusConflict)
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Update patches status, position, or rating of an item.
// PATCH /api/list/{itemID}
func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["itemID"])

	var patch models.ListItemPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.List.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, list.ErrItemNotFound):
			writeJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, list.ErrPositionRange),
			errors.Is(err, list.ErrInvalidStatus),
			errors.Is(err, list.ErrInvalidRating):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Remove deletes an item and closes the position gap it leaves.
// DELETE /api/list/{itemID}
func (h *ListHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["itemID"])
	if err := h.List.Remove(r.Context(), id); err != nil {
		if errors.Is(err, list.ErrItemNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History returns the status transitions of a list item, oldest first.
// GET /api/list/{itemID}/history
func (h *ListHandler) History(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(mux.Vars(r)["itemID"])
	changes, err := h.List.History(r.Context(), id)
	if err != nil {
		if errors.Is(err, list.ErrItemNotFound) {
			writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
)

// ActivityLedger records activities and serves the friends feed.
type ActivityLedger interface {
	Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateActivityRequest) (*model.ActivityView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ActivityView, error)
	Update(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateActivityRequest) (*model.ActivityView, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
	ListOwn(ctx context.Context, ownerID uuid.UUID) ([]model.ActivityView, error)
	ListFriendsFeed(ctx context.Context, userID uuid.UUID) ([]model.ActivityView, error)
}

type ActivityHandler struct {
	activities ActivityLedger
}

func NewActivityHandler(activities ActivityLedger) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List handles GET /activities
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	views, err := h.activities.ListOwn(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, views)
}

// Create handles POST /activities
func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.CreateActivityRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	view, err := h.activities.Create(r.Context(), userID, &req)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, view)
}

// Get handles GET /activities/{id}
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrActivityNotFound)
	if !ok {
		return
	}

	view, err := h.activities.Get(r.Context(), id)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

// Update handles PATCH /activities/{id}
func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrActivityNotFound)
	if !ok {
		return
	}

	var req model.UpdateActivityRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	view, err := h.activities.Update(r.Context(), userID, id, &req)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /activities/{id}
func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", model.ErrActivityNotFound)
	if !ok {
		return
	}

	if err := h.activities.Delete(r.Context(), userID, id); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FriendsFeed handles GET /activities/friends
func (h *ActivityHandler) FriendsFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	views, err := h.activities.ListFriendsFeed(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, views)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"syncactivity/internal/httputil"
	"syncactivity/internal/model"
)

// RelationshipService is the friend-request state machine.
type RelationshipService interface {
	SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*model.FriendRequestView, error)
	Accept(ctx context.Context, requestID, actorID uuid.UUID) (*model.FriendRequestView, error)
	Reject(ctx context.Context, requestID, actorID uuid.UUID) error
	Unfriend(ctx context.Context, actorID, friendID uuid.UUID) error
	ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error)
}

type FriendHandler struct {
	friends RelationshipService
}

func NewFriendHandler(friends RelationshipService) *FriendHandler {
	return &FriendHandler{friends: friends}
}

// ListFriends handles GET /friends
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	friends, err := h.friends.ListFriends(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, friends)
}

// ListPending handles GET /friends/requests/pending
func (h *FriendHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	requests, err := h.friends.ListPending(r.Context(), userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}
	if requests == nil {
		requests = []model.FriendRequestView{}
	}

	httputil.WriteJSON(w, http.StatusOK, requests)
}

// SendRequest handles POST /friends/requests/send
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req model.SendFriendRequestRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	raw := strings.TrimSpace(req.ReceiverID)
	if raw == "" {
		httputil.WriteBadRequest(w, "receiver_id is required")
		return
	}
	receiverID, err := uuid.Parse(raw)
	if err != nil {
		httputil.WriteDomainError(w, r, model.ErrUserNotFound)
		return
	}

	view, err := h.friends.SendRequest(r.Context(), userID, receiverID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, view)
}

// Accept handles POST /friends/requests/{id}/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "id", model.ErrFriendRequestNotFound)
	if !ok {
		return
	}

	req, err := h.friends.Accept(r.Context(), requestID, userID)
	if err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, req)
}

// Reject handles POST /friends/requests/{id}/reject
func (h *FriendHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "id", model.ErrFriendRequestNotFound)
	if !ok {
		return
	}

	if err := h.friends.Reject(r.Context(), requestID, userID); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Friend request rejected")
}

// Unfriend handles DELETE /friends/{id}/unfriend
func (h *FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	friendID, ok := pathID(w, r, "id", model.ErrUserNotFound)
	if !ok {
		return
	}

	if err := h.friends.Unfriend(r.Context(), userID, friendID); err != nil {
		httputil.WriteDomainError(w, r, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Friend removed successfully")
}

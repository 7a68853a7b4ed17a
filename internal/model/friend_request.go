package model

import (
	"time"

	"github.com/google/uuid"
)

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestRejected FriendRequestStatus = "rejected"
)

type FriendRequest struct {
	ID         uuid.UUID           `db:"id" json:"_id"`
	SenderID   uuid.UUID           `db:"sender_id" json:"-"`
	ReceiverID uuid.UUID           `db:"receiver_id" json:"-"`
	Status     FriendRequestStatus `db:"status" json:"status"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// IsPending reports whether the request can still be accepted or rejected.
func (r *FriendRequest) IsPending() bool {
	return r.Status == FriendRequestPending
}

// FriendRequestView is a request with both parties resolved for display.
type FriendRequestView struct {
	FriendRequest
	Sender   UserSummary `json:"sender"`
	Receiver UserSummary `json:"receiver"`
}

// SendFriendRequestRequest is the body for POST /friends/requests/send
type SendFriendRequestRequest struct {
	ReceiverID string `json:"receiver_id"`
}

var (
	ErrSelfRequest             = newError(KindValidation, "SELF_REQUEST", "Cannot send friend request to yourself")
	ErrAlreadyFriends          = newError(KindConflict, "ALREADY_FRIENDS", "Already friends")
	ErrDuplicatePending        = newError(KindConflict, "DUPLICATE_PENDING", "Friend request already exists")
	ErrFriendRequestNotFound   = newError(KindNotFound, "FRIEND_REQUEST_NOT_FOUND", "Friend request not found")
	ErrNotRequestReceiver      = newError(KindForbidden, "FORBIDDEN", "Unauthorized to respond to this request")
	ErrRequestAlreadyProcessed = newError(KindConflict, "ALREADY_PROCESSED", "Request already processed")
)

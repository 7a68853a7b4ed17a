package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"syncactivity/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, username, fullName string) (*model.User, error)
	UpdateProfilePicture(ctx context.Context, id uuid.UUID, url, key string) error
	Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error)
	// GetSummaries resolves ids to summaries; unknown ids are absent from the result.
	GetSummaries(ctx context.Context, ids []uuid.UUID) ([]model.UserSummary, error)
	// ExistingIDs filters ids down to those that reference a stored user.
	ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// FriendshipRepository stores the friend set. Each friendship is two rows, one
// per direction, and every write touches both.
type FriendshipRepository interface {
	AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error)
	Add(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error
	Remove(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error)
}

type FriendRequestRepository interface {
	Create(ctx context.Context, req *model.FriendRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error)
	// PendingExists checks the unordered pair, in either direction.
	PendingExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error)
	// MarkAccepted flips a pending request to accepted. It reports false when the
	// request was no longer pending.
	MarkAccepted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) (bool, error)
	// DeletePending removes the request only while it is still pending. It
	// reports false when the request was already answered or is gone.
	DeletePending(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)
	// DeleteBetween removes every request for the unordered pair, any status.
	DeleteBetween(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (int64, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	Update(ctx context.Context, activity *model.Activity) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Activity, error)
	ListByFriendsOf(ctx context.Context, userID uuid.UUID, limit int) ([]model.Activity, error)
}

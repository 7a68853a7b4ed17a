package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"syncactivity/internal/model"
)

type friendRequestRepository struct {
	db *sqlx.DB
}

func NewFriendRequestRepository(db *sqlx.DB) FriendRequestRepository {
	return &friendRequestRepository{db: db}
}

// Create inserts a pending request. The partial unique index on the normalized
// pair turns a racing duplicate into ErrDuplicatePending.
func (r *friendRequestRepository) Create(ctx context.Context, req *model.FriendRequest) error {
	query := `
		INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, req.ID, req.SenderID, req.ReceiverID, req.Status).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrDuplicatePending
		}
		return fmt.Errorf("failed to create friend request: %w", err)
	}
	return nil
}

func (r *friendRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.FriendRequest, error) {
	query := `
		SELECT id, sender_id, receiver_id, status, created_at, updated_at
		FROM friend_requests
		WHERE id = $1
	`
	var req model.FriendRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrFriendRequestNotFound
		}
		return nil, fmt.Errorf("failed to get friend request: %w", err)
	}
	return &req, nil
}

func (r *friendRequestRepository) PendingExists(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE status = 'pending'
			  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, otherID); err != nil {
		return false, fmt.Errorf("failed to check pending request: %w", err)
	}
	return exists, nil
}

func (r *friendRequestRepository) MarkAccepted(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE friend_requests
		SET status = 'accepted', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`
	result, err := tx.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to accept friend request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *friendRequestRepository) DeletePending(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error) {
	query := `DELETE FROM friend_requests WHERE id = $1 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete pending request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *friendRequestRepository) DeleteBetween(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM friend_requests
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`
	result, err := tx.ExecContext(ctx, query, userID, otherID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete friend requests: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// pendingRow is the flat join of a request with both parties.
type pendingRow struct {
	model.FriendRequest
	SenderUsername         string  `db:"sender_username"`
	SenderFullName         string  `db:"sender_full_name"`
	SenderProfilePicture   *string `db:"sender_profile_picture"`
	ReceiverUsername       string  `db:"receiver_username"`
	ReceiverFullName       string  `db:"receiver_full_name"`
	ReceiverProfilePicture *string `db:"receiver_profile_picture"`
}

// ListPending returns pending requests where userID is either party, newest first.
func (r *friendRequestRepository) ListPending(ctx context.Context, userID uuid.UUID) ([]model.FriendRequestView, error) {
	query := `
		SELECT fr.id, fr.sender_id, fr.receiver_id, fr.status, fr.created_at, fr.updated_at,
		       s.username AS sender_username, s.full_name AS sender_full_name,
		       s.profile_picture AS sender_profile_picture,
		       rc.username AS receiver_username, rc.full_name AS receiver_full_name,
		       rc.profile_picture AS receiver_profile_picture
		FROM friend_requests fr
		JOIN users s ON s.id = fr.sender_id
		JOIN users rc ON rc.id = fr.receiver_id
		WHERE fr.status = 'pending' AND (fr.sender_id = $1 OR fr.receiver_id = $1)
		ORDER BY fr.created_at DESC
	`
	var rows []pendingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	views := make([]model.FriendRequestView, 0, len(rows))
	for _, row := range rows {
		views = append(views, model.FriendRequestView{
			FriendRequest: row.FriendRequest,
			Sender: model.UserSummary{
				ID:             row.SenderID,
				Username:       row.SenderUsername,
				FullName:       row.SenderFullName,
				ProfilePicture: row.SenderProfilePicture,
			},
			Receiver: model.UserSummary{
				ID:             row.ReceiverID,
				Username:       row.ReceiverUsername,
				FullName:       row.ReceiverFullName,
				ProfilePicture: row.ReceiverProfilePicture,
			},
		})
	}
	return views, nil
}

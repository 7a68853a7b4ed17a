package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"syncactivity/internal/model"
)

type friendshipRepository struct {
	db *sqlx.DB
}

func NewFriendshipRepository(db *sqlx.DB) FriendshipRepository {
	return &friendshipRepository{db: db}
}

func (r *friendshipRepository) AreFriends(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, otherID); err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return exists, nil
}

// Add writes both directions. Rows that already exist are left alone, so a
// concurrent accept cannot create duplicates.
func (r *friendshipRepository) Add(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error {
	query := `
		INSERT INTO friendships (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, query, userID, otherID); err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

// Remove deletes both directions. Removing an absent friendship is not an error.
func (r *friendshipRepository) Remove(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) error {
	query := `
		DELETE FROM friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)
	`
	if _, err := tx.ExecContext(ctx, query, userID, otherID); err != nil {
		return fmt.Errorf("failed to remove friendship: %w", err)
	}
	return nil
}

func (r *friendshipRepository) ListFriends(ctx context.Context, userID uuid.UUID) ([]model.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.full_name, u.profile_picture
		FROM friendships f
		JOIN users u ON u.id = f.friend_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`
	friends := []model.UserSummary{}
	if err := r.db.SelectContext(ctx, &friends, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

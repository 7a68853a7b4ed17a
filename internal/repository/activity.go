package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"syncactivity/internal/model"
)

const activityColumns = `id, user_id, activity_name, type, status, start_time, end_time, distance,
		       calories, avg_time, live_data, participant_ids, created_at, updated_at`

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *model.Activity) error {
	query := `
		INSERT INTO activities (id, user_id, activity_name, type, status, start_time, end_time,
		                        distance, calories, avg_time, live_data, participant_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.UserID, a.Name, a.Type, a.Status, a.StartTime, a.EndTime,
		a.Distance, a.Calories, a.AvgTime, a.LiveData, a.ParticipantIDs,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (r *activityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`

	var a model.Activity
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &a, nil
}

// Update writes every mutable column and refreshes updated_at.
func (r *activityRepository) Update(ctx context.Context, a *model.Activity) error {
	query := `
		UPDATE activities
		SET activity_name = $2, status = $3, end_time = $4, distance = $5, calories = $6,
		    avg_time = $7, live_data = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.Name, a.Status, a.EndTime, a.Distance, a.Calories, a.AvgTime, a.LiveData,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrActivityNotFound
		}
		return fmt.Errorf("failed to update activity: %w", err)
	}
	return nil
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrActivityNotFound
	}
	return nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1 ORDER BY created_at DESC`

	activities := []model.Activity{}
	if err := r.db.SelectContext(ctx, &activities, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

// ListByFriendsOf returns the newest activities owned by userID's friends.
func (r *activityRepository) ListByFriendsOf(ctx context.Context, userID uuid.UUID, limit int) ([]model.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE user_id IN (SELECT friend_id FROM friendships WHERE user_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	activities := []model.Activity{}
	if err := r.db.SelectContext(ctx, &activities, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list friends activities: %w", err)
	}
	return activities, nil
}

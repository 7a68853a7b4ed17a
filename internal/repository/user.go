package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"syncactivity/internal/model"
)

const userColumns = `id, external_id, username, email, password_hashed, full_name, profile_picture,
		       profile_picture_key, age, gender, challenges, join_date`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. Unique violations on username or email surface as
// the matching conflict error.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (id, external_id, username, email, password_hashed, full_name, age, gender, challenges, join_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING join_date
	`

	if u.Challenges == nil {
		u.Challenges = pq.StringArray{}
	}

	err := r.db.QueryRowxContext(ctx, query,
		u.ID,
		u.ExternalID,
		u.Username,
		u.Email,
		u.PasswordHashed,
		u.FullName,
		u.Age,
		u.Gender,
		u.Challenges,
	).Scan(&u.JoinDate)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case "users_username_key":
				return model.ErrUsernameExists
			case "users_email_key":
				return model.ErrEmailExists
			}
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	var u model.User
	err := r.db.GetContext(ctx, &u, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, fullName string) (*model.User, error) {
	query := `
		UPDATE users SET username = $2, full_name = $3
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, username, fullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, model.ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &u, nil
}

func (r *userRepository) UpdateProfilePicture(ctx context.Context, id uuid.UUID, url, key string) error {
	query := `UPDATE users SET profile_picture = $2, profile_picture_key = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, url, key)
	if err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// Search matches an exact id first; otherwise it does a case-insensitive
// substring match over username, email and full name.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	users := []model.UserSummary{}

	if id, err := uuid.Parse(query); err == nil {
		err := r.db.SelectContext(ctx, &users,
			`SELECT id, username, full_name, profile_picture FROM users WHERE id = $1`, id)
		if err != nil {
			return nil, fmt.Errorf("failed to search users by id: %w", err)
		}
		if len(users) > 0 {
			return users, nil
		}
	}

	searchQuery := `
		SELECT id, username, full_name, profile_picture
		FROM users
		WHERE username ILIKE $1 OR email ILIKE $1 OR full_name ILIKE $1
		ORDER BY username
		LIMIT $2
	`

	err := r.db.SelectContext(ctx, &users, searchQuery, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []uuid.UUID) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT id, username, full_name, profile_picture FROM users WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &users, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}
	return users, nil
}

func (r *userRepository) ExistingIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	found := []uuid.UUID{}
	if len(ids) == 0 {
		return found, nil
	}

	query := `SELECT id FROM users WHERE id = ANY($1)`
	if err := r.db.SelectContext(ctx, &found, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("failed to check user ids: %w", err)
	}
	return found, nil
}

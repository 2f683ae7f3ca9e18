package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/messagely/messagely/internal/model"
)

// CreateUser inserts a new user. join_at and last_login_at are assigned
// by the database and written back into user.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING join_at, last_login_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
	).Scan(&user.JoinAt, &user.LastLoginAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user, including the stored password digest.
func (r *Repository) GetUser(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT username, password, first_name, last_name, phone, join_at, last_login_at
		FROM users
		WHERE username = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.JoinAt,
		&user.LastLoginAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetPasswordHash retrieves only the stored password digest for username.
func (r *Repository) GetPasswordHash(ctx context.Context, username string) (string, error) {
	query := `SELECT password FROM users WHERE username = $1`

	var hash string
	if err := r.pool.QueryRow(ctx, query, username).Scan(&hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}

	return hash, nil
}

// UpdateLastLogin advances last_login_at to the database clock.
// The value never moves backwards.
func (r *Repository) UpdateLastLogin(ctx context.Context, username string) (time.Time, error) {
	query := `
		UPDATE users
		SET last_login_at = GREATEST(last_login_at, now())
		WHERE username = $1
		RETURNING last_login_at
	`

	var lastLogin time.Time
	if err := r.pool.QueryRow(ctx, query, username).Scan(&lastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, fmt.Errorf("failed to update last login: %w", err)
	}

	return lastLogin, nil
}

// ListUsers retrieves the public attributes of all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]model.UserSummary, error) {
	query := `
		SELECT username, first_name, last_name, phone
		FROM users
		ORDER BY username
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserSummary, 0)
	for rows.Next() {
		var u model.UserSummary
		if err := rows.Scan(&u.Username, &u.FirstName, &u.LastName, &u.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keymint/keymint/internal/model"
)

// CreateUser inserts a new user. Duplicate usernames and emails surface
// as ErrUsernameExists / ErrEmailExists so callers can report a client
// error instead of an internal one.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, email, date_registered)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.DateRegistered,
	)

	if err != nil {
		if conflict := uniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `
		SELECT id, username, password_hash, email, date_registered, last_login
		FROM users
		WHERE username = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.DateRegistered,
		&user.LastLogin,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &user, nil
}

// RecordLogin appends an auth log entry and updates the user's
// last_login in one transaction. A verified login is either fully
// recorded or the verification fails; there is no partial state.
func (r *Repository) RecordLogin(ctx context.Context, userID, requestIP string, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO auth_logs (request_ip, request_timestamp, user_id) VALUES ($1, $2, $3)`,
		requestIP, now, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auth log: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`,
		now, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit login record: %w", err)
	}

	return nil
}

// CountAuthLogs returns the number of auth log entries for a user.
// Used by integration tests to assert exactly-once audit semantics.
func (r *Repository) CountAuthLogs(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM auth_logs WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count auth logs: %w", err)
	}
	return count, nil
}

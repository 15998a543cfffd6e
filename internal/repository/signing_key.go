package repository

import (
	"context"
	"fmt"

	"github.com/keymint/keymint/internal/model"
)

// InsertKey stores a sealed signing key and returns its assigned kid.
func (r *Repository) InsertKey(ctx context.Context, sealed string, expiresAt int64) (int64, error) {
	query := `
		INSERT INTO keys (key, exp)
		VALUES ($1, $2)
		RETURNING kid
	`

	var kid int64
	if err := r.pool.QueryRow(ctx, query, sealed, expiresAt).Scan(&kid); err != nil {
		return 0, fmt.Errorf("failed to insert key: %w", err)
	}

	return kid, nil
}

// CountValidKeys returns the number of keys with exp >= now.
func (r *Repository) CountValidKeys(ctx context.Context, now int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM keys
		WHERE exp >= $1
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count valid keys: %w", err)
	}

	return count, nil
}

// ListValidKeys returns all non-expired keys ordered by kid.
func (r *Repository) ListValidKeys(ctx context.Context, now int64) ([]model.SigningKey, error) {
	query := `
		SELECT kid, key, exp
		FROM keys
		WHERE exp >= $1
		ORDER BY kid
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list valid keys: %w", err)
	}
	defer rows.Close()

	var keys []model.SigningKey
	for rows.Next() {
		var key model.SigningKey
		if err := rows.Scan(&key.Kid, &key.Sealed, &key.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read keys: %w", err)
	}

	return keys, nil
}

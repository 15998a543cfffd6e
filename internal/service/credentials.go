// Package service implements the credential verification and
// registration core.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/keymint/keymint/internal/auth"
	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/repository"
)

// ErrUsernameRequired indicates a registration without a username.
var ErrUsernameRequired = errors.New("username is required")

// UserStore is the persistence surface the credential service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	RecordLogin(ctx context.Context, userID, requestIP string, now time.Time) error
}

// Credentials registers users and verifies login attempts.
type Credentials struct {
	store   UserStore
	hasher  *auth.Hasher
	logger  *slog.Logger
	metrics metrics.Recorder

	// decoyHash is verified against when the username does not exist,
	// so unknown-user and wrong-password attempts cost the same.
	decoyHash string
}

// NewCredentials creates the credential service. A nil recorder falls
// back to no-op metrics.
func NewCredentials(store UserStore, hasher *auth.Hasher, logger *slog.Logger, recorder metrics.Recorder) (*Credentials, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	decoy, err := hasher.Hash(auth.GeneratePassword())
	if err != nil {
		return nil, fmt.Errorf("hash decoy credential: %w", err)
	}

	return &Credentials{
		store:     store,
		hasher:    hasher,
		logger:    logger.With("component", "service.credentials"),
		metrics:   recorder,
		decoyHash: decoy,
	}, nil
}

// Register creates a user with a generated credential and returns the
// plaintext exactly once. Duplicate usernames or emails surface as the
// repository's conflict errors; an empty username is ErrUsernameRequired.
func (c *Credentials) Register(ctx context.Context, username, email string) (string, error) {
	if username == "" {
		return "", ErrUsernameRequired
	}

	password := auth.GeneratePassword()
	hash, err := c.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:             ulid.Make().String(),
		Username:       username,
		PasswordHash:   hash,
		DateRegistered: time.Now().UTC(),
	}
	if email != "" {
		user.Email = &email
	}

	if err := c.store.CreateUser(ctx, user); err != nil {
		return "", err
	}

	c.metrics.IncUserRegistered()
	c.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return password, nil
}

// Verify checks a login attempt. Unknown usernames and wrong passwords
// both return ResultInvalid with no side effects; a match writes one
// auth log entry (and last_login) before returning ResultAuthenticated.
func (c *Credentials) Verify(ctx context.Context, username, password, clientIP string, now time.Time) (model.VerificationResult, *model.User, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveVerifyDuration(time.Since(start)) }()

	user, err := c.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Burn a comparison against the decoy so a missing user
			// costs the same as a wrong password.
			_, _ = c.hasher.Verify(password, c.decoyHash)
			c.metrics.IncAuthAttempt("invalid")
			return model.ResultInvalid, nil, nil
		}
		c.metrics.IncAuthAttempt("error")
		return model.ResultInvalid, nil, fmt.Errorf("look up user: %w", err)
	}

	match, err := c.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		c.metrics.IncAuthAttempt("error")
		return model.ResultInvalid, nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		c.metrics.IncAuthAttempt("invalid")
		return model.ResultInvalid, nil, nil
	}

	if err := c.store.RecordLogin(ctx, user.ID, clientIP, now); err != nil {
		// A verify that cannot be recorded is reported as a failure,
		// never silently dropped.
		c.metrics.IncAuthAttempt("error")
		return model.ResultInvalid, nil, fmt.Errorf("record login: %w", err)
	}

	c.metrics.IncAuthAttempt("authenticated")
	c.logger.Info("user authenticated",
		slog.String("user_id", user.ID),
		slog.String("request_ip", clientIP),
	)

	return model.ResultAuthenticated, user, nil
}

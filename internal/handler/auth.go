package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/keymint/keymint/internal/middleware"
	"github.com/keymint/keymint/internal/model"
	"github.com/keymint/keymint/internal/repository"
	"github.com/keymint/keymint/internal/service"
)

// AuthHandler handles user registration and credential verification.
type AuthHandler struct {
	credentials *service.Credentials
	tokens      *service.TokenIssuer
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(credentials *service.Credentials, tokens *service.TokenIssuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

// registerRequest is the body of POST /register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates a user and returns the generated password once.
//
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	password, err := h.credentials.Register(r.Context(), req.Username, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameRequired):
			writeError(w, http.StatusBadRequest, "username is required")
		case errors.Is(err, repository.ErrUsernameExists), errors.Is(err, repository.ErrEmailExists):
			writeError(w, http.StatusBadRequest, "could not create user")
		default:
			h.logger.Error("registration failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"password": password})
}

// authRequest is the body of POST /auth.
type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Auth verifies a login attempt. Admission control has already run in
// middleware by the time this handler sees the request.
//
// POST /auth
func (h *AuthHandler) Auth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	now := time.Now()
	clientIP := middleware.ClientIP(r)

	result, user, err := h.credentials.Verify(r.Context(), req.Username, req.Password, clientIP, now)
	if err != nil {
		h.logger.Error("verification failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if result != model.ResultAuthenticated {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.tokens.Issue(r.Context(), user.ID, now)
	if err != nil {
		h.logger.Error("token issuance failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "authenticated",
		"token":   token,
	})
}

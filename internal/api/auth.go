// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/revue-go/internal/auth"
	"github.com/olegiv/revue-go/internal/store"
)

// SignupRequest represents the request body for requesting a confirmation code.
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// SignupResponse echoes the registered identity.
type SignupResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// TokenRequest represents the request body for exchanging a confirmation
// code for an access token.
type TokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

// TokenResponse carries the issued JWT.
type TokenResponse struct {
	Token string `json:"token"`
}

// Signup handles POST /api/v1/auth/signup
//
// Creates an account (or re-uses an existing one when the same
// username/email pair signs up again) and emails a fresh confirmation code.
// Re-signup with a matching pair is deliberately a 200, so users who lost
// the first email can request another code.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	validationErrors := make(map[string]string)
	if msg := validateUsername(req.Username); msg != "" {
		validationErrors["username"] = msg
	}
	if msg := validateEmail(req.Email); msg != "" {
		validationErrors["email"] = msg
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	user, err := h.queries.GetUserByUsername(ctx, req.Username)
	switch {
	case err == nil:
		// Existing user: the email must match, otherwise the username is taken.
		if !strings.EqualFold(user.Email, req.Email) {
			WriteValidationError(w, map[string]string{"username": "Username is already taken"})
			return
		}
	case errors.Is(err, sql.ErrNoRows):
		// New username: the email must not belong to someone else.
		if existing, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil && !strings.EqualFold(existing.Username, req.Username) {
			WriteValidationError(w, map[string]string{"email": "Email is already registered"})
			return
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			WriteInternalError(w, "Failed to check email")
			return
		}

		now := time.Now()
		user, err = h.queries.CreateUser(ctx, store.CreateUserParams{
			Username:  req.Username,
			Email:     req.Email,
			Role:      store.RoleUser,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			// A concurrent signup can slip past the pre-checks and hit the
			// UNIQUE index instead.
			switch {
			case store.IsUniqueViolation(err, "users.username"):
				WriteValidationError(w, map[string]string{"username": "Username is already taken"})
			case store.IsUniqueViolation(err, "users.email"):
				WriteValidationError(w, map[string]string{"email": "Email is already registered"})
			default:
				WriteInternalError(w, "Failed to create user")
			}
			return
		}
		slog.Info("signup created user", "username", user.Username, "user_id", user.ID)
	default:
		WriteInternalError(w, "Failed to check username")
		return
	}

	code, err := auth.GenerateCode()
	if err != nil {
		WriteInternalError(w, "Failed to generate confirmation code")
		return
	}
	codeHash, err := auth.HashCode(code)
	if err != nil {
		WriteInternalError(w, "Failed to store confirmation code")
		return
	}
	if err := h.queries.UpdateConfirmationCode(ctx, store.UpdateConfirmationCodeParams{
		ID:                   user.ID,
		ConfirmationCodeHash: codeHash,
		UpdatedAt:            time.Now(),
	}); err != nil {
		WriteInternalError(w, "Failed to store confirmation code")
		return
	}

	h.mailer.SendConfirmationCode(user.Email, user.Username, code)

	WriteSuccess(w, SignupResponse{
		Email:    user.Email,
		Username: user.Username,
	}, nil)
}

// Token handles POST /api/v1/auth/token
//
// Exchanges a username plus confirmation code for a JWT access token.
// An unknown username is a 404 so that clients can distinguish "no such
// account" from "wrong code".
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if req.Username == "" {
		validationErrors["username"] = "Username is required"
	}
	if req.ConfirmationCode == "" {
		validationErrors["confirmation_code"] = "Confirmation code is required"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	user, err := h.queries.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "User not found")
		} else {
			WriteInternalError(w, "Failed to look up user")
		}
		return
	}

	if user.ConfirmationCodeHash == "" {
		WriteValidationError(w, map[string]string{"confirmation_code": "Confirmation code is invalid"})
		return
	}

	valid, err := auth.VerifyCode(req.ConfirmationCode, user.ConfirmationCodeHash)
	if err != nil || !valid {
		slog.Warn("confirmation code rejected", "username", user.Username)
		WriteValidationError(w, map[string]string{"confirmation_code": "Confirmation code is invalid"})
		return
	}

	token, err := auth.GenerateAccessToken(h.tokens, &user)
	if err != nil {
		slog.Error("token signing failed", "error", err)
		WriteInternalError(w, "Failed to issue token")
		return
	}

	WriteSuccess(w, TokenResponse{Token: token}, nil)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/revue-go/internal/auth"
	"github.com/olegiv/revue-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser is the context key for the authenticated user.
const ContextKeyUser ContextKey = "user"

// APIError represents a JSON error response for the API.
type APIError struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteAPIError writes a JSON error response.
func WriteAPIError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	apiErr := APIError{}
	apiErr.Error.Code = code
	apiErr.Error.Message = message
	apiErr.Error.Details = details

	_ = json.NewEncoder(w).Encode(apiErr)
}

// validateToken parses the Authorization header and loads the token's user.
// If required is true and validation fails, writes an error response.
// The second return value indicates if an error response was written.
func validateToken(w http.ResponseWriter, r *http.Request, queries *store.Queries, cfg auth.TokenConfig, required bool) (*store.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if required {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing Authorization header", nil)
			return nil, true
		}
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		if required {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
			return nil, true
		}
		return nil, false
	}

	claims, err := auth.ParseToken(cfg, parts[1])
	if err != nil {
		if required {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
			return nil, true
		}
		return nil, false
	}

	userID, err := auth.UserIDFromClaims(claims)
	if err != nil {
		if required {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid token subject", nil)
			return nil, true
		}
		return nil, false
	}

	user, err := queries.GetUserByID(r.Context(), userID)
	if err != nil {
		if required {
			if errors.Is(err, sql.ErrNoRows) {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Token user no longer exists", nil)
			} else {
				slog.Error("failed to load token user", "error", err)
				WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token", nil)
			}
			return nil, true
		}
		return nil, false
	}

	return &user, false
}

// RequireAuth creates middleware that validates JWT authentication and
// loads the current user into the request context.
func RequireAuth(db *sql.DB, cfg auth.TokenConfig) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, errorWritten := validateToken(w, r, queries, cfg, true)
			if errorWritten {
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth creates middleware that loads the current user into context
// if a valid token is provided, and continues anonymously otherwise.
func OptionalAuth(db *sql.DB, cfg auth.TokenConfig) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, _ := validateToken(w, r, queries, cfg, false)
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, *user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin creates middleware that requires an admin user in context.
// This should be used after RequireAuth middleware.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
				return
			}
			if !user.IsAdmin() {
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Administrator privileges required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *store.User {
	user, ok := r.Context().Value(ContextKeyUser).(store.User)
	if !ok {
		return nil
	}
	return &user
}

// GetUserID returns the current user's ID from context, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetUserID(r *http.Request) int64 {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return 0
}

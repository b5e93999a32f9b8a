// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
)

// UserAPIResponse represents a user in API responses.
type UserAPIResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// CreateUserRequest represents the request body for creating a user.
type CreateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user.
// Absent fields are left unchanged.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Role      *string `json:"role,omitempty"`
}

// userToResponse converts a store.User to UserAPIResponse.
func userToResponse(u store.User) UserAPIResponse {
	return UserAPIResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}

// Me handles GET /api/v1/users/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}
	WriteSuccess(w, userToResponse(*user), nil)
}

// UpdateMe handles PATCH /api/v1/users/me
//
// A non-admin caller may not change their own role; the field is ignored
// rather than rejected so clients can PATCH back a previously fetched
// profile document unchanged.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Not authenticated")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	if !user.IsAdmin() {
		req.Role = nil
	}

	updated, ok := h.applyUserUpdate(r.Context(), w, *user, req)
	if !ok {
		return
	}
	WriteSuccess(w, userToResponse(updated), nil)
}

// ListUsers handles GET /api/v1/users
// Admin only: returns users with optional username search.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 50, 100)
	offset := (page - 1) * perPage
	search := r.URL.Query().Get("search")

	users, err := h.queries.ListUsers(ctx, store.ListUsersParams{
		Search: search,
		Limit:  int64(perPage),
		Offset: int64(offset),
	})
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}

	total, err := h.queries.CountUsers(ctx, search)
	if err != nil {
		WriteInternalError(w, "Failed to count users")
		return
	}

	responses := make([]UserAPIResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, userToResponse(u))
	}

	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// CreateUser handles POST /api/v1/users
// Admin only: creates a user directly, without the signup flow.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	if req.Role == "" {
		req.Role = store.RoleUser
	}

	validationErrors := make(map[string]string)
	if msg := validateUsername(req.Username); msg != "" {
		validationErrors["username"] = msg
	}
	if msg := validateEmail(req.Email); msg != "" {
		validationErrors["email"] = msg
	}
	if msg := validateRole(req.Role); msg != "" {
		validationErrors["role"] = msg
	}
	if len(req.FirstName) > MaxNameLength {
		validationErrors["first_name"] = "First name is too long"
	}
	if len(req.LastName) > MaxNameLength {
		validationErrors["last_name"] = "Last name is too long"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if _, err := h.queries.GetUserByUsername(ctx, req.Username); err == nil {
		WriteValidationError(w, map[string]string{"username": "Username is already taken"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		WriteInternalError(w, "Failed to check username")
		return
	}
	if _, err := h.queries.GetUserByEmail(ctx, req.Email); err == nil {
		WriteValidationError(w, map[string]string{"email": "Email is already registered"})
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		WriteInternalError(w, "Failed to check email")
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Username:  req.Username,
		Email:     req.Email,
		Role:      req.Role,
		Bio:       h.sanitizer.Sanitize(req.Bio),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
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

	slog.Info("admin created user", "username", user.Username, "role", user.Role,
		"by", middleware.GetUserID(r))
	WriteCreated(w, userToResponse(user))
}

// GetUserByName handles GET /api/v1/users/{username}
// Admin only.
func (h *Handler) GetUserByName(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUserByName(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, userToResponse(user), nil)
}

// UpdateUserByName handles PATCH /api/v1/users/{username}
// Admin only.
func (h *Handler) UpdateUserByName(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUserByName(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	updated, ok := h.applyUserUpdate(r.Context(), w, user, req)
	if !ok {
		return
	}
	WriteSuccess(w, userToResponse(updated), nil)
}

// DeleteUserByName handles DELETE /api/v1/users/{username}
// Admin only. The user's reviews and comments are removed by cascade.
func (h *Handler) DeleteUserByName(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUserByName(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteUser(r.Context(), user.ID); err != nil {
		WriteInternalError(w, "Failed to delete user")
		return
	}

	slog.Info("admin deleted user", "username", user.Username, "by", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// requireUserByName fetches the user named by the {username} URL parameter.
// Returns the user and true, or writes an error response and returns false.
func (h *Handler) requireUserByName(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	username := chi.URLParam(r, "username")
	if username == "" {
		WriteBadRequest(w, "Invalid username", nil)
		return store.User{}, false
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "User not found")
		} else {
			WriteInternalError(w, "Failed to retrieve user")
		}
		return store.User{}, false
	}
	return user, true
}

// applyUserUpdate validates and persists a partial user update.
// Returns the updated user and true, or writes an error response and
// returns false.
func (h *Handler) applyUserUpdate(ctx context.Context, w http.ResponseWriter, existing store.User, req UpdateUserRequest) (store.User, bool) {
	params := store.UpdateUserParams{
		ID:        existing.ID,
		Username:  existing.Username,
		Email:     existing.Email,
		Role:      existing.Role,
		Bio:       existing.Bio,
		FirstName: existing.FirstName,
		LastName:  existing.LastName,
		UpdatedAt: time.Now(),
	}

	validationErrors := make(map[string]string)

	if req.Username != nil && *req.Username != existing.Username {
		if msg := validateUsername(*req.Username); msg != "" {
			validationErrors["username"] = msg
		} else if _, err := h.queries.GetUserByUsername(ctx, *req.Username); err == nil {
			validationErrors["username"] = "Username is already taken"
		} else if !errors.Is(err, sql.ErrNoRows) {
			WriteInternalError(w, "Failed to check username")
			return store.User{}, false
		}
		params.Username = *req.Username
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, existing.Email) {
		if msg := validateEmail(*req.Email); msg != "" {
			validationErrors["email"] = msg
		} else if _, err := h.queries.GetUserByEmail(ctx, *req.Email); err == nil {
			validationErrors["email"] = "Email is already registered"
		} else if !errors.Is(err, sql.ErrNoRows) {
			WriteInternalError(w, "Failed to check email")
			return store.User{}, false
		}
		params.Email = *req.Email
	}
	if req.Role != nil {
		if msg := validateRole(*req.Role); msg != "" {
			validationErrors["role"] = msg
		}
		params.Role = *req.Role
	}
	if req.FirstName != nil {
		if len(*req.FirstName) > MaxNameLength {
			validationErrors["first_name"] = "First name is too long"
		}
		params.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		if len(*req.LastName) > MaxNameLength {
			validationErrors["last_name"] = "Last name is too long"
		}
		params.LastName = *req.LastName
	}
	if req.Bio != nil {
		params.Bio = h.sanitizer.Sanitize(*req.Bio)
	}

	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return store.User{}, false
	}

	updated, err := h.queries.UpdateUser(ctx, params)
	if err != nil {
		WriteInternalError(w, "Failed to update user")
		return store.User{}, false
	}
	return updated, true
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default bootstrap admin identity. The admin obtains a confirmation code
// through the regular signup flow using these credentials.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@example.com"
)

// Seed creates the bootstrap admin account when seeding is enabled and no
// account with the default username exists yet.
func Seed(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)

	_, err := queries.GetUserByUsername(ctx, DefaultAdminUsername)
	if err == nil {
		slog.Info("admin user already exists, skipping seed")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:    DefaultAdminUsername,
		Email:       DefaultAdminEmail,
		Role:        RoleAdmin,
		IsStaff:     true,
		IsSuperuser: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created bootstrap admin user",
		"id", user.ID,
		"username", user.Username,
		"email", user.Email,
		"note", "request a confirmation code via POST /api/v1/auth/signup",
	)

	return nil
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const userColumns = `id, username, email, role, bio, first_name, last_name,
	is_staff, is_superuser, confirmation_code_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Role,
		&u.Bio,
		&u.FirstName,
		&u.LastName,
		&u.IsStaff,
		&u.IsSuperuser,
		&u.ConfirmationCodeHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Username             string
	Email                string
	Role                 string
	Bio                  string
	FirstName            string
	LastName             string
	IsStaff              bool
	IsSuperuser          bool
	ConfirmationCodeHash string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateUser inserts a new user and returns the created row.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, role, bio, first_name, last_name,
			is_staff, is_superuser, confirmation_code_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.Role, arg.Bio, arg.FirstName, arg.LastName,
		arg.IsStaff, arg.IsSuperuser, arg.ConfirmationCodeHash, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername fetches a user by exact username.
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetUserByEmail fetches a user by email. The email column is declared
// COLLATE NOCASE, so the match is case-insensitive.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// ListUsersParams holds the fields for ListUsers.
type ListUsersParams struct {
	Search string // optional username substring match
	Limit  int64
	Offset int64
}

// ListUsers returns users ordered by username, optionally filtered by a
// username substring.
func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE (?1 = '' OR username LIKE '%' || ?1 || '%')
		ORDER BY username
		LIMIT ?2 OFFSET ?3`,
		arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of users matching the optional username
// substring filter.
func (q *Queries) CountUsers(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users
		WHERE (?1 = '' OR username LIKE '%' || ?1 || '%')`,
		search,
	).Scan(&count)
	return count, err
}

// UpdateUserParams holds the fields for UpdateUser.
type UpdateUserParams struct {
	ID        int64
	Username  string
	Email     string
	Role      string
	Bio       string
	FirstName string
	LastName  string
	UpdatedAt time.Time
}

// UpdateUser updates a user's profile fields and returns the updated row.
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE users
		SET username = ?, email = ?, role = ?, bio = ?, first_name = ?, last_name = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+userColumns,
		arg.Username, arg.Email, arg.Role, arg.Bio, arg.FirstName, arg.LastName, arg.UpdatedAt, arg.ID,
	)
	return scanUser(row)
}

// UpdateConfirmationCodeParams holds the fields for UpdateConfirmationCode.
type UpdateConfirmationCodeParams struct {
	ID                   int64
	ConfirmationCodeHash string
	UpdatedAt            time.Time
}

// UpdateConfirmationCode rotates the stored confirmation code hash.
func (q *Queries) UpdateConfirmationCode(ctx context.Context, arg UpdateConfirmationCodeParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE users SET confirmation_code_hash = ?, updated_at = ? WHERE id = ?`,
		arg.ConfirmationCodeHash, arg.UpdatedAt, arg.ID,
	)
	return err
}

// DeleteUser removes a user. Reviews and comments authored by the user are
// removed by cascade.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	return err
}

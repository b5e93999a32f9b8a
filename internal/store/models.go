// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User roles
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRoles contains all valid user roles.
var ValidRoles = []string{RoleUser, RoleModerator, RoleAdmin}

// IsValidRole reports whether role is one of the known user roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Review score bounds
const (
	ScoreMin = 1
	ScoreMax = 10
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth   = "auth"
	EventCategoryUser   = "user"
	EventCategoryTitle  = "title"
	EventCategoryReview = "review"
	EventCategorySystem = "system"
)

// User represents a platform account.
type User struct {
	ID                   int64     `json:"id"`
	Username             string    `json:"username"`
	Email                string    `json:"email"`
	Role                 string    `json:"role"`
	Bio                  string    `json:"bio"`
	FirstName            string    `json:"first_name"`
	LastName             string    `json:"last_name"`
	IsStaff              bool      `json:"-"`
	IsSuperuser          bool      `json:"-"`
	ConfirmationCodeHash string    `json:"-"` // Never expose in JSON
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role, the staff flag or
// the superuser flag.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff || u.IsSuperuser
}

// IsModerator returns true if the user has the moderator role.
func (u *User) IsModerator() bool {
	return u.Role == RoleModerator
}

// Category is the single-valued classification of a title.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Genre is a multi-valued classification of a title.
type Genre struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// Title represents a reviewable work.
type Title struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Year        int64          `json:"year"`
	CategoryID  int64          `json:"category_id"`
	Description sql.NullString `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Review is a scored user review of a title. At most one review exists
// per (title, author) pair.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"title_id"`
	AuthorID int64     `json:"author_id"`
	Text     string    `json:"text"`
	Score    int64     `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// Comment is a user comment on a review.
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"review_id"`
	AuthorID int64     `json:"author_id"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

// Event represents a system event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string // JSON string
	CreatedAt time.Time
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/olegiv/revue-go/internal/store"
)

const (
	// MaxUsernameLength mirrors the 150-character account name limit.
	MaxUsernameLength = 150
	// MaxEmailLength is the RFC 5321 address length limit.
	MaxEmailLength = 254
	// MaxNameLength bounds first/last name fields.
	MaxNameLength = 150
	// MaxTitleNameLength bounds title and taxonomy names.
	MaxTitleNameLength = 256
	// MaxSlugLength bounds taxonomy slugs.
	MaxSlugLength = 50
)

// usernameRegex permits letters, digits and the @ . + - _ punctuation set.
var usernameRegex = regexp.MustCompile(`^[\w.@+-]+$`)

// validateUsername returns an error message, or "" when the username is valid.
// The name "me" is reserved for the current-user endpoint.
func validateUsername(username string) string {
	if username == "" {
		return "Username is required"
	}
	if len(username) > MaxUsernameLength {
		return fmt.Sprintf("Username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return "Username may contain only letters, digits and @/./+/-/_ characters"
	}
	if strings.EqualFold(username, "me") {
		return `Username "me" is reserved`
	}
	return ""
}

// validateEmail returns an error message, or "" when the email is valid.
func validateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if len(email) > MaxEmailLength {
		return fmt.Sprintf("Email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "Email is not a valid address"
	}
	return ""
}

// validateRole returns an error message, or "" when the role is valid.
func validateRole(role string) string {
	if !store.IsValidRole(role) {
		return "Role must be one of: " + strings.Join(store.ValidRoles, ", ")
	}
	return ""
}

// validateYear returns an error message, or "" when the year is valid.
// Future years are rejected; works cannot be reviewed before they exist.
func validateYear(year int64) string {
	current := int64(time.Now().Year())
	if year > current {
		return fmt.Sprintf("Year must not be later than %d", current)
	}
	return ""
}

// validateScore returns an error message, or "" when the score is valid.
func validateScore(score int64) string {
	if score < store.ScoreMin || score > store.ScoreMax {
		return fmt.Sprintf("Score must be between %d and %d", store.ScoreMin, store.ScoreMax)
	}
	return ""
}

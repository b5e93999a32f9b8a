// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
)

// ReviewAPIResponse represents a review in API responses.
type ReviewAPIResponse struct {
	ID      int64     `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Score   int64     `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

// ReviewWriteRequest represents the request body for creating a review.
type ReviewWriteRequest struct {
	Text  string `json:"text"`
	Score int64  `json:"score"`
}

// ReviewPatchRequest represents the request body for partially updating a
// review.
type ReviewPatchRequest struct {
	Text  *string `json:"text,omitempty"`
	Score *int64  `json:"score,omitempty"`
}

func reviewRowToResponse(row store.ReviewRow) ReviewAPIResponse {
	return ReviewAPIResponse{
		ID:      row.ID,
		Author:  row.AuthorUsername,
		Text:    row.Text,
		Score:   row.Score,
		PubDate: row.PubDate,
	}
}

// requireTitleParam fetches the title named by the {title_id} URL parameter.
func (h *Handler) requireTitleParam(w http.ResponseWriter, r *http.Request) (store.TitleRow, bool) {
	return requireEntityParam(w, r, "title_id", "title", func(id int64) (store.TitleRow, error) {
		return h.queries.GetTitleByID(r.Context(), id)
	})
}

// requireReviewParam fetches the review named by the {review_id} URL
// parameter and checks it belongs to the title from the URL. A review
// reached through the wrong title is reported as not found.
func (h *Handler) requireReviewParam(w http.ResponseWriter, r *http.Request, title store.TitleRow) (store.ReviewRow, bool) {
	review, ok := requireEntityParam(w, r, "review_id", "review", func(id int64) (store.ReviewRow, error) {
		return h.queries.GetReviewByID(r.Context(), id)
	})
	if !ok {
		return store.ReviewRow{}, false
	}
	if review.TitleID != title.ID {
		WriteNotFound(w, "Review not found")
		return store.ReviewRow{}, false
	}
	return review, true
}

// canModerateContent reports whether user may modify content authored by
// authorID. Authors manage their own content; moderators and admins manage
// anyone's.
func canModerateContent(user *store.User, authorID int64) bool {
	return user.ID == authorID || user.IsModerator() || user.IsAdmin()
}

// ListReviews handles GET /api/v1/titles/{title_id}/reviews
// Public.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return
	}

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 20, 100)

	rows, err := h.queries.ListReviewsForTitle(ctx, store.ListReviewsForTitleParams{
		TitleID: title.ID,
		Limit:   int64(perPage),
		Offset:  int64((page - 1) * perPage),
	})
	if err != nil {
		WriteInternalError(w, "Failed to list reviews")
		return
	}

	total, err := h.queries.CountReviewsForTitle(ctx, title.ID)
	if err != nil {
		WriteInternalError(w, "Failed to count reviews")
		return
	}

	responses := make([]ReviewAPIResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, reviewRowToResponse(row))
	}
	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// GetReview handles GET /api/v1/titles/{title_id}/reviews/{review_id}
// Public.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return
	}
	review, ok := h.requireReviewParam(w, r, title)
	if !ok {
		return
	}
	WriteSuccess(w, reviewRowToResponse(review), nil)
}

// CreateReview handles POST /api/v1/titles/{title_id}/reviews
// Authenticated. Each user may review a title once.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ReviewWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if req.Text == "" {
		validationErrors["text"] = "Text is required"
	}
	if msg := validateScore(req.Score); msg != "" {
		validationErrors["score"] = msg
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	existing, err := h.queries.ReviewExists(ctx, store.ReviewExistsParams{
		TitleID:  title.ID,
		AuthorID: user.ID,
	})
	if err != nil {
		WriteInternalError(w, "Failed to check existing review")
		return
	}
	if existing > 0 {
		WriteValidationError(w, map[string]string{
			"title": "You have already reviewed this title",
		})
		return
	}

	review, err := h.queries.CreateReview(ctx, store.CreateReviewParams{
		TitleID:  title.ID,
		AuthorID: user.ID,
		Text:     h.sanitizer.Sanitize(req.Text),
		Score:    req.Score,
		PubDate:  time.Now(),
	})
	if err != nil {
		WriteInternalError(w, "Failed to create review")
		return
	}

	row, err := h.queries.GetReviewByID(ctx, review.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load created review")
		return
	}

	slog.Info("review created", "review_id", review.ID, "title_id", title.ID, "author", user.Username)
	WriteCreated(w, reviewRowToResponse(row))
}

// UpdateReview handles PATCH /api/v1/titles/{title_id}/reviews/{review_id}
// Author, moderator or admin.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return
	}
	review, ok := h.requireReviewParam(w, r, title)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}
	if !canModerateContent(user, review.AuthorID) {
		WriteForbidden(w, "You may only edit your own reviews")
		return
	}

	var req ReviewPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	params := store.UpdateReviewParams{
		ID:    review.ID,
		Text:  review.Text,
		Score: review.Score,
	}

	validationErrors := make(map[string]string)
	if req.Text != nil {
		if *req.Text == "" {
			validationErrors["text"] = "Text is required"
		}
		params.Text = h.sanitizer.Sanitize(*req.Text)
	}
	if req.Score != nil {
		if msg := validateScore(*req.Score); msg != "" {
			validationErrors["score"] = msg
		}
		params.Score = *req.Score
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if _, err := h.queries.UpdateReview(ctx, params); err != nil {
		WriteInternalError(w, "Failed to update review")
		return
	}

	row, err := h.queries.GetReviewByID(ctx, review.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load updated review")
		return
	}
	WriteSuccess(w, reviewRowToResponse(row), nil)
}

// DeleteReview handles DELETE /api/v1/titles/{title_id}/reviews/{review_id}
// Author, moderator or admin. Comments follow by cascade.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return
	}
	review, ok := h.requireReviewParam(w, r, title)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}
	if !canModerateContent(user, review.AuthorID) {
		WriteForbidden(w, "You may only delete your own reviews")
		return
	}

	if err := h.queries.DeleteReview(ctx, review.ID); err != nil {
		WriteInternalError(w, "Failed to delete review")
		return
	}

	slog.Info("review deleted", "review_id", review.ID, "title_id", title.ID, "by", user.Username)
	w.WriteHeader(http.StatusNoContent)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
)

// CommentAPIResponse represents a comment in API responses.
type CommentAPIResponse struct {
	ID      int64     `json:"id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	PubDate time.Time `json:"pub_date"`
}

// CommentWriteRequest represents the request body for creating or updating
// a comment.
type CommentWriteRequest struct {
	Text string `json:"text"`
}

func commentRowToResponse(row store.CommentRow) CommentAPIResponse {
	return CommentAPIResponse{
		ID:      row.ID,
		Author:  row.AuthorUsername,
		Text:    row.Text,
		PubDate: row.PubDate,
	}
}

// requireCommentPath resolves the title and review from the URL. The review
// must belong to the title.
func (h *Handler) requireCommentPath(w http.ResponseWriter, r *http.Request) (store.ReviewRow, bool) {
	title, ok := h.requireTitleParam(w, r)
	if !ok {
		return store.ReviewRow{}, false
	}
	return h.requireReviewParam(w, r, title)
}

// requireCommentParam fetches the comment named by the {comment_id} URL
// parameter and checks it belongs to the review from the URL.
func (h *Handler) requireCommentParam(w http.ResponseWriter, r *http.Request, review store.ReviewRow) (store.CommentRow, bool) {
	comment, ok := requireEntityParam(w, r, "comment_id", "comment", func(id int64) (store.CommentRow, error) {
		return h.queries.GetCommentByID(r.Context(), id)
	})
	if !ok {
		return store.CommentRow{}, false
	}
	if comment.ReviewID != review.ID {
		WriteNotFound(w, "Comment not found")
		return store.CommentRow{}, false
	}
	return comment, true
}

// ListComments handles GET /api/v1/titles/{title_id}/reviews/{review_id}/comments
// Public.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	review, ok := h.requireCommentPath(w, r)
	if !ok {
		return
	}

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 20, 100)

	rows, err := h.queries.ListCommentsForReview(ctx, store.ListCommentsForReviewParams{
		ReviewID: review.ID,
		Limit:    int64(perPage),
		Offset:   int64((page - 1) * perPage),
	})
	if err != nil {
		WriteInternalError(w, "Failed to list comments")
		return
	}

	total, err := h.queries.CountCommentsForReview(ctx, review.ID)
	if err != nil {
		WriteInternalError(w, "Failed to count comments")
		return
	}

	responses := make([]CommentAPIResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, commentRowToResponse(row))
	}
	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// GetComment handles GET /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
// Public.
func (h *Handler) GetComment(w http.ResponseWriter, r *http.Request) {
	review, ok := h.requireCommentPath(w, r)
	if !ok {
		return
	}
	comment, ok := h.requireCommentParam(w, r, review)
	if !ok {
		return
	}
	WriteSuccess(w, commentRowToResponse(comment), nil)
}

// CreateComment handles POST /api/v1/titles/{title_id}/reviews/{review_id}/comments
// Authenticated.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	review, ok := h.requireCommentPath(w, r)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CommentWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if req.Text == "" {
		WriteValidationError(w, map[string]string{"text": "Text is required"})
		return
	}

	comment, err := h.queries.CreateComment(ctx, store.CreateCommentParams{
		ReviewID: review.ID,
		AuthorID: user.ID,
		Text:     h.sanitizer.Sanitize(req.Text),
		PubDate:  time.Now(),
	})
	if err != nil {
		WriteInternalError(w, "Failed to create comment")
		return
	}

	row, err := h.queries.GetCommentByID(ctx, comment.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load created comment")
		return
	}
	WriteCreated(w, commentRowToResponse(row))
}

// UpdateComment handles PATCH /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
// Author, moderator or admin.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	review, ok := h.requireCommentPath(w, r)
	if !ok {
		return
	}
	comment, ok := h.requireCommentParam(w, r, review)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}
	if !canModerateContent(user, comment.AuthorID) {
		WriteForbidden(w, "You may only edit your own comments")
		return
	}

	var req CommentWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if req.Text == "" {
		WriteValidationError(w, map[string]string{"text": "Text is required"})
		return
	}

	if _, err := h.queries.UpdateComment(ctx, store.UpdateCommentParams{
		ID:   comment.ID,
		Text: h.sanitizer.Sanitize(req.Text),
	}); err != nil {
		WriteInternalError(w, "Failed to update comment")
		return
	}

	row, err := h.queries.GetCommentByID(ctx, comment.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load updated comment")
		return
	}
	WriteSuccess(w, commentRowToResponse(row), nil)
}

// DeleteComment handles DELETE /api/v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}
// Author, moderator or admin.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	review, ok := h.requireCommentPath(w, r)
	if !ok {
		return
	}
	comment, ok := h.requireCommentParam(w, r, review)
	if !ok {
		return
	}
	user := middleware.GetUser(r)
	if user == nil {
		WriteUnauthorized(w, "Authentication required")
		return
	}
	if !canModerateContent(user, comment.AuthorID) {
		WriteForbidden(w, "You may only delete your own comments")
		return
	}

	if err := h.queries.DeleteComment(ctx, comment.ID); err != nil {
		WriteInternalError(w, "Failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
	"github.com/olegiv/revue-go/internal/util"
)

// TaxonomyAPIResponse represents a category or genre in API responses.
type TaxonomyAPIResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreateTaxonomyRequest represents the request body for creating a category
// or genre. The slug is generated from the name when omitted.
type CreateTaxonomyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// validateTaxonomyRequest validates the shared name/slug shape and fills in
// a generated slug when none was supplied. Returns field errors.
func validateTaxonomyRequest(req *CreateTaxonomyRequest) map[string]string {
	validationErrors := make(map[string]string)
	if req.Name == "" {
		validationErrors["name"] = "Name is required"
	} else if len(req.Name) > MaxTitleNameLength {
		validationErrors["name"] = "Name is too long"
	}

	if req.Slug == "" && req.Name != "" {
		req.Slug = util.Slugify(req.Name)
	}
	if req.Slug == "" || !util.IsValidSlug(req.Slug) {
		validationErrors["slug"] = "Slug must contain only lowercase letters, numbers and hyphens"
	} else if len(req.Slug) > MaxSlugLength {
		validationErrors["slug"] = "Slug is too long"
	}
	return validationErrors
}

// ============================================================================
// Category Endpoints
// ============================================================================

// ListCategories handles GET /api/v1/categories
// Public: returns categories with optional name search.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 50, 100)
	offset := (page - 1) * perPage
	search := r.URL.Query().Get("search")

	categories, err := h.queries.ListCategories(ctx, store.ListTaxonomyParams{
		Search: search,
		Limit:  int64(perPage),
		Offset: int64(offset),
	})
	if err != nil {
		WriteInternalError(w, "Failed to list categories")
		return
	}

	total, err := h.queries.CountCategories(ctx, search)
	if err != nil {
		WriteInternalError(w, "Failed to count categories")
		return
	}

	responses := make([]TaxonomyAPIResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, TaxonomyAPIResponse{Name: c.Name, Slug: c.Slug})
	}

	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// CreateCategory handles POST /api/v1/categories
// Admin only.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTaxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	if validationErrors := validateTaxonomyRequest(&req); len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	exists, err := h.queries.CategorySlugExists(ctx, req.Slug)
	if err != nil {
		WriteInternalError(w, "Failed to check slug")
		return
	}
	if exists > 0 {
		WriteValidationError(w, map[string]string{"slug": "Slug already exists"})
		return
	}

	category, err := h.queries.CreateCategory(ctx, store.CreateCategoryParams{
		Name:      req.Name,
		Slug:      req.Slug,
		CreatedAt: time.Now(),
	})
	if err != nil {
		WriteInternalError(w, "Failed to create category")
		return
	}

	WriteCreated(w, TaxonomyAPIResponse{Name: category.Name, Slug: category.Slug})
}

// DeleteCategory handles DELETE /api/v1/categories/{slug}
// Admin only. A category referenced by titles cannot be removed.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category, ok := h.requireCategoryBySlug(w, r)
	if !ok {
		return
	}

	inUse, err := h.queries.CountTitlesForCategory(ctx, category.ID)
	if err != nil {
		WriteInternalError(w, "Failed to check category usage")
		return
	}
	if inUse > 0 {
		WriteConflict(w, "category_in_use", "Cannot delete a category that is assigned to titles. Reassign those titles first.")
		return
	}

	if err := h.queries.DeleteCategory(ctx, category.ID); err != nil {
		WriteInternalError(w, "Failed to delete category")
		return
	}

	slog.Info("category deleted", "slug", category.Slug, "by", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Genre Endpoints
// ============================================================================

// ListGenres handles GET /api/v1/genres
// Public: returns genres with optional name search.
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 50, 100)
	offset := (page - 1) * perPage
	search := r.URL.Query().Get("search")

	genres, err := h.queries.ListGenres(ctx, store.ListTaxonomyParams{
		Search: search,
		Limit:  int64(perPage),
		Offset: int64(offset),
	})
	if err != nil {
		WriteInternalError(w, "Failed to list genres")
		return
	}

	total, err := h.queries.CountGenres(ctx, search)
	if err != nil {
		WriteInternalError(w, "Failed to count genres")
		return
	}

	responses := make([]TaxonomyAPIResponse, 0, len(genres))
	for _, g := range genres {
		responses = append(responses, TaxonomyAPIResponse{Name: g.Name, Slug: g.Slug})
	}

	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// CreateGenre handles POST /api/v1/genres
// Admin only.
func (h *Handler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateTaxonomyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	if validationErrors := validateTaxonomyRequest(&req); len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	exists, err := h.queries.GenreSlugExists(ctx, req.Slug)
	if err != nil {
		WriteInternalError(w, "Failed to check slug")
		return
	}
	if exists > 0 {
		WriteValidationError(w, map[string]string{"slug": "Slug already exists"})
		return
	}

	genre, err := h.queries.CreateGenre(ctx, store.CreateGenreParams{
		Name:      req.Name,
		Slug:      req.Slug,
		CreatedAt: time.Now(),
	})
	if err != nil {
		WriteInternalError(w, "Failed to create genre")
		return
	}

	WriteCreated(w, TaxonomyAPIResponse{Name: genre.Name, Slug: genre.Slug})
}

// DeleteGenre handles DELETE /api/v1/genres/{slug}
// Admin only. Titles keep existing; the genre is detached from them.
func (h *Handler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	genre, ok := h.requireGenreBySlug(w, r)
	if !ok {
		return
	}

	if err := h.queries.DeleteGenre(r.Context(), genre.ID); err != nil {
		WriteInternalError(w, "Failed to delete genre")
		return
	}

	slog.Info("genre deleted", "slug", genre.Slug, "by", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Helper Functions
// ============================================================================

// requireCategoryBySlug fetches the category named by the {slug} URL parameter.
func (h *Handler) requireCategoryBySlug(w http.ResponseWriter, r *http.Request) (store.Category, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Invalid category slug", nil)
		return store.Category{}, false
	}

	category, err := h.queries.GetCategoryBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Category not found")
		} else {
			WriteInternalError(w, "Failed to retrieve category")
		}
		return store.Category{}, false
	}
	return category, true
}

// requireGenreBySlug fetches the genre named by the {slug} URL parameter.
func (h *Handler) requireGenreBySlug(w http.ResponseWriter, r *http.Request) (store.Genre, bool) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		WriteBadRequest(w, "Invalid genre slug", nil)
		return store.Genre{}, false
	}

	genre, err := h.queries.GetGenreBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Genre not found")
		} else {
			WriteInternalError(w, "Failed to retrieve genre")
		}
		return store.Genre{}, false
	}
	return genre, true
}

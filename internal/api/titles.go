// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/service"
	"github.com/olegiv/revue-go/internal/store"
	"github.com/olegiv/revue-go/internal/util"
)

// TitleAPIResponse represents a title in API responses. Rating is the mean
// review score rounded to one decimal, or null when unreviewed.
type TitleAPIResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Year        int64                 `json:"year"`
	Rating      *float64              `json:"rating"`
	Description string                `json:"description,omitempty"`
	Genres      []TaxonomyAPIResponse `json:"genre"`
	Category    TaxonomyAPIResponse   `json:"category"`
}

// TitleWriteRequest represents the request body for creating a title.
// Category and genres are referenced by slug.
type TitleWriteRequest struct {
	Name        string   `json:"name"`
	Year        int64    `json:"year"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Genres      []string `json:"genre"`
}

// TitlePatchRequest represents the request body for partially updating a
// title. Absent fields are left unchanged.
type TitlePatchRequest struct {
	Name        *string   `json:"name,omitempty"`
	Year        *int64    `json:"year,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Genres      *[]string `json:"genre,omitempty"`
}

// roundedRating converts the aggregated score into the response form.
func roundedRating(rating sql.NullFloat64) *float64 {
	if !rating.Valid {
		return nil
	}
	v := math.Round(rating.Float64*10) / 10
	return &v
}

// titleRowToResponse converts a store.TitleRow plus its genres to a response.
func titleRowToResponse(row store.TitleRow, genres []store.Genre) TitleAPIResponse {
	resp := TitleAPIResponse{
		ID:     row.ID,
		Name:   row.Name,
		Year:   row.Year,
		Rating: roundedRating(row.Rating),
		Genres: make([]TaxonomyAPIResponse, 0, len(genres)),
		Category: TaxonomyAPIResponse{
			Name: row.CategoryName,
			Slug: row.CategorySlug,
		},
	}
	if row.Description.Valid {
		resp.Description = row.Description.String
	}
	for _, g := range genres {
		resp.Genres = append(resp.Genres, TaxonomyAPIResponse{Name: g.Name, Slug: g.Slug})
	}
	return resp
}

// parseTitleFilter extracts the title listing filter from query parameters.
func parseTitleFilter(r *http.Request) service.TitleFilter {
	q := r.URL.Query()

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 20, 100)

	f := service.TitleFilter{
		Name:         q.Get("name"),
		CategorySlug: q.Get("category"),
		GenreSlugs:   q["genre"],
		Search:       q.Get("search"),
		Ordering:     q.Get("ordering"),
		Limit:        int64(perPage),
		Offset:       int64((page - 1) * perPage),
	}
	f.Year, f.YearSet = ParseQueryInt64(r, "year")
	f.YearGT, f.YearGTSet = ParseQueryInt64(r, "year__gt")
	f.YearLT, f.YearLTSet = ParseQueryInt64(r, "year__lt")
	f.YearFrom, f.YearFromSet = ParseQueryInt64(r, "year_range_after")
	f.YearTo, f.YearToSet = ParseQueryInt64(r, "year_range_before")
	return f
}

// ListTitles handles GET /api/v1/titles
// Public: returns titles with filtering, search, ordering and pagination.
func (h *Handler) ListTitles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := ParsePageParam(r)
	perPage := ParsePerPageParam(r, 20, 100)
	filter := parseTitleFilter(r)

	rows, err := h.titles.ListTitles(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to list titles")
		return
	}

	total, err := h.titles.CountTitles(ctx, filter)
	if err != nil {
		WriteInternalError(w, "Failed to count titles")
		return
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	genresByTitle, err := h.titles.GenresByTitle(ctx, ids)
	if err != nil {
		WriteInternalError(w, "Failed to load genres")
		return
	}

	responses := make([]TitleAPIResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, titleRowToResponse(row, genresByTitle[row.ID]))
	}

	WriteSuccess(w, responses, paginationMeta(total, page, perPage))
}

// GetTitle handles GET /api/v1/titles/{title_id}
// Public.
func (h *Handler) GetTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	row, ok := requireEntityParam(w, r, "title_id", "title", func(id int64) (store.TitleRow, error) {
		return h.queries.GetTitleByID(ctx, id)
	})
	if !ok {
		return
	}

	genres, err := h.queries.ListGenresForTitle(ctx, row.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load genres")
		return
	}

	WriteSuccess(w, titleRowToResponse(row, genres), nil)
}

// CreateTitle handles POST /api/v1/titles
// Admin only.
func (h *Handler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req TitleWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	validationErrors := make(map[string]string)
	if req.Name == "" {
		validationErrors["name"] = "Name is required"
	} else if len(req.Name) > MaxTitleNameLength {
		validationErrors["name"] = "Name is too long"
	}
	if msg := validateYear(req.Year); msg != "" {
		validationErrors["year"] = msg
	}
	if req.Category == "" {
		validationErrors["category"] = "Category is required"
	}
	if len(req.Genres) == 0 {
		validationErrors["genre"] = "At least one genre is required"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	category, genres, ok := h.resolveTitleRefs(ctx, w, req.Category, req.Genres)
	if !ok {
		return
	}

	// The insert and genre attachments commit together, so a failed attach
	// cannot leave a genreless title behind.
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		WriteInternalError(w, "Failed to create title")
		return
	}
	defer func() { _ = tx.Rollback() }()
	qtx := h.queries.WithTx(tx)

	title, err := qtx.CreateTitle(ctx, store.CreateTitleParams{
		Name:        req.Name,
		Year:        req.Year,
		CategoryID:  category.ID,
		Description: util.NullStringFromValue(req.Description),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		WriteInternalError(w, "Failed to create title")
		return
	}

	for _, g := range genres {
		if err := qtx.AddTitleGenre(ctx, store.AddTitleGenreParams{TitleID: title.ID, GenreID: g.ID}); err != nil {
			WriteInternalError(w, "Failed to attach genres")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		WriteInternalError(w, "Failed to create title")
		return
	}

	row, err := h.queries.GetTitleByID(ctx, title.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load created title")
		return
	}

	slog.Info("title created", "title_id", title.ID, "by", middleware.GetUserID(r))
	WriteCreated(w, titleRowToResponse(row, genres))
}

// UpdateTitle handles PATCH /api/v1/titles/{title_id}
// Admin only. Absent fields are left unchanged; a present genre list
// replaces the attached genres wholesale.
func (h *Handler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, ok := requireEntityParam(w, r, "title_id", "title", func(id int64) (store.TitleRow, error) {
		return h.queries.GetTitleByID(ctx, id)
	})
	if !ok {
		return
	}

	var req TitlePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	params := store.UpdateTitleParams{
		ID:          existing.ID,
		Name:        existing.Name,
		Year:        existing.Year,
		CategoryID:  existing.CategoryID,
		Description: existing.Description,
	}

	validationErrors := make(map[string]string)
	if req.Name != nil {
		if *req.Name == "" {
			validationErrors["name"] = "Name is required"
		} else if len(*req.Name) > MaxTitleNameLength {
			validationErrors["name"] = "Name is too long"
		}
		params.Name = *req.Name
	}
	if req.Year != nil {
		if msg := validateYear(*req.Year); msg != "" {
			validationErrors["year"] = msg
		}
		params.Year = *req.Year
	}
	if req.Genres != nil && len(*req.Genres) == 0 {
		validationErrors["genre"] = "At least one genre is required"
	}
	if len(validationErrors) > 0 {
		WriteValidationError(w, validationErrors)
		return
	}

	if req.Description != nil {
		params.Description = util.NullStringFromValue(*req.Description)
	}
	if req.Category != nil {
		category, err := h.queries.GetCategoryBySlug(ctx, *req.Category)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteValidationError(w, map[string]string{"category": "Category not found"})
			} else {
				WriteInternalError(w, "Failed to resolve category")
			}
			return
		}
		params.CategoryID = category.ID
	}

	var newGenres []store.Genre
	if req.Genres != nil {
		var ok bool
		_, newGenres, ok = h.resolveTitleRefs(ctx, w, "", *req.Genres)
		if !ok {
			return
		}
	}

	// Field updates and genre replacement commit together.
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		WriteInternalError(w, "Failed to update title")
		return
	}
	defer func() { _ = tx.Rollback() }()
	qtx := h.queries.WithTx(tx)

	if _, err := qtx.UpdateTitle(ctx, params); err != nil {
		WriteInternalError(w, "Failed to update title")
		return
	}

	if req.Genres != nil {
		if err := qtx.ClearTitleGenres(ctx, existing.ID); err != nil {
			WriteInternalError(w, "Failed to update genres")
			return
		}
		for _, g := range newGenres {
			if err := qtx.AddTitleGenre(ctx, store.AddTitleGenreParams{TitleID: existing.ID, GenreID: g.ID}); err != nil {
				WriteInternalError(w, "Failed to update genres")
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		WriteInternalError(w, "Failed to update title")
		return
	}

	row, err := h.queries.GetTitleByID(ctx, existing.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load updated title")
		return
	}
	genres, err := h.queries.ListGenresForTitle(ctx, existing.ID)
	if err != nil {
		WriteInternalError(w, "Failed to load genres")
		return
	}

	WriteSuccess(w, titleRowToResponse(row, genres), nil)
}

// DeleteTitle handles DELETE /api/v1/titles/{title_id}
// Admin only. Reviews and comments follow by cascade.
func (h *Handler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	existing, ok := requireEntityParam(w, r, "title_id", "title", func(id int64) (store.TitleRow, error) {
		return h.queries.GetTitleByID(ctx, id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeleteTitle(ctx, existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete title")
		return
	}

	slog.Info("title deleted", "title_id", existing.ID, "by", middleware.GetUserID(r))
	w.WriteHeader(http.StatusNoContent)
}

// resolveTitleRefs resolves a category slug (skipped when empty) and a set
// of genre slugs into rows. Writes a validation error naming the missing
// slug on failure.
func (h *Handler) resolveTitleRefs(ctx context.Context, w http.ResponseWriter, categorySlug string, genreSlugs []string) (store.Category, []store.Genre, bool) {
	var category store.Category
	if categorySlug != "" {
		var err error
		category, err = h.queries.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteValidationError(w, map[string]string{"category": "Category not found"})
			} else {
				WriteInternalError(w, "Failed to resolve category")
			}
			return store.Category{}, nil, false
		}
	}

	genres := make([]store.Genre, 0, len(genreSlugs))
	seen := make(map[string]bool, len(genreSlugs))
	for _, slug := range genreSlugs {
		if seen[slug] {
			continue
		}
		seen[slug] = true

		genre, err := h.queries.GetGenreBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteValidationError(w, map[string]string{"genre": "Genre not found: " + slug})
			} else {
				WriteInternalError(w, "Failed to resolve genre")
			}
			return store.Category{}, nil, false
		}
		genres = append(genres, genre)
	}
	return category, genres, true
}

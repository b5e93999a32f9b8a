// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic services.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/olegiv/revue-go/internal/store"
)

// TitleService provides filtered title listings. The filter combination is
// dynamic, so the WHERE clause is built as direct SQL instead of a fixed
// store query.
type TitleService struct {
	db      *sql.DB
	queries *store.Queries
}

// NewTitleService creates a new title service.
func NewTitleService(db *sql.DB) *TitleService {
	return &TitleService{db: db, queries: store.New(db)}
}

// TitleFilter holds the supported filter, search, and ordering parameters
// for title listings. Zero values mean "not set".
type TitleFilter struct {
	Name         string  // substring match on name
	Year         int64   // exact year
	YearSet      bool
	YearGT       int64   // strictly after
	YearGTSet    bool
	YearLT       int64   // strictly before
	YearLTSet    bool
	YearFrom     int64   // inclusive range start
	YearFromSet  bool
	YearTo       int64   // inclusive range end
	YearToSet    bool
	CategorySlug string
	GenreSlugs   []string // any-of match
	Search       string   // substring match on name or description
	Ordering     string   // one of name, year, rating, id; "-" prefix for descending
	Limit        int64
	Offset       int64
}

// orderColumns is the allow-list of sortable columns. Anything else in
// Ordering falls back to the id column.
var orderColumns = map[string]string{
	"name":   "t.name",
	"year":   "t.year",
	"rating": "rating",
	"id":     "t.id",
}

// orderClause translates an ordering parameter into a safe ORDER BY clause.
func orderClause(ordering string) string {
	direction := "ASC"
	if strings.HasPrefix(ordering, "-") {
		direction = "DESC"
		ordering = ordering[1:]
	}

	column, ok := orderColumns[ordering]
	if !ok {
		column = "t.id"
	}

	// Secondary sort on id keeps pagination stable
	if column == "t.id" {
		return fmt.Sprintf(" ORDER BY t.id %s", direction)
	}
	return fmt.Sprintf(" ORDER BY %s %s, t.id ASC", column, direction)
}

// buildWhere assembles the WHERE clause and its arguments for a filter.
func (s *TitleService) buildWhere(f TitleFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Name != "" {
		clauses = append(clauses, "t.name LIKE '%' || ? || '%'")
		args = append(args, f.Name)
	}
	if f.YearSet {
		clauses = append(clauses, "t.year = ?")
		args = append(args, f.Year)
	}
	if f.YearGTSet {
		clauses = append(clauses, "t.year > ?")
		args = append(args, f.YearGT)
	}
	if f.YearLTSet {
		clauses = append(clauses, "t.year < ?")
		args = append(args, f.YearLT)
	}
	if f.YearFromSet {
		clauses = append(clauses, "t.year >= ?")
		args = append(args, f.YearFrom)
	}
	if f.YearToSet {
		clauses = append(clauses, "t.year <= ?")
		args = append(args, f.YearTo)
	}
	if f.CategorySlug != "" {
		clauses = append(clauses, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if len(f.GenreSlugs) > 0 {
		placeholders := strings.Repeat("?,", len(f.GenreSlugs))
		placeholders = placeholders[:len(placeholders)-1]
		clauses = append(clauses, fmt.Sprintf(`t.id IN (
			SELECT tg.title_id FROM title_genres tg
			JOIN genres g ON g.id = tg.genre_id
			WHERE g.slug IN (%s))`, placeholders))
		for _, slug := range f.GenreSlugs {
			args = append(args, slug)
		}
	}
	if f.Search != "" {
		clauses = append(clauses, "(t.name LIKE '%' || ? || '%' OR t.description LIKE '%' || ? || '%')")
		args = append(args, f.Search, f.Search)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListTitles returns titles matching the filter, with category and rating.
func (s *TitleService) ListTitles(ctx context.Context, f TitleFilter) ([]store.TitleRow, error) {
	where, args := s.buildWhere(f)

	query := `
		SELECT t.id, t.name, t.year, t.category_id, t.description, t.created_at,
		       c.name, c.slug, AVG(r.score) AS rating
		FROM titles t
		JOIN categories c ON c.id = t.category_id
		LEFT JOIN reviews r ON r.title_id = t.id` +
		where +
		` GROUP BY t.id` +
		orderClause(f.Ordering) +
		` LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	defer rows.Close()

	var titles []store.TitleRow
	for rows.Next() {
		var t store.TitleRow
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Year, &t.CategoryID, &t.Description, &t.CreatedAt,
			&t.CategoryName, &t.CategorySlug, &t.Rating,
		); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// CountTitles returns the number of titles matching the filter.
func (s *TitleService) CountTitles(ctx context.Context, f TitleFilter) (int64, error) {
	where, args := s.buildWhere(f)

	query := `
		SELECT COUNT(DISTINCT t.id)
		FROM titles t
		JOIN categories c ON c.id = t.category_id` + where

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting titles: %w", err)
	}
	return count, nil
}

// GenresByTitle loads the genres for a batch of titles in one query,
// keyed by title ID. Avoids a query per row when rendering listings.
func (s *TitleService) GenresByTitle(ctx context.Context, titleIDs []int64) (map[int64][]store.Genre, error) {
	result := make(map[int64][]store.Genre)
	if len(titleIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(titleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(titleIDs))
	for i, id := range titleIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT tg.title_id, g.id, g.name, g.slug, g.created_at
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id IN (%s)
		ORDER BY g.name`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("loading genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var titleID int64
		var g store.Genre
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning genre: %w", err)
		}
		result[titleID] = append(result[titleID], g)
	}
	return result, rows.Err()
}

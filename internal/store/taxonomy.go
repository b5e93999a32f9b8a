// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// CreateCategoryParams holds the fields for CreateCategory.
type CreateCategoryParams struct {
	Name      string
	Slug      string
	CreatedAt time.Time
}

// CreateCategory inserts a new category and returns the created row.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, created_at)
		VALUES (?, ?, ?)
		RETURNING id, name, slug, created_at`,
		arg.Name, arg.Slug, arg.CreatedAt,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	return c, err
}

// GetCategoryBySlug fetches a category by slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM categories WHERE slug = ?`, slug,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt)
	return c, err
}

// ListTaxonomyParams holds the fields for category and genre listing.
type ListTaxonomyParams struct {
	Search string // optional name substring match
	Limit  int64
	Offset int64
}

// ListCategories returns categories ordered by name, optionally filtered by
// a name substring.
func (q *Queries) ListCategories(ctx context.Context, arg ListTaxonomyParams) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, slug, created_at FROM categories
		WHERE (?1 = '' OR name LIKE '%' || ?1 || '%')
		ORDER BY name
		LIMIT ?2 OFFSET ?3`,
		arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CountCategories returns the number of categories matching the optional
// name substring filter.
func (q *Queries) CountCategories(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE (?1 = '' OR name LIKE '%' || ?1 || '%')`,
		search,
	).Scan(&count)
	return count, err
}

// CategorySlugExists returns a non-zero count if the slug is taken.
func (q *Queries) CategorySlugExists(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ?`, slug,
	).Scan(&count)
	return count, err
}

// CountTitlesForCategory returns the number of titles referencing a category.
func (q *Queries) CountTitlesForCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM titles WHERE category_id = ?`, categoryID,
	).Scan(&count)
	return count, err
}

// DeleteCategory removes a category. The caller must ensure no titles still
// reference it; the schema enforces this with ON DELETE RESTRICT.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	return err
}

// CreateGenreParams holds the fields for CreateGenre.
type CreateGenreParams struct {
	Name      string
	Slug      string
	CreatedAt time.Time
}

// CreateGenre inserts a new genre and returns the created row.
func (q *Queries) CreateGenre(ctx context.Context, arg CreateGenreParams) (Genre, error) {
	var g Genre
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO genres (name, slug, created_at)
		VALUES (?, ?, ?)
		RETURNING id, name, slug, created_at`,
		arg.Name, arg.Slug, arg.CreatedAt,
	).Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt)
	return g, err
}

// GetGenreBySlug fetches a genre by slug.
func (q *Queries) GetGenreBySlug(ctx context.Context, slug string) (Genre, error) {
	var g Genre
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM genres WHERE slug = ?`, slug,
	).Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt)
	return g, err
}

// ListGenres returns genres ordered by name, optionally filtered by a name
// substring.
func (q *Queries) ListGenres(ctx context.Context, arg ListTaxonomyParams) ([]Genre, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, slug, created_at FROM genres
		WHERE (?1 = '' OR name LIKE '%' || ?1 || '%')
		ORDER BY name
		LIMIT ?2 OFFSET ?3`,
		arg.Search, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// CountGenres returns the number of genres matching the optional name
// substring filter.
func (q *Queries) CountGenres(ctx context.Context, search string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM genres
		WHERE (?1 = '' OR name LIKE '%' || ?1 || '%')`,
		search,
	).Scan(&count)
	return count, err
}

// GenreSlugExists returns a non-zero count if the slug is taken.
func (q *Queries) GenreSlugExists(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM genres WHERE slug = ?`, slug,
	).Scan(&count)
	return count, err
}

// DeleteGenre removes a genre. Join rows in title_genres are removed by
// cascade; titles themselves are untouched.
func (q *Queries) DeleteGenre(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM genres WHERE id = ?`, id)
	return err
}

// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// TitleRow is a title joined with its category and the derived review-score
// average. Rating is NULL when the title has no reviews.
type TitleRow struct {
	Title
	CategoryName string
	CategorySlug string
	Rating       sql.NullFloat64
}

const titleRowQuery = `
	SELECT t.id, t.name, t.year, t.category_id, t.description, t.created_at,
	       c.name, c.slug, AVG(r.score)
	FROM titles t
	JOIN categories c ON c.id = t.category_id
	LEFT JOIN reviews r ON r.title_id = t.id`

func scanTitleRow(row interface{ Scan(...any) error }) (TitleRow, error) {
	var t TitleRow
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Year,
		&t.CategoryID,
		&t.Description,
		&t.CreatedAt,
		&t.CategoryName,
		&t.CategorySlug,
		&t.Rating,
	)
	return t, err
}

// CreateTitleParams holds the fields for CreateTitle.
type CreateTitleParams struct {
	Name        string
	Year        int64
	CategoryID  int64
	Description sql.NullString
	CreatedAt   time.Time
}

// CreateTitle inserts a new title and returns the created row.
func (q *Queries) CreateTitle(ctx context.Context, arg CreateTitleParams) (Title, error) {
	var t Title
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO titles (name, year, category_id, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, name, year, category_id, description, created_at`,
		arg.Name, arg.Year, arg.CategoryID, arg.Description, arg.CreatedAt,
	).Scan(&t.ID, &t.Name, &t.Year, &t.CategoryID, &t.Description, &t.CreatedAt)
	return t, err
}

// GetTitleByID fetches a title with its category and computed rating.
func (q *Queries) GetTitleByID(ctx context.Context, id int64) (TitleRow, error) {
	row := q.db.QueryRowContext(ctx,
		titleRowQuery+` WHERE t.id = ? GROUP BY t.id`, id)
	return scanTitleRow(row)
}

// UpdateTitleParams holds the fields for UpdateTitle.
type UpdateTitleParams struct {
	ID          int64
	Name        string
	Year        int64
	CategoryID  int64
	Description sql.NullString
}

// UpdateTitle updates a title and returns the updated row.
func (q *Queries) UpdateTitle(ctx context.Context, arg UpdateTitleParams) (Title, error) {
	var t Title
	err := q.db.QueryRowContext(ctx, `
		UPDATE titles
		SET name = ?, year = ?, category_id = ?, description = ?
		WHERE id = ?
		RETURNING id, name, year, category_id, description, created_at`,
		arg.Name, arg.Year, arg.CategoryID, arg.Description, arg.ID,
	).Scan(&t.ID, &t.Name, &t.Year, &t.CategoryID, &t.Description, &t.CreatedAt)
	return t, err
}

// DeleteTitle removes a title. Reviews (and their comments) are removed by
// cascade; categories and genres are left in place.
func (q *Queries) DeleteTitle(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	return err
}

// AddTitleGenreParams holds the fields for AddTitleGenre.
type AddTitleGenreParams struct {
	TitleID int64
	GenreID int64
}

// AddTitleGenre attaches a genre to a title.
func (q *Queries) AddTitleGenre(ctx context.Context, arg AddTitleGenreParams) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO title_genres (title_id, genre_id) VALUES (?, ?)`,
		arg.TitleID, arg.GenreID,
	)
	return err
}

// ClearTitleGenres detaches all genres from a title.
func (q *Queries) ClearTitleGenres(ctx context.Context, titleID int64) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM title_genres WHERE title_id = ?`, titleID)
	return err
}

// ListGenresForTitle returns the genres attached to a title, ordered by name.
func (q *Queries) ListGenresForTitle(ctx context.Context, titleID int64) ([]Genre, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT g.id, g.name, g.slug, g.created_at
		FROM genres g
		JOIN title_genres tg ON tg.genre_id = g.id
		WHERE tg.title_id = ?
		ORDER BY g.name`,
		titleID,
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

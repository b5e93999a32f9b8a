// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// ReviewRow is a review joined with its author's username.
type ReviewRow struct {
	Review
	AuthorUsername string
}

const reviewRowQuery = `
	SELECT r.id, r.title_id, r.author_id, r.text, r.score, r.pub_date, u.username
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

func scanReviewRow(row interface{ Scan(...any) error }) (ReviewRow, error) {
	var r ReviewRow
	err := row.Scan(
		&r.ID,
		&r.TitleID,
		&r.AuthorID,
		&r.Text,
		&r.Score,
		&r.PubDate,
		&r.AuthorUsername,
	)
	return r, err
}

// CreateReviewParams holds the fields for CreateReview.
type CreateReviewParams struct {
	TitleID  int64
	AuthorID int64
	Text     string
	Score    int64
	PubDate  time.Time
}

// CreateReview inserts a new review and returns the created row. The
// UNIQUE(title_id, author_id) constraint rejects a second review by the same
// author for the same title.
func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (Review, error) {
	var r Review
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO reviews (title_id, author_id, text, score, pub_date)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, title_id, author_id, text, score, pub_date`,
		arg.TitleID, arg.AuthorID, arg.Text, arg.Score, arg.PubDate,
	).Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Text, &r.Score, &r.PubDate)
	return r, err
}

// GetReviewByID fetches a review with its author's username.
func (q *Queries) GetReviewByID(ctx context.Context, id int64) (ReviewRow, error) {
	row := q.db.QueryRowContext(ctx, reviewRowQuery+` WHERE r.id = ?`, id)
	return scanReviewRow(row)
}

// ListReviewsForTitleParams holds the fields for ListReviewsForTitle.
type ListReviewsForTitleParams struct {
	TitleID int64
	Limit   int64
	Offset  int64
}

// ListReviewsForTitle returns a title's reviews in publication order.
func (q *Queries) ListReviewsForTitle(ctx context.Context, arg ListReviewsForTitleParams) ([]ReviewRow, error) {
	rows, err := q.db.QueryContext(ctx,
		reviewRowQuery+`
		WHERE r.title_id = ?
		ORDER BY r.pub_date, r.id
		LIMIT ? OFFSET ?`,
		arg.TitleID, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []ReviewRow
	for rows.Next() {
		r, err := scanReviewRow(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// CountReviewsForTitle returns the number of reviews for a title.
func (q *Queries) CountReviewsForTitle(ctx context.Context, titleID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID,
	).Scan(&count)
	return count, err
}

// ReviewExistsParams holds the fields for ReviewExists.
type ReviewExistsParams struct {
	TitleID  int64
	AuthorID int64
}

// ReviewExists returns a non-zero count if the author already reviewed the
// title.
func (q *Queries) ReviewExists(ctx context.Context, arg ReviewExistsParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ? AND author_id = ?`,
		arg.TitleID, arg.AuthorID,
	).Scan(&count)
	return count, err
}

// UpdateReviewParams holds the fields for UpdateReview.
type UpdateReviewParams struct {
	ID    int64
	Text  string
	Score int64
}

// UpdateReview updates a review's text and score and returns the updated row.
func (q *Queries) UpdateReview(ctx context.Context, arg UpdateReviewParams) (Review, error) {
	var r Review
	err := q.db.QueryRowContext(ctx, `
		UPDATE reviews SET text = ?, score = ?
		WHERE id = ?
		RETURNING id, title_id, author_id, text, score, pub_date`,
		arg.Text, arg.Score, arg.ID,
	).Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Text, &r.Score, &r.PubDate)
	return r, err
}

// DeleteReview removes a review. Its comments are removed by cascade.
func (q *Queries) DeleteReview(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	return err
}

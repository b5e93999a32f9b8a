// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// CommentRow is a comment joined with its author's username.
type CommentRow struct {
	Comment
	AuthorUsername string
}

const commentRowQuery = `
	SELECT c.id, c.review_id, c.author_id, c.text, c.pub_date, u.username
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanCommentRow(row interface{ Scan(...any) error }) (CommentRow, error) {
	var c CommentRow
	err := row.Scan(
		&c.ID,
		&c.ReviewID,
		&c.AuthorID,
		&c.Text,
		&c.PubDate,
		&c.AuthorUsername,
	)
	return c, err
}

// CreateCommentParams holds the fields for CreateComment.
type CreateCommentParams struct {
	ReviewID int64
	AuthorID int64
	Text     string
	PubDate  time.Time
}

// CreateComment inserts a new comment and returns the created row.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	var c Comment
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO comments (review_id, author_id, text, pub_date)
		VALUES (?, ?, ?, ?)
		RETURNING id, review_id, author_id, text, pub_date`,
		arg.ReviewID, arg.AuthorID, arg.Text, arg.PubDate,
	).Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Text, &c.PubDate)
	return c, err
}

// GetCommentByID fetches a comment with its author's username.
func (q *Queries) GetCommentByID(ctx context.Context, id int64) (CommentRow, error) {
	row := q.db.QueryRowContext(ctx, commentRowQuery+` WHERE c.id = ?`, id)
	return scanCommentRow(row)
}

// ListCommentsForReviewParams holds the fields for ListCommentsForReview.
type ListCommentsForReviewParams struct {
	ReviewID int64
	Limit    int64
	Offset   int64
}

// ListCommentsForReview returns a review's comments in publication order.
func (q *Queries) ListCommentsForReview(ctx context.Context, arg ListCommentsForReviewParams) ([]CommentRow, error) {
	rows, err := q.db.QueryContext(ctx,
		commentRowQuery+`
		WHERE c.review_id = ?
		ORDER BY c.pub_date, c.id
		LIMIT ? OFFSET ?`,
		arg.ReviewID, arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []CommentRow
	for rows.Next() {
		c, err := scanCommentRow(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// CountCommentsForReview returns the number of comments for a review.
func (q *Queries) CountCommentsForReview(ctx context.Context, reviewID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments WHERE review_id = ?`, reviewID,
	).Scan(&count)
	return count, err
}

// UpdateCommentParams holds the fields for UpdateComment.
type UpdateCommentParams struct {
	ID   int64
	Text string
}

// UpdateComment updates a comment's text and returns the updated row.
func (q *Queries) UpdateComment(ctx context.Context, arg UpdateCommentParams) (Comment, error) {
	var c Comment
	err := q.db.QueryRowContext(ctx, `
		UPDATE comments SET text = ?
		WHERE id = ?
		RETURNING id, review_id, author_id, text, pub_date`,
		arg.Text, arg.ID,
	).Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Text, &c.PubDate)
	return c, err
}

// DeleteComment removes a comment.
func (q *Queries) DeleteComment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	return err
}

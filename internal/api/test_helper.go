// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/olegiv/revue-go/internal/auth"
	"github.com/olegiv/revue-go/internal/mail"
	"github.com/olegiv/revue-go/internal/middleware"
	"github.com/olegiv/revue-go/internal/store"
)

// testDB creates an in-memory SQLite database with the full schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A second connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// captureSender records the last message instead of delivering it.
type captureSender struct {
	messages chan mail.Message
}

func newCaptureSender() *captureSender {
	return &captureSender{messages: make(chan mail.Message, 8)}
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	s.messages <- msg
	return nil
}

// waitForMessage blocks until a message arrives or the timeout fires.
func (s *captureSender) waitForMessage(t *testing.T) mail.Message {
	t.Helper()
	select {
	case msg := <-s.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return mail.Message{}
	}
}

func testTokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret: []byte("test-secret-key-at-least-32-bytes!"),
		TTL:    time.Hour,
	}
}

// testSetup creates a test database and API handler for testing.
func testSetup(t *testing.T) (*sql.DB, *Handler, *captureSender) {
	t.Helper()
	db := testDB(t)
	sender := newCaptureSender()
	h := NewHandler(db, testTokenConfig(), mail.NewMailer(sender))
	return db, h, sender
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *sql.DB, username, role string) store.User {
	t.Helper()

	now := time.Now()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestCategory creates a test category in the database.
func createTestCategory(t *testing.T, db *sql.DB, name, slug string) store.Category {
	t.Helper()

	cat, err := store.New(db).CreateCategory(context.Background(), store.CreateCategoryParams{
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return cat
}

// createTestGenre creates a test genre in the database.
func createTestGenre(t *testing.T, db *sql.DB, name, slug string) store.Genre {
	t.Helper()

	genre, err := store.New(db).CreateGenre(context.Background(), store.CreateGenreParams{
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test genre: %v", err)
	}
	return genre
}

// createTestTitle creates a test title attached to the given category and
// genres.
func createTestTitle(t *testing.T, db *sql.DB, name string, year int64, categoryID int64, genreIDs ...int64) store.Title {
	t.Helper()
	ctx := context.Background()
	queries := store.New(db)

	title, err := queries.CreateTitle(ctx, store.CreateTitleParams{
		Name:       name,
		Year:       year,
		CategoryID: categoryID,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test title: %v", err)
	}
	for _, genreID := range genreIDs {
		if err := queries.AddTitleGenre(ctx, store.AddTitleGenreParams{TitleID: title.ID, GenreID: genreID}); err != nil {
			t.Fatalf("failed to attach test genre: %v", err)
		}
	}
	return title
}

// createTestReview creates a test review in the database.
func createTestReview(t *testing.T, db *sql.DB, titleID, authorID int64, text string, score int64) store.Review {
	t.Helper()

	review, err := store.New(db).CreateReview(context.Background(), store.CreateReviewParams{
		TitleID:  titleID,
		AuthorID: authorID,
		Text:     text,
		Score:    score,
		PubDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return review
}

// createTestComment creates a test comment in the database.
func createTestComment(t *testing.T, db *sql.DB, reviewID, authorID int64, text string) store.Comment {
	t.Helper()

	comment, err := store.New(db).CreateComment(context.Background(), store.CreateCommentParams{
		ReviewID: reviewID,
		AuthorID: authorID,
		Text:     text,
		PubDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to create test comment: %v", err)
	}
	return comment
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithUser places a user into the request context the way the auth
// middleware does.
func requestWithUser(r *http.Request, user store.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.ContextKeyUser, user))
}

// newJSONRequest creates an HTTP request with JSON body and optional URL params.
func newJSONRequest(t *testing.T, method, path string, body string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// newGetRequest creates an HTTP GET request with optional URL params.
func newGetRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// newDeleteRequest creates an HTTP DELETE request with optional URL params.
func newDeleteRequest(t *testing.T, path string, params map[string]string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	if len(params) > 0 {
		req = requestWithURLParams(req, params)
	}
	return req
}

// dataResponse is a generic wrapper for API responses with a "data" field.
type dataResponse[T any] struct {
	Data T `json:"data"`
}

// listResponse is a generic wrapper for API list responses with data and meta.
type listResponse[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta"`
}

// unmarshalData unmarshals a JSON response body into the specified type.
func unmarshalData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dataResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data
}

// unmarshalList unmarshals a JSON list response body into the specified type.
func unmarshalList[T any](t *testing.T, w *httptest.ResponseRecorder) ([]T, *Meta) {
	t.Helper()
	var resp listResponse[T]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp.Data, resp.Meta
}

// unmarshalError unmarshals a JSON error response body.
func unmarshalError(t *testing.T, w *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	return resp.Error
}

// executeHandler executes a handler and returns the response recorder.
func executeHandler(t *testing.T, handler func(http.ResponseWriter, *http.Request), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

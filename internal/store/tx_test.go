package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// A second connection would see a different empty in-memory database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestWithTxRollbackDiscardsTitleAndGenres(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)
	now := time.Now()

	cat, err := q.CreateCategory(ctx, CreateCategoryParams{Name: "Movies", Slug: "movies", CreatedAt: now})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	genre, err := q.CreateGenre(ctx, CreateGenreParams{Name: "Drama", Slug: "drama", CreatedAt: now})
	if err != nil {
		t.Fatalf("create genre: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	qtx := q.WithTx(tx)

	title, err := qtx.CreateTitle(ctx, CreateTitleParams{
		Name:       "Working Title",
		Year:       2001,
		CategoryID: cat.ID,
		CreatedAt:  now,
	})
	if err != nil {
		t.Fatalf("create title in tx: %v", err)
	}
	if err := qtx.AddTitleGenre(ctx, AddTitleGenreParams{TitleID: title.ID, GenreID: genre.ID}); err != nil {
		t.Fatalf("attach genre in tx: %v", err)
	}

	// An attach to a missing genre fails inside the transaction; the whole
	// write must then roll back, title row included.
	if err := qtx.AddTitleGenre(ctx, AddTitleGenreParams{TitleID: title.ID, GenreID: 9999}); err == nil {
		t.Fatal("attach to missing genre succeeded, want foreign key error")
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	var titles, joins int
	if err := db.QueryRow(`SELECT COUNT(*) FROM titles`).Scan(&titles); err != nil {
		t.Fatalf("count titles: %v", err)
	}
	if titles != 0 {
		t.Errorf("titles after rollback = %d, want 0", titles)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM title_genres`).Scan(&joins); err != nil {
		t.Fatalf("count title_genres: %v", err)
	}
	if joins != 0 {
		t.Errorf("title_genres after rollback = %d, want 0", joins)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)
	now := time.Now()

	if _, err := q.CreateUser(ctx, CreateUserParams{
		Username: "hank", Email: "hank@example.com", Role: RoleUser,
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := q.CreateUser(ctx, CreateUserParams{
		Username: "hank", Email: "other@example.com", Role: RoleUser,
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("duplicate username insert succeeded")
	}
	if !IsUniqueViolation(err, "users.username") {
		t.Errorf("IsUniqueViolation(username) = false for %v", err)
	}
	if IsUniqueViolation(err, "users.email") {
		t.Errorf("IsUniqueViolation(email) = true for %v", err)
	}

	_, err = q.CreateUser(ctx, CreateUserParams{
		Username: "ivan", Email: "hank@example.com", Role: RoleUser,
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("duplicate email insert succeeded")
	}
	if !IsUniqueViolation(err, "users.email") {
		t.Errorf("IsUniqueViolation(email) = false for %v", err)
	}

	if IsUniqueViolation(nil, "users.username") {
		t.Error("IsUniqueViolation(nil) = true")
	}
}

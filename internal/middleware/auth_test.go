package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	authpkg "github.com/olegiv/revue-go/internal/auth"
	"github.com/olegiv/revue-go/internal/store"
)

// testDB creates a temporary test database with migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "revue-middleware-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	})
	return db
}

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
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func testTokenConfig() authpkg.TokenConfig {
	return authpkg.TokenConfig{
		Secret: []byte("middleware-test-secret-key-32-b!"),
		TTL:    time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_ValidToken(t *testing.T) {
	db := testDB(t)
	cfg := testTokenConfig()
	user := createTestUser(t, db, "reader", store.RoleUser)

	token, err := authpkg.GenerateAccessToken(cfg, &user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	var gotUser *store.User
	handler := RequireAuth(db, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser == nil || gotUser.ID != user.ID {
		t.Fatalf("context user = %+v, want ID %d", gotUser, user.ID)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	db := testDB(t)
	handler := RequireAuth(db, testTokenConfig())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	db := testDB(t)
	handler := RequireAuth(db, testTokenConfig())(okHandler())

	for _, header := range []string{"Basic abc", "Bearer", "token-without-scheme"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	db := testDB(t)
	cfg := testTokenConfig()
	user := createTestUser(t, db, "ghost", store.RoleUser)

	token, err := authpkg.GenerateAccessToken(cfg, &user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if err := store.New(db).DeleteUser(context.Background(), user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	handler := RequireAuth(db, cfg)(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		user       *store.User
		wantStatus int
	}{
		{"no user", nil, http.StatusUnauthorized},
		{"plain user", &store.User{ID: 1, Role: store.RoleUser}, http.StatusForbidden},
		{"moderator", &store.User{ID: 2, Role: store.RoleModerator}, http.StatusForbidden},
		{"admin role", &store.User{ID: 3, Role: store.RoleAdmin}, http.StatusOK},
		{"staff flag", &store.User{ID: 4, Role: store.RoleUser, IsStaff: true}, http.StatusOK},
	}

	handler := RequireAdmin()(okHandler())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/", nil)
			if tt.user != nil {
				req = req.WithContext(context.WithValue(req.Context(), ContextKeyUser, *tt.user))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestOptionalAuth_Anonymous(t *testing.T) {
	db := testDB(t)

	var gotUser *store.User
	handler := OptionalAuth(db, testTokenConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/titles/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser != nil {
		t.Errorf("expected no user in context, got %+v", gotUser)
	}
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	db := testDB(t)
	cfg := testTokenConfig()
	user := createTestUser(t, db, "viewer", store.RoleUser)

	token, err := authpkg.GenerateAccessToken(cfg, &user)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	var gotUser *store.User
	handler := OptionalAuth(db, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUser(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/titles/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUser == nil || gotUser.ID != user.ID {
		t.Fatalf("context user = %+v, want ID %d", gotUser, user.ID)
	}
}

func TestGetUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(req); got != 0 {
		t.Errorf("GetUserID without user = %d, want 0", got)
	}

	req = req.WithContext(context.WithValue(req.Context(), ContextKeyUser, store.User{ID: 7}))
	if got := GetUserID(req); got != 7 {
		t.Errorf("GetUserID = %d, want 7", got)
	}
}

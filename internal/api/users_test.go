package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/olegiv/revue-go/internal/store"
)

func TestMe(t *testing.T) {
	db, h, _ := testSetup(t)
	user := createTestUser(t, db, "alice", store.RoleUser)

	req := requestWithUser(newGetRequest(t, "/api/v1/users/me", nil), user)
	w := executeHandler(t, h.Me, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Me status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Username != "alice" {
		t.Errorf("username = %q, want alice", resp.Username)
	}
	if resp.Role != store.RoleUser {
		t.Errorf("role = %q, want user", resp.Role)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	_, h, _ := testSetup(t)

	w := executeHandler(t, h.Me, newGetRequest(t, "/api/v1/users/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestUpdateMe(t *testing.T) {
	db, h, _ := testSetup(t)
	user := createTestUser(t, db, "bob", store.RoleUser)

	body := `{"bio": "Reader of long books.", "first_name": "Bob"}`
	req := requestWithUser(newJSONRequest(t, http.MethodPatch, "/api/v1/users/me", body, nil), user)
	w := executeHandler(t, h.UpdateMe, req)

	if w.Code != http.StatusOK {
		t.Fatalf("UpdateMe status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Bio != "Reader of long books." {
		t.Errorf("bio = %q", resp.Bio)
	}
	if resp.FirstName != "Bob" {
		t.Errorf("first_name = %q", resp.FirstName)
	}
}

func TestUpdateMe_RoleChangeIgnoredForNonAdmin(t *testing.T) {
	db, h, _ := testSetup(t)
	user := createTestUser(t, db, "carol", store.RoleUser)

	body := `{"role": "admin", "bio": "plain user"}`
	req := requestWithUser(newJSONRequest(t, http.MethodPatch, "/api/v1/users/me", body, nil), user)
	w := executeHandler(t, h.UpdateMe, req)

	if w.Code != http.StatusOK {
		t.Fatalf("UpdateMe status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Role != store.RoleUser {
		t.Errorf("role = %q, want user (role change must be ignored)", resp.Role)
	}
	if resp.Bio != "plain user" {
		t.Errorf("bio = %q, other fields must still apply", resp.Bio)
	}
}

func TestUpdateMe_BioSanitized(t *testing.T) {
	db, h, _ := testSetup(t)
	user := createTestUser(t, db, "dave", store.RoleUser)

	body := `{"bio": "hello <script>alert(1)</script>world"}`
	req := requestWithUser(newJSONRequest(t, http.MethodPatch, "/api/v1/users/me", body, nil), user)
	w := executeHandler(t, h.UpdateMe, req)

	if w.Code != http.StatusOK {
		t.Fatalf("UpdateMe status = %d", w.Code)
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Bio != "hello world" {
		t.Errorf("bio = %q, want script stripped", resp.Bio)
	}
}

func TestListUsers(t *testing.T) {
	db, h, _ := testSetup(t)
	createTestUser(t, db, "anna", store.RoleUser)
	createTestUser(t, db, "annette", store.RoleUser)
	createTestUser(t, db, "boris", store.RoleModerator)

	w := executeHandler(t, h.ListUsers, newGetRequest(t, "/api/v1/users", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ListUsers status = %d", w.Code)
	}
	users, meta := unmarshalList[UserAPIResponse](t, w)
	if len(users) != 3 {
		t.Errorf("got %d users, want 3", len(users))
	}
	if meta == nil || meta.Total != 3 {
		t.Errorf("meta = %+v, want total 3", meta)
	}

	w = executeHandler(t, h.ListUsers, newGetRequest(t, "/api/v1/users?search=ann", nil))
	users, _ = unmarshalList[UserAPIResponse](t, w)
	if len(users) != 2 {
		t.Errorf("search=ann returned %d users, want 2", len(users))
	}
}

func TestCreateUser(t *testing.T) {
	_, h, _ := testSetup(t)

	body := `{"username": "mod1", "email": "mod1@example.com", "role": "moderator"}`
	w := executeHandler(t, h.CreateUser, newJSONRequest(t, http.MethodPost, "/api/v1/users", body, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("CreateUser status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Role != store.RoleModerator {
		t.Errorf("role = %q, want moderator", resp.Role)
	}

	// Duplicate username must be rejected with a field error.
	w = executeHandler(t, h.CreateUser, newJSONRequest(t, http.MethodPost, "/api/v1/users",
		`{"username": "mod1", "email": "other@example.com"}`, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errDetail := unmarshalError(t, w)
	if _, ok := errDetail.Details["username"]; !ok {
		t.Errorf("error details = %v, want field username", errDetail.Details)
	}
}

func TestCreateUser_BioSanitized(t *testing.T) {
	db, h, _ := testSetup(t)

	body := `{"username": "frank", "email": "frank@example.com", "bio": "hi <script>alert(1)</script>there"}`
	w := executeHandler(t, h.CreateUser, newJSONRequest(t, http.MethodPost, "/api/v1/users", body, nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("CreateUser status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Bio != "hi there" {
		t.Errorf("bio = %q, want script stripped", resp.Bio)
	}

	var stored string
	if err := db.QueryRow(`SELECT bio FROM users WHERE username = 'frank'`).Scan(&stored); err != nil {
		t.Fatalf("query bio: %v", err)
	}
	if stored != "hi there" {
		t.Errorf("stored bio = %q, want script stripped", stored)
	}
}

func TestCreateUser_NameTooLong(t *testing.T) {
	_, h, _ := testSetup(t)

	body := `{"username": "gina", "email": "gina@example.com", "first_name": "` +
		strings.Repeat("a", 151) + `"}`
	w := executeHandler(t, h.CreateUser, newJSONRequest(t, http.MethodPost, "/api/v1/users", body, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errDetail := unmarshalError(t, w)
	if _, ok := errDetail.Details["first_name"]; !ok {
		t.Errorf("error details = %v, want field first_name", errDetail.Details)
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	_, h, _ := testSetup(t)

	body := `{"username": "x1", "email": "x1@example.com", "role": "king"}`
	w := executeHandler(t, h.CreateUser, newJSONRequest(t, http.MethodPost, "/api/v1/users", body, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errDetail := unmarshalError(t, w)
	if _, ok := errDetail.Details["role"]; !ok {
		t.Errorf("error details = %v, want field role", errDetail.Details)
	}
}

func TestGetUserByName(t *testing.T) {
	db, h, _ := testSetup(t)
	createTestUser(t, db, "erin", store.RoleUser)

	w := executeHandler(t, h.GetUserByName,
		newGetRequest(t, "/api/v1/users/erin", map[string]string{"username": "erin"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Username != "erin" {
		t.Errorf("username = %q", resp.Username)
	}

	w = executeHandler(t, h.GetUserByName,
		newGetRequest(t, "/api/v1/users/ghost", map[string]string{"username": "ghost"}))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUpdateUserByName_RoleChange(t *testing.T) {
	db, h, _ := testSetup(t)
	createTestUser(t, db, "frank", store.RoleUser)

	body := `{"role": "moderator"}`
	w := executeHandler(t, h.UpdateUserByName,
		newJSONRequest(t, http.MethodPatch, "/api/v1/users/frank", body, map[string]string{"username": "frank"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	resp := unmarshalData[UserAPIResponse](t, w)
	if resp.Role != store.RoleModerator {
		t.Errorf("role = %q, want moderator", resp.Role)
	}
}

func TestDeleteUserByName(t *testing.T) {
	db, h, _ := testSetup(t)
	user := createTestUser(t, db, "greta", store.RoleUser)

	w := executeHandler(t, h.DeleteUserByName,
		newDeleteRequest(t, "/api/v1/users/greta", map[string]string{"username": "greta"}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, user.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("user still present after delete")
	}
}

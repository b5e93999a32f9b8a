package api

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/olegiv/revue-go/internal/store"
)

// seedTitleWithCatalog creates a category, genre and title for review tests.
func seedTitleWithCatalog(t *testing.T, db *sql.DB) store.Title {
	t.Helper()
	cat := createTestCategory(t, db, "Movies", "movies")
	genre := createTestGenre(t, db, "Sci-Fi", "sci-fi")
	return createTestTitle(t, db, "Alien", 1979, cat.ID, genre.ID)
}

func titleParams(title store.Title) map[string]string {
	return map[string]string{"title_id": fmt.Sprint(title.ID)}
}

func reviewParams(title store.Title, reviewID int64) map[string]string {
	return map[string]string{
		"title_id":  fmt.Sprint(title.ID),
		"review_id": fmt.Sprint(reviewID),
	}
}

func TestListReviews(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	alice := createTestUser(t, db, "alice", store.RoleUser)
	bob := createTestUser(t, db, "bob", store.RoleUser)
	createTestReview(t, db, title.ID, alice.ID, "Great.", 9)
	createTestReview(t, db, title.ID, bob.ID, "Fine.", 7)

	w := executeHandler(t, h.ListReviews,
		newGetRequest(t, "/api/v1/titles/1/reviews", titleParams(title)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	reviews, meta := unmarshalList[ReviewAPIResponse](t, w)
	if len(reviews) != 2 {
		t.Fatalf("got %d reviews, want 2", len(reviews))
	}
	if meta == nil || meta.Total != 2 {
		t.Errorf("meta = %+v, want total 2", meta)
	}
	if reviews[0].Author != "alice" {
		t.Errorf("first review author = %q, want alice", reviews[0].Author)
	}
}

func TestListReviews_UnknownTitle(t *testing.T) {
	_, h, _ := testSetup(t)

	w := executeHandler(t, h.ListReviews,
		newGetRequest(t, "/api/v1/titles/999/reviews", map[string]string{"title_id": "999"}))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestCreateReview(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	alice := createTestUser(t, db, "alice", store.RoleUser)

	body := `{"text": "A classic.", "score": 9}`
	req := requestWithUser(newJSONRequest(t, http.MethodPost, "/api/v1/titles/1/reviews", body, titleParams(title)), alice)
	w := executeHandler(t, h.CreateReview, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	resp := unmarshalData[ReviewAPIResponse](t, w)
	if resp.Author != "alice" || resp.Score != 9 {
		t.Errorf("review = %+v", resp)
	}
	if resp.PubDate.IsZero() {
		t.Error("pub_date not set")
	}
}

func TestCreateReview_SecondReviewRejected(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	alice := createTestUser(t, db, "alice", store.RoleUser)
	createTestReview(t, db, title.ID, alice.ID, "First take.", 8)

	body := `{"text": "Second take.", "score": 6}`
	req := requestWithUser(newJSONRequest(t, http.MethodPost, "/api/v1/titles/1/reviews", body, titleParams(title)), alice)
	w := executeHandler(t, h.CreateReview, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d, body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	errDetail := unmarshalError(t, w)
	if _, ok := errDetail.Details["title"]; !ok {
		t.Errorf("error details = %v, want field title", errDetail.Details)
	}
}

func TestCreateReview_ScoreBounds(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	alice := createTestUser(t, db, "alice", store.RoleUser)

	for _, score := range []int64{0, 11} {
		body := fmt.Sprintf(`{"text": "x", "score": %d}`, score)
		req := requestWithUser(newJSONRequest(t, http.MethodPost, "/api/v1/titles/1/reviews", body, titleParams(title)), alice)
		w := executeHandler(t, h.CreateReview, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("score %d: status = %d, want %d", score, w.Code, http.StatusBadRequest)
		}
	}
}

func TestCreateReview_TextSanitized(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	alice := createTestUser(t, db, "alice", store.RoleUser)

	body := `{"text": "Good <script>alert(1)</script>film", "score": 8}`
	req := requestWithUser(newJSONRequest(t, http.MethodPost, "/api/v1/titles/1/reviews", body, titleParams(title)), alice)
	w := executeHandler(t, h.CreateReview, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	resp := unmarshalData[ReviewAPIResponse](t, w)
	if resp.Text != "Good film" {
		t.Errorf("text = %q, want script stripped", resp.Text)
	}
}

func TestGetReview_WrongTitleIs404(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	cat2 := createTestCategory(t, db, "Books", "books")
	other := createTestTitle(t, db, "Dune", 1965, cat2.ID)
	alice := createTestUser(t, db, "alice", store.RoleUser)
	review := createTestReview(t, db, title.ID, alice.ID, "Great.", 9)

	// The review exists but belongs to a different title.
	w := executeHandler(t, h.GetReview,
		newGetRequest(t, "/api/v1/titles/2/reviews/1", reviewParams(other, review.ID)))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUpdateReview_Permissions(t *testing.T) {
	tests := []struct {
		name       string
		actorRole  string
		actorOwns  bool
		wantStatus int
	}{
		{"author edits own", store.RoleUser, true, http.StatusOK},
		{"stranger denied", store.RoleUser, false, http.StatusForbidden},
		{"moderator allowed", store.RoleModerator, false, http.StatusOK},
		{"admin allowed", store.RoleAdmin, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, h, _ := testSetup(t)
			title := seedTitleWithCatalog(t, db)
			author := createTestUser(t, db, "author", store.RoleUser)
			review := createTestReview(t, db, title.ID, author.ID, "Original.", 5)

			actor := author
			if !tt.actorOwns {
				actor = createTestUser(t, db, "actor", tt.actorRole)
			}

			body := `{"score": 10}`
			req := requestWithUser(
				newJSONRequest(t, http.MethodPatch, "/api/v1/titles/1/reviews/1", body, reviewParams(title, review.ID)),
				actor)
			w := executeHandler(t, h.UpdateReview, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				resp := unmarshalData[ReviewAPIResponse](t, w)
				if resp.Score != 10 {
					t.Errorf("score = %d, want 10", resp.Score)
				}
				if resp.Text != "Original." {
					t.Errorf("text = %q, must be unchanged", resp.Text)
				}
			}
		})
	}
}

func TestDeleteReview(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	author := createTestUser(t, db, "author", store.RoleUser)
	review := createTestReview(t, db, title.ID, author.ID, "Gone soon.", 5)
	createTestComment(t, db, review.ID, author.ID, "A comment.")

	req := requestWithUser(
		newDeleteRequest(t, "/api/v1/titles/1/reviews/1", reviewParams(title, review.ID)),
		author)
	w := executeHandler(t, h.DeleteReview, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Comments go with the review.
	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM comments WHERE review_id = ?`, review.ID).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Error("comments survived review delete")
	}
}

func TestDeleteReview_StrangerForbidden(t *testing.T) {
	db, h, _ := testSetup(t)
	title := seedTitleWithCatalog(t, db)
	author := createTestUser(t, db, "author", store.RoleUser)
	stranger := createTestUser(t, db, "stranger", store.RoleUser)
	review := createTestReview(t, db, title.ID, author.ID, "Mine.", 5)

	req := requestWithUser(
		newDeleteRequest(t, "/api/v1/titles/1/reviews/1", reviewParams(title, review.ID)),
		stranger)
	w := executeHandler(t, h.DeleteReview, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

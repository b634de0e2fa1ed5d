package posts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	"github.com/gin-gonic/gin"
)

type mockStore struct {
	posts      map[uint]*models.Post
	scheduled  map[uint]time.Time
	statusSets map[uint]string
}

func newMockStore() *mockStore {
	return &mockStore{
		posts:      map[uint]*models.Post{},
		scheduled:  map[uint]time.Time{},
		statusSets: map[uint]string{},
	}
}

func (m *mockStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	post, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return post, nil
}

func (m *mockStore) SchedulePost(ctx context.Context, id uint, at time.Time) error {
	m.scheduled[id] = at
	if post, ok := m.posts[id]; ok {
		post.Status = models.PostStatusScheduled
		scheduledFor := at
		post.ScheduledFor = &scheduledFor
	}
	return nil
}

func (m *mockStore) UpdatePostStatus(ctx context.Context, id uint, status, errorMessage string) error {
	m.statusSets[id] = status
	if post, ok := m.posts[id]; ok {
		post.Status = status
		post.ErrorMessage = errorMessage
	}
	return nil
}

type mockDispatcher struct {
	result publisher.Result
	calls  []uint
}

func (m *mockDispatcher) Publish(ctx context.Context, postID uint) publisher.Result {
	m.calls = append(m.calls, postID)
	r := m.result
	r.PostID = postID
	return r
}

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", uint(1))
		c.Next()
	})
	router.POST("/posts/approve", h.Approve)
	router.POST("/posts/skip", h.Skip)
	router.POST("/posts/publish", h.Publish)
	return router
}

func doPost(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func generatedPost(id, userID uint) *models.Post {
	return &models.Post{
		ID: id, UserID: userID, Platform: models.PlatformFacebook,
		Content: "Ready for review", Status: models.PostStatusGenerated,
	}
}

func TestApproveSchedulesPost(t *testing.T) {
	st := newMockStore()
	st.posts[1] = generatedPost(1, 1)

	router := testRouter(NewHandler(st, &mockDispatcher{}))
	w := doPost(t, router, "/posts/approve", gin.H{"post_id": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, ok := st.scheduled[1]; !ok {
		t.Error("post was not scheduled")
	}
	if st.posts[1].Status != models.PostStatusScheduled {
		t.Errorf("post status = %q, want scheduled", st.posts[1].Status)
	}
}

func TestApproveRejectsWrongStatus(t *testing.T) {
	st := newMockStore()
	post := generatedPost(1, 1)
	post.Status = models.PostStatusPublished
	st.posts[1] = post

	router := testRouter(NewHandler(st, &mockDispatcher{}))
	w := doPost(t, router, "/posts/approve", gin.H{"post_id": 1})

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a published post", w.Code)
	}
}

func TestOwnershipHidesOtherUsersPosts(t *testing.T) {
	st := newMockStore()
	st.posts[1] = generatedPost(1, 2) // owned by someone else

	router := testRouter(NewHandler(st, &mockDispatcher{}))
	w := doPost(t, router, "/posts/skip", gin.H{"post_id": 1})

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for another user's post", w.Code)
	}
}

func TestPublishSuccess(t *testing.T) {
	st := newMockStore()
	st.posts[1] = generatedPost(1, 1)

	dispatcher := &mockDispatcher{result: publisher.Result{Success: true}}
	router := testRouter(NewHandler(st, dispatcher))
	w := doPost(t, router, "/posts/publish", gin.H{"post_id": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != 1 {
		t.Errorf("dispatcher calls = %v", dispatcher.calls)
	}
}

func TestPublishRateLimitedReturns429(t *testing.T) {
	st := newMockStore()
	st.posts[1] = generatedPost(1, 1)

	dispatcher := &mockDispatcher{result: publisher.Result{
		RateLimited: true,
		Error:       "Rate limit reached for facebook, will retry later",
	}}
	router := testRouter(NewHandler(st, dispatcher))
	w := doPost(t, router, "/posts/publish", gin.H{"post_id": 1})

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 for a rate-limit refusal", w.Code)
	}

	var body struct {
		Success     bool   `json:"success"`
		RateLimited bool   `json:"rate_limited"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Success || !body.RateLimited || body.Error == "" {
		t.Errorf("body = %+v, want refusal envelope", body)
	}
	// The handler must not have touched the post.
	if st.posts[1].Status != models.PostStatusGenerated {
		t.Errorf("post status = %q, want untouched", st.posts[1].Status)
	}
}

func TestPublishFailureReturns500(t *testing.T) {
	st := newMockStore()
	st.posts[1] = generatedPost(1, 1)

	dispatcher := &mockDispatcher{result: publisher.Result{
		Error: "(#200) Permissions error",
	}}
	router := testRouter(NewHandler(st, dispatcher))
	w := doPost(t, router, "/posts/publish", gin.H{"post_id": 1})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 for a publish failure", w.Code)
	}
}

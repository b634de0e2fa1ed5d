package cron

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/ai"
	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/pipeline"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// emptyStore satisfies both scan stores with an idle system: no pipelines,
// no posts, nothing due.
type emptyStore struct{}

func (emptyStore) ListActivePipelines(ctx context.Context) ([]models.Pipeline, error) {
	return nil, nil
}
func (emptyStore) GetPipeline(ctx context.Context, id uint) (*models.Pipeline, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) UpdatePipelineSchedule(ctx context.Context, id uint, lastRunAt, nextRunAt time.Time) error {
	return nil
}
func (emptyStore) ListPendingTopics(ctx context.Context, pipelineID uint) ([]models.Topic, error) {
	return nil, nil
}
func (emptyStore) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) UpdateTopicStatus(ctx context.Context, id uint, status string) error { return nil }
func (emptyStore) MarkTopicGenerated(ctx context.Context, id uint, usedAt time.Time) error {
	return nil
}
func (emptyStore) CreatePost(ctx context.Context, post *models.Post) error { return nil }
func (emptyStore) GetConnection(ctx context.Context, userID uint, platform string) (*models.PlatformConnection, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return nil, store.ErrNotFound
}
func (emptyStore) MarkPostPublished(ctx context.Context, id uint, platformPostID string, at time.Time) error {
	return nil
}
func (emptyStore) RecordPublishFailure(ctx context.Context, id uint, message string) error {
	return nil
}
func (emptyStore) UpdatePostStatus(ctx context.Context, id uint, status, errorMessage string) error {
	return nil
}
func (emptyStore) SetPostImage(ctx context.Context, id uint, url string) error { return nil }
func (emptyStore) CountPublishedSince(ctx context.Context, userID uint, platform string, since time.Time) (int64, error) {
	return 0, nil
}
func (emptyStore) ListDuePosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	return nil, nil
}
func (emptyStore) ScheduledQueue(ctx context.Context) (int64, *time.Time, error) {
	return 0, nil, nil
}
func (emptyStore) ListPostsAwaitingImages(ctx context.Context, limit int) ([]models.Post, error) {
	return nil, nil
}
func (emptyStore) ListRetryablePosts(ctx context.Context, maxRetries int, createdAfter time.Time, limit int) ([]models.Post, error) {
	return nil, nil
}

type stubProvider struct{}

func (stubProvider) GenerateContent(ctx context.Context, req ai.Request) (*ai.Generated, error) {
	return &ai.Generated{Content: "stub"}, nil
}

func testHandler(secret string) *Handler {
	runner := pipeline.NewRunner(emptyStore{}, stubProvider{})
	pub := publisher.New(emptyStore{}, nil)
	return NewHandler(runner, pub, secret, nil)
}

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/cron/generate", h.Generate)
	router.GET("/cron/publish", h.Publish)
	router.GET("/cron/retry", h.Retry)
	return router
}

func doCron(t *testing.T, router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCronRejectsMissingSecret(t *testing.T) {
	router := testRouter(testHandler(""))

	w := doCron(t, router, "/cron/generate", "Bearer anything")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when CRON_SECRET is unset", w.Code)
	}
}

func TestCronRejectsBadToken(t *testing.T) {
	router := testRouter(testHandler("topsecret"))

	for _, header := range []string{"", "Bearer wrong", "topsecret", "bearer topsecret"} {
		w := doCron(t, router, "/cron/generate", header)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, w.Code)
		}
	}
}

func TestCronGenerateAuthorized(t *testing.T) {
	router := testRouter(testHandler("topsecret"))

	w := doCron(t, router, "/cron/generate", "Bearer topsecret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Success     bool `json:"success"`
		TotalActive int  `json:"total_active"`
		Processed   int  `json:"processed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !body.Success || body.TotalActive != 0 || body.Processed != 0 {
		t.Errorf("body = %+v", body)
	}
}

func TestCronPublishAuthorized(t *testing.T) {
	router := testRouter(testHandler("topsecret"))

	w := doCron(t, router, "/cron/publish", "Bearer topsecret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCronRetryAuthorized(t *testing.T) {
	router := testRouter(testHandler("topsecret"))

	w := doCron(t, router, "/cron/retry", "Bearer topsecret")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

// fakeRedis is a minimal RESP server: it records every command and answers
// SET with +OK and DEL with :1, which is all the scan lock needs.
type fakeRedis struct {
	ln   net.Listener
	mu   sync.Mutex
	cmds [][]string
}

func newFakeRedis(t *testing.T) *fakeRedis {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeRedis{ln: ln}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeRedis) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeRedis) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readRESPCommand(r)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.cmds = append(f.cmds, args)
		f.mu.Unlock()

		switch strings.ToLower(args[0]) {
		case "del":
			conn.Write([]byte(":1\r\n"))
		default:
			conn.Write([]byte("+OK\r\n"))
		}
	}
}

func (f *fakeRedis) commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.cmds))
	copy(out, f.cmds)
	return out
}

func readRESPCommand(r *bufio.Reader) ([]string, error) {
	header, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if len(header) < 2 || header[0] != '*' {
		return nil, fmt.Errorf("bad array header %q", header)
	}
	n, err := strconv.Atoi(strings.TrimSpace(header[1:]))
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		size, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		if len(size) < 2 || size[0] != '$' {
			return nil, fmt.Errorf("bad bulk header %q", size)
		}
		length, err := strconv.Atoi(strings.TrimSpace(size[1:]))
		if err != nil {
			return nil, err
		}
		buf := make([]byte, length+2) // payload plus CRLF
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		args = append(args, string(buf[:length]))
	}
	return args, nil
}

func TestLockReleasedAfterRequestContextCancelled(t *testing.T) {
	f := newFakeRedis(t)
	rdb := redis.NewClient(&redis.Options{Addr: f.ln.Addr().String()})
	t.Cleanup(func() { rdb.Close() })

	h := testHandler("topsecret")
	h.Redis = rdb

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx, cancel := context.WithCancel(context.Background())
	c.Request = httptest.NewRequest(http.MethodGet, "/cron/generate", nil).WithContext(ctx)

	release, ok := h.acquireLock(c, "cron:generate:lock")
	if !ok {
		t.Fatal("lock not acquired")
	}

	// The caller disconnects while the scan is still running; the release
	// must still reach redis.
	cancel()
	release()

	released := false
	for _, cmd := range f.commands() {
		if strings.EqualFold(cmd[0], "del") && len(cmd) > 1 && cmd[1] == "cron:generate:lock" {
			released = true
		}
	}
	if !released {
		t.Error("lock was not released after the request context was cancelled")
	}
}

func TestCronAuthAppliesToAllEndpoints(t *testing.T) {
	router := testRouter(testHandler("topsecret"))

	for _, path := range []string{"/cron/generate", "/cron/publish", "/cron/retry"} {
		if w := doCron(t, router, path, "Bearer nope"); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", path, w.Code)
		}
	}
}

// Package publisher takes scheduled posts to their platforms: credential
// resolution, rate limiting, message composition, adapter dispatch, and
// retry bookkeeping.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/ai"
	"github.com/MuhammadSohaibRiaz/NexFLow/images"
	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
)

// Store is the slice of persistence the publisher needs.
type Store interface {
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	GetConnection(ctx context.Context, userID uint, platform string) (*models.PlatformConnection, error)

	MarkPostPublished(ctx context.Context, id uint, platformPostID string, at time.Time) error
	RecordPublishFailure(ctx context.Context, id uint, message string) error
	UpdatePostStatus(ctx context.Context, id uint, status, errorMessage string) error
	SetPostImage(ctx context.Context, id uint, url string) error

	CountPublishedSince(ctx context.Context, userID uint, platform string, since time.Time) (int64, error)
	ListDuePosts(ctx context.Context, now time.Time) ([]models.Post, error)
	ScheduledQueue(ctx context.Context) (int64, *time.Time, error)
	ListPostsAwaitingImages(ctx context.Context, limit int) ([]models.Post, error)
	ListRetryablePosts(ctx context.Context, maxRetries int, createdAfter time.Time, limit int) ([]models.Post, error)
}

// Adapter publishes one composed post through a platform's API and returns
// the platform's post id.
type Adapter interface {
	Publish(ctx context.Context, post *models.Post, conn *models.PlatformConnection) (string, error)
}

// Publisher is the publish dispatcher plus the due-post and retry scanners.
type Publisher struct {
	Store    Store
	Adapters map[string]Adapter
	Limiter  *RateLimiter

	// Image backfill collaborators; backfill is skipped when either is nil.
	Images     ai.ImageProvider
	ImageStore images.Store

	now func() time.Time
}

func New(st Store, adapters map[string]Adapter) *Publisher {
	return &Publisher{
		Store:    st,
		Adapters: adapters,
		Limiter:  NewRateLimiter(st),
		now:      time.Now,
	}
}

// Result is the outcome of one publish attempt. A rate-limited attempt is a
// refusal, not a failure: the post stays scheduled and no retry is consumed.
type Result struct {
	PostID      uint   `json:"id"`
	Success     bool   `json:"success"`
	RateLimited bool   `json:"rate_limited,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Publish runs one post through the full dispatch path.
func (p *Publisher) Publish(ctx context.Context, postID uint) Result {
	post, err := p.Store.GetPost(ctx, postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Result{PostID: postID, Error: "Post not found"}
		}
		return Result{PostID: postID, Error: err.Error()}
	}

	// Instagram publishing is blocked pending platform policy support. Fail
	// with a fixed message and leave the retry budget untouched.
	if post.Platform == models.PlatformInstagram {
		msg := "Instagram publishing is not supported"
		p.fail(ctx, post.ID, msg, false)
		return Result{PostID: post.ID, Error: msg}
	}

	adapter, ok := p.Adapters[post.Platform]
	if !ok {
		msg := fmt.Sprintf("Unsupported platform: %s", post.Platform)
		p.fail(ctx, post.ID, msg, false)
		return Result{PostID: post.ID, Error: msg}
	}

	conn, err := p.Store.GetConnection(ctx, post.UserID, post.Platform)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			msg := "No platform connection found"
			p.fail(ctx, post.ID, msg, false)
			return Result{PostID: post.ID, Error: msg}
		}
		return Result{PostID: post.ID, Error: err.Error()}
	}
	if !conn.IsActive {
		msg := "Platform connection is paused"
		p.fail(ctx, post.ID, msg, false)
		return Result{PostID: post.ID, Error: msg}
	}

	allowed, err := p.Limiter.Allow(ctx, post.UserID, post.Platform, p.now())
	if err != nil {
		return Result{PostID: post.ID, Error: err.Error()}
	}
	if !allowed {
		// Refusal, not failure: leave the post untouched so a later scan
		// picks it up once the window clears.
		log.Printf("[Publisher] Rate limit reached for user %d on %s, deferring post %d",
			post.UserID, post.Platform, post.ID)
		return Result{
			PostID:      post.ID,
			RateLimited: true,
			Error:       fmt.Sprintf("Rate limit reached for %s, will retry later", post.Platform),
		}
	}

	// Adapters receive the fully composed message in Content.
	composed := *post
	composed.Content = ComposeMessage(post.Content, post.Hashtags)

	platformPostID, err := adapter.Publish(ctx, &composed, conn)
	if err != nil {
		log.Printf("[Publisher] Publishing failed for %s post %d: %v", post.Platform, post.ID, err)
		p.fail(ctx, post.ID, err.Error(), true)
		return Result{PostID: post.ID, Error: err.Error()}
	}

	if err := p.Store.MarkPostPublished(ctx, post.ID, platformPostID, p.now()); err != nil {
		return Result{PostID: post.ID, Error: err.Error()}
	}

	log.Printf("[Publisher] Published post %d to %s as %s", post.ID, post.Platform, platformPostID)
	return Result{PostID: post.ID, Success: true}
}

func (p *Publisher) fail(ctx context.Context, postID uint, message string, consumeRetry bool) {
	var err error
	if consumeRetry {
		err = p.Store.RecordPublishFailure(ctx, postID, message)
	} else {
		err = p.Store.UpdatePostStatus(ctx, postID, models.PostStatusFailed, message)
	}
	if err != nil {
		log.Printf("[Publisher] Failed to record failure for post %d: %v", postID, err)
	}
}

// ComposeMessage appends the hashtags to the content on a new paragraph,
// normalizing each to a single leading #.
func ComposeMessage(content string, hashtags []string) string {
	var tags []string
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		tags = append(tags, "#"+strings.TrimLeft(tag, "#"))
	}
	if len(tags) == 0 {
		return content
	}
	return content + "\n\n" + strings.Join(tags, " ")
}

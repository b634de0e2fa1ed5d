package publisher

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Retry policy for failed posts: bounded attempts inside a bounded age
// window, scanned in small batches.
const (
	MaxRetries       = 3
	RetryWindow      = 24 * time.Hour
	RetryBatchSize   = 10
	ImageBatchSize   = 5
	imageContentType = "webp"
)

// ScanReport is the due-post scan envelope. When nothing is due it carries
// queue diagnostics instead of results.
type ScanReport struct {
	Processed        int        `json:"processed"`
	Results          []Result   `json:"results,omitempty"`
	BackfilledImages int        `json:"backfilled_images"`
	Message          string     `json:"message,omitempty"`
	ServerTime       time.Time  `json:"server_time"`
	QueueDepth       int64      `json:"total_scheduled_queue"`
	NextScheduledAt  *time.Time `json:"next_scheduled_at,omitempty"`
}

// RunDuePublishing is the publish cron entry point: backfill a bounded batch
// of missing images, then publish every due post sequentially.
func (p *Publisher) RunDuePublishing(ctx context.Context) (*ScanReport, error) {
	now := p.now()
	log.Printf("[Publisher] Checking for posts due at or before %s", now.Format(time.RFC3339))

	report := &ScanReport{ServerTime: now}

	// Best-effort and isolated; never blocks publishing.
	report.BackfilledImages = p.backfillImages(ctx)

	posts, err := p.Store.ListDuePosts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}

	depth, nextAt, err := p.Store.ScheduledQueue(ctx)
	if err == nil {
		report.QueueDepth = depth
		report.NextScheduledAt = nextAt
	}

	if len(posts) == 0 {
		report.Message = "No posts due for publishing right now."
		return report, nil
	}

	log.Printf("[Publisher] Found %d posts to publish", len(posts))

	for i := range posts {
		result := p.Publish(ctx, posts[i].ID)
		report.Results = append(report.Results, result)
		report.Processed++
	}

	return report, nil
}

// RetryReport is the failed-post retry scan envelope.
type RetryReport struct {
	Processed int      `json:"processed"`
	Results   []Result `json:"results,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// RetryFailedPosts re-publishes failed posts that still have retry budget
// and were created inside the retry window.
func (p *Publisher) RetryFailedPosts(ctx context.Context) (*RetryReport, error) {
	cutoff := p.now().Add(-RetryWindow)

	posts, err := p.Store.ListRetryablePosts(ctx, MaxRetries, cutoff, RetryBatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable posts: %w", err)
	}

	if len(posts) == 0 {
		return &RetryReport{Message: "No failed posts to retry"}, nil
	}

	report := &RetryReport{}
	for i := range posts {
		log.Printf("[RetryCron] Retrying post %d (%s)...", posts[i].ID, posts[i].Platform)
		result := p.Publish(ctx, posts[i].ID)
		report.Results = append(report.Results, result)
		report.Processed++
	}

	return report, nil
}

// backfillImages generates and stores images for a small batch of posts that
// hold an image prompt but no image yet. Every failure is logged and
// isolated; a bad image never blocks a publish.
func (p *Publisher) backfillImages(ctx context.Context) int {
	if p.Images == nil || p.ImageStore == nil {
		return 0
	}

	posts, err := p.Store.ListPostsAwaitingImages(ctx, ImageBatchSize)
	if err != nil {
		log.Printf("[Publisher] Failed to list posts awaiting images: %v", err)
		return 0
	}

	backfilled := 0
	for i := range posts {
		post := &posts[i]

		data, err := p.Images.GenerateImage(ctx, post.ImagePrompt)
		if err != nil {
			log.Printf("[Publisher] Image generation failed for post %d: %v", post.ID, err)
			continue
		}

		filename := fmt.Sprintf("post-%d.%s", post.ID, imageContentType)
		url, err := p.ImageStore.Save(ctx, filename, data)
		if err != nil {
			log.Printf("[Publisher] Image upload failed for post %d: %v", post.ID, err)
			continue
		}

		if err := p.Store.SetPostImage(ctx, post.ID, url); err != nil {
			log.Printf("[Publisher] Failed to store image URL for post %d: %v", post.ID, err)
			continue
		}

		backfilled++
	}

	return backfilled
}

// Package store wraps the gorm connection behind named entity operations.
// Lookups that miss return ErrNotFound so callers never sniff driver errors.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---------------------------------------------------------------------------
// Pipelines

func (s *Store) GetPipeline(ctx context.Context, id uint) (*models.Pipeline, error) {
	var p models.Pipeline
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

func (s *Store) ListActivePipelines(ctx context.Context) ([]models.Pipeline, error) {
	var pipelines []models.Pipeline
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&pipelines).Error
	return pipelines, err
}

// UpdatePipelineSchedule persists the advancer's bookkeeping after a scan.
func (s *Store) UpdatePipelineSchedule(ctx context.Context, id uint, lastRunAt, nextRunAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Pipeline{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_run_at": lastRunAt,
			"next_run_at": nextRunAt,
		}).Error
}

// ---------------------------------------------------------------------------
// Topics

func (s *Store) GetTopic(ctx context.Context, id uint) (*models.Topic, error) {
	var t models.Topic
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &t, nil
}

// ListPendingTopics returns the pipeline's pending topics in processing
// order: sort_order ascending, creation order breaking ties.
func (s *Store) ListPendingTopics(ctx context.Context, pipelineID uint) ([]models.Topic, error) {
	var topics []models.Topic
	err := s.db.WithContext(ctx).
		Where("pipeline_id = ? AND status = ?", pipelineID, models.TopicStatusPending).
		Order("sort_order ASC, created_at ASC").
		Find(&topics).Error
	return topics, err
}

func (s *Store) CreateTopic(ctx context.Context, topic *models.Topic) error {
	return s.db.WithContext(ctx).Create(topic).Error
}

func (s *Store) UpdateTopicStatus(ctx context.Context, id uint, status string) error {
	return s.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// MarkTopicGenerated flips the topic to generated and stamps last_used_at.
func (s *Store) MarkTopicGenerated(ctx context.Context, id uint, usedAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.TopicStatusGenerated,
			"last_used_at": usedAt,
		}).Error
}

// NextTopicSortOrder returns the next free slot at the end of the pipeline's
// topic queue.
func (s *Store) NextTopicSortOrder(ctx context.Context, pipelineID uint) (int, error) {
	var max int
	err := s.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("pipeline_id = ?", pipelineID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	return max + 1, err
}

// ReorderTopics rewrites sort_order to match the given id order.
func (s *Store) ReorderTopics(ctx context.Context, pipelineID uint, orderedIDs []uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			err := tx.Model(&models.Topic{}).
				Where("id = ? AND pipeline_id = ?", id, pipelineID).
				Update("sort_order", i+1).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Posts

func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &p, nil
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

// ListDuePosts returns posts scheduled at or before now.
func (s *Store) ListDuePosts(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", models.PostStatusScheduled, now).
		Order("scheduled_for ASC").
		Find(&posts).Error
	return posts, err
}

// ScheduledQueue reports the depth of the scheduled queue and the earliest
// upcoming publish time, for idle-scan diagnostics.
func (s *Store) ScheduledQueue(ctx context.Context) (int64, *time.Time, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("status = ?", models.PostStatusScheduled).
		Count(&count).Error
	if err != nil || count == 0 {
		return count, nil, err
	}

	var next models.Post
	err = s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for IS NOT NULL", models.PostStatusScheduled).
		Order("scheduled_for ASC").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return count, nil, nil
		}
		return count, nil, err
	}
	return count, next.ScheduledFor, nil
}

// ListPostsAwaitingImages returns a bounded batch of posts that hold an image
// prompt but no stored image yet.
func (s *Store) ListPostsAwaitingImages(ctx context.Context, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{
			models.PostStatusScheduled,
			models.PostStatusGenerated,
			models.PostStatusPublished,
		}).
		Where("image_prompt <> '' AND (image_url = '' OR image_url IS NULL)").
		Order("created_at ASC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// ListRetryablePosts returns failed posts still inside the retry budget and
// age window.
func (s *Store) ListRetryablePosts(ctx context.Context, maxRetries int, createdAfter time.Time, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND retry_count < ? AND created_at >= ?",
			models.PostStatusFailed, maxRetries, createdAfter).
		Order("created_at ASC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

// MarkPostPublished records a successful publish and clears any previous
// error message.
func (s *Store) MarkPostPublished(ctx context.Context, id uint, platformPostID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           models.PostStatusPublished,
			"published_at":     at,
			"platform_post_id": platformPostID,
			"error_message":    "",
		}).Error
}

// RecordPublishFailure marks the post failed and consumes one retry.
func (s *Store) RecordPublishFailure(ctx context.Context, id uint, message string) error {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.PostStatusFailed,
			"error_message": message,
			"retry_count":   gorm.Expr("retry_count + 1"),
		}).Error
}

// UpdatePostStatus sets the post status and error message without touching
// retry bookkeeping.
func (s *Store) UpdatePostStatus(ctx context.Context, id uint, status, errorMessage string) error {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
		}).Error
}

// SchedulePost queues the post for publishing at the given time.
func (s *Store) SchedulePost(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.PostStatusScheduled,
			"scheduled_for": at,
			"error_message": "",
		}).Error
}

// SetPostImage stores the generated image URL on the post.
func (s *Store) SetPostImage(ctx context.Context, id uint, url string) error {
	return s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Update("image_url", url).Error
}

// CountPublishedSince counts posts the user has published to a platform
// after the given instant. The publish rate limiter is built on this.
func (s *Store) CountPublishedSince(ctx context.Context, userID uint, platform string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ? AND platform = ? AND status = ? AND published_at >= ?",
			userID, platform, models.PostStatusPublished, since).
		Count(&count).Error
	return count, err
}

// ---------------------------------------------------------------------------
// Platform connections

func (s *Store) GetConnection(ctx context.Context, userID uint, platform string) (*models.PlatformConnection, error) {
	var conn models.PlatformConnection
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&conn).Error
	if err != nil {
		return nil, wrapErr(err)
	}
	return &conn, nil
}

// UpdateConnectionToken persists a rotated OAuth token after a refresh
// exchange.
func (s *Store) UpdateConnectionToken(ctx context.Context, id uint, accessToken, refreshToken string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.PlatformConnection{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
		}).Error
}

// ---------------------------------------------------------------------------
// Users

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, wrapErr(err)
	}
	return &u, nil
}

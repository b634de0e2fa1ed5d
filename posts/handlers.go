// Package posts exposes the review workflow around generated posts:
// approve, schedule, skip, and manual publish.
package posts

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	"github.com/gin-gonic/gin"
)

// Store is the slice of persistence the review workflow needs.
type Store interface {
	GetPost(ctx context.Context, id uint) (*models.Post, error)
	SchedulePost(ctx context.Context, id uint, at time.Time) error
	UpdatePostStatus(ctx context.Context, id uint, status, errorMessage string) error
}

// Dispatcher runs one post through the publish path.
type Dispatcher interface {
	Publish(ctx context.Context, postID uint) publisher.Result
}

type Handler struct {
	Store     Store
	Publisher Dispatcher
}

func NewHandler(st Store, pub Dispatcher) *Handler {
	return &Handler{Store: st, Publisher: pub}
}

type ApproveRequest struct {
	PostID       uint       `json:"post_id" binding:"required"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

// Approve moves a reviewed post into the publish queue. Without an explicit
// time it publishes on the next scan tick.
func (h *Handler) Approve(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	post, ok := h.ownedPost(c, req.PostID)
	if !ok {
		return
	}

	switch post.Status {
	case models.PostStatusGenerated, models.PostStatusPending, models.PostStatusDraft:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot approve a post with status '" + post.Status + "'",
		})
		return
	}

	publishAt := time.Now().Add(time.Minute)
	if req.ScheduledFor != nil {
		publishAt = *req.ScheduledFor
	}

	if err := h.Store.SchedulePost(ctx, post.ID, publishAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Store.GetPost(ctx, post.ID)
	if err != nil {
		updated = post
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "post": updated})
}

type ScheduleRequest struct {
	PostID       uint      `json:"post_id" binding:"required"`
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

// Schedule sets an explicit publish time on a post.
func (h *Handler) Schedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, ok := h.ownedPost(c, req.PostID)
	if !ok {
		return
	}

	if err := h.Store.SchedulePost(c.Request.Context(), post.ID, req.ScheduledFor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type PostIDRequest struct {
	PostID uint `json:"post_id" binding:"required"`
}

// Skip marks a post as skipped by the user.
func (h *Handler) Skip(c *gin.Context) {
	var req PostIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, ok := h.ownedPost(c, req.PostID)
	if !ok {
		return
	}

	if err := h.Store.UpdatePostStatus(c.Request.Context(), post.ID, models.PostStatusSkipped, ""); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Publish pushes one post through the dispatcher immediately.
func (h *Handler) Publish(c *gin.Context) {
	var req PostIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, ok := h.ownedPost(c, req.PostID)
	if !ok {
		return
	}

	result := h.Publisher.Publish(c.Request.Context(), post.ID)
	if result.RateLimited {
		// Refusal, not failure: the post is untouched and will go out on a
		// later scan.
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":      false,
			"rate_limited": true,
			"error":        result.Error,
		})
		return
	}
	if !result.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ownedPost loads the post and enforces ownership, writing the error
// response itself on failure.
func (h *Handler) ownedPost(c *gin.Context, postID uint) (*models.Post, bool) {
	userID := c.GetUint("user_id")

	post, err := h.Store.GetPost(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return nil, false
	}
	if post.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil, false
	}
	return post, true
}

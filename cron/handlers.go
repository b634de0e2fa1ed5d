// Package cron exposes the scan entry points behind a shared-secret bearer
// check: pipeline generation, due-post publishing, and failed-post retry.
package cron

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/pipeline"
	"github.com/MuhammadSohaibRiaz/NexFLow/publisher"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Overlapping cron fires are serialized with a short-lived redis lock so two
// triggers can't scan the same queue at once.
const lockTTL = 10 * time.Minute

type Handler struct {
	Runner    *pipeline.Runner
	Publisher *publisher.Publisher
	Secret    string

	// Optional; when nil the scan lock is skipped (single-instance setups).
	Redis *redis.Client
}

func NewHandler(runner *pipeline.Runner, pub *publisher.Publisher, secret string, rdb *redis.Client) *Handler {
	return &Handler{
		Runner:    runner,
		Publisher: pub,
		Secret:    secret,
		Redis:     rdb,
	}
}

// Generate runs the due-pipeline scan.
func (h *Handler) Generate(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	release, ok := h.acquireLock(c, "cron:generate:lock")
	if !ok {
		return
	}
	defer release()

	report, err := h.Runner.RunDuePipelines(c.Request.Context())
	if err != nil {
		log.Printf("[Cron] Pipeline scan error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"total_active": report.TotalActive,
		"processed":    report.Processed,
		"results":      report.Results,
	})
}

// Publish runs the due-post scan.
func (h *Handler) Publish(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	release, ok := h.acquireLock(c, "cron:publish:lock")
	if !ok {
		return
	}
	defer release()

	report, err := h.Publisher.RunDuePublishing(c.Request.Context())
	if err != nil {
		log.Printf("[Cron] Publish scan error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// Retry re-publishes failed posts still inside the retry budget.
func (h *Handler) Retry(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	release, ok := h.acquireLock(c, "cron:retry:lock")
	if !ok {
		return
	}
	defer release()

	report, err := h.Publisher.RetryFailedPosts(c.Request.Context())
	if err != nil {
		log.Printf("[Cron] Retry scan error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// authorize enforces the CRON_SECRET bearer check before any core logic
// runs. A missing secret is a deployment error, not an auth failure.
func (h *Handler) authorize(c *gin.Context) bool {
	if h.Secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "CRON_SECRET is not configured"})
		c.Abort()
		return false
	}

	header := c.GetHeader("Authorization")
	expected := "Bearer " + h.Secret
	if subtle.ConstantTimeCompare([]byte(header), []byte(expected)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
		return false
	}
	return true
}

// acquireLock takes the scan lock and returns its release func. The TTL is
// only a backstop against a crashed holder.
func (h *Handler) acquireLock(c *gin.Context, key string) (func(), bool) {
	if h.Redis == nil {
		return func() {}, true
	}

	ctx := c.Request.Context()
	ok, err := h.Redis.SetNX(ctx, key, time.Now().Unix(), lockTTL).Result()
	if err != nil {
		log.Printf("[Cron] Lock check failed for %s, proceeding: %v", key, err)
		return func() {}, true
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Scan already running, skipped",
		})
		return nil, false
	}

	return func() {
		// Release on a fresh context: the request context may already be
		// cancelled by the time the scan finishes, and a failed Del would
		// leave the lock held for the full TTL.
		if err := h.Redis.Del(context.Background(), key).Err(); err != nil {
			log.Printf("[Cron] Failed to release lock %s: %v", key, err)
		}
	}, true
}

// Package topics exposes the topic queue API, including the synchronous
// instant-generation path that runs when a topic is added.
package topics

import (
	"errors"
	"log"
	"net/http"

	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/pipeline"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	Store  *store.Store
	Runner *pipeline.Runner
}

func NewHandler(st *store.Store, runner *pipeline.Runner) *Handler {
	return &Handler{Store: st, Runner: runner}
}

type CreateTopicRequest struct {
	PipelineID          uint   `json:"pipeline_id" binding:"required"`
	Title               string `json:"title" binding:"required"`
	Notes               string `json:"notes"`
	IsEvergreen         bool   `json:"is_evergreen"`
	RecycleIntervalDays *int   `json:"recycle_interval_days"`
}

// CreateTopic queues a topic and immediately generates content for it. The
// generation is awaited, not fire-and-forget, so the caller sees the final
// topic state.
func (h *Handler) CreateTopic(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	p, err := h.Store.GetPipeline(ctx, req.PipelineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}
	if p.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline not found"})
		return
	}

	sortOrder, err := h.Store.NextTopicSortOrder(ctx, p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}

	topic := models.Topic{
		PipelineID:          p.ID,
		Title:               req.Title,
		Notes:               req.Notes,
		IsEvergreen:         req.IsEvergreen,
		RecycleIntervalDays: req.RecycleIntervalDays,
		SortOrder:           sortOrder,
		Status:              models.TopicStatusPending,
	}
	if err := h.Store.CreateTopic(ctx, &topic); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}

	result, genErr := h.Runner.GenerateTopicContent(ctx, topic.ID, p.ID)
	if genErr != nil {
		log.Printf("[Topics] Instant generation failed for topic %d: %v", topic.ID, genErr)
	}

	updated, err := h.Store.GetTopic(ctx, topic.ID)
	if err != nil {
		updated = &topic
	}

	resp := gin.H{"topic": updated}
	if result != nil {
		resp["generation"] = result
	}
	if genErr != nil {
		resp["generation_error"] = genErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

type ReorderRequest struct {
	PipelineID uint   `json:"pipeline_id" binding:"required"`
	OrderedIDs []uint `json:"ordered_ids" binding:"required"`
}

// Reorder rewrites the pipeline's topic processing order.
func (h *Handler) Reorder(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	p, err := h.Store.GetPipeline(ctx, req.PipelineID)
	if err != nil || p.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pipeline not found"})
		return
	}

	if err := h.Store.ReorderTopics(ctx, p.ID, req.OrderedIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder topics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

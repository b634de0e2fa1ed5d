// Package pipeline decides which pipelines are due, dispatches per-platform
// content generation for their pending topics, and advances their schedules.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/MuhammadSohaibRiaz/NexFLow/ai"
	"github.com/MuhammadSohaibRiaz/NexFLow/models"
	"github.com/MuhammadSohaibRiaz/NexFLow/store"
)

// Store is the slice of persistence the runner needs.
type Store interface {
	ListActivePipelines(ctx context.Context) ([]models.Pipeline, error)
	GetPipeline(ctx context.Context, id uint) (*models.Pipeline, error)
	UpdatePipelineSchedule(ctx context.Context, id uint, lastRunAt, nextRunAt time.Time) error

	ListPendingTopics(ctx context.Context, pipelineID uint) ([]models.Topic, error)
	GetTopic(ctx context.Context, id uint) (*models.Topic, error)
	UpdateTopicStatus(ctx context.Context, id uint, status string) error
	MarkTopicGenerated(ctx context.Context, id uint, usedAt time.Time) error

	CreatePost(ctx context.Context, post *models.Post) error
	GetConnection(ctx context.Context, userID uint, platform string) (*models.PlatformConnection, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// Runner is the due-pipeline scanner and content-generation dispatcher.
type Runner struct {
	Store Store
	AI    ai.Provider

	now func() time.Time
}

func NewRunner(st Store, provider ai.Provider) *Runner {
	return &Runner{Store: st, AI: provider, now: time.Now}
}

// PlatformOutcome records one platform's generation attempt for one topic.
type PlatformOutcome struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Success  bool   `json:"success"`
	PostID   uint   `json:"post_id,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ProcessResult summarizes one pipeline's processing pass.
type ProcessResult struct {
	TopicsProcessed  int               `json:"topics_processed"`
	PlatformsUsed    []string          `json:"platforms_used"`
	PlatformsSkipped []string          `json:"platforms_skipped"`
	Outcomes         []PlatformOutcome `json:"outcomes,omitempty"`
	Message          string            `json:"message,omitempty"`
}

// PipelineResult is the per-pipeline entry in a scan report.
type PipelineResult struct {
	ID      uint           `json:"id"`
	Name    string         `json:"name"`
	Status  string         `json:"status"` // skipped | processed | failed
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Result  *ProcessResult `json:"result,omitempty"`
}

// ScanReport is the due-pipeline scan envelope.
type ScanReport struct {
	TotalActive int              `json:"total_active"`
	Processed   int              `json:"processed"`
	Results     []PipelineResult `json:"results"`
}

// RunDuePipelines is the cron entry point. It walks every active pipeline,
// processes the due ones, and never lets one pipeline's failure stop the
// rest. Topics already flipped out of pending by an earlier run are not
// reprocessed, so back-to-back invocations are safe.
func (r *Runner) RunDuePipelines(ctx context.Context) (*ScanReport, error) {
	log.Println("[PipelineRunner] Checking all active pipelines...")

	pipelines, err := r.Store.ListActivePipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active pipelines: %w", err)
	}

	now := r.now()
	report := &ScanReport{TotalActive: len(pipelines)}

	for i := range pipelines {
		p := &pipelines[i]

		if !p.IsDue(now) {
			wait := p.NextRunAt.Sub(now).Round(time.Minute)
			report.Results = append(report.Results, PipelineResult{
				ID:      p.ID,
				Name:    p.Name,
				Status:  "skipped",
				Message: fmt.Sprintf("Scheduled for %s (%s)", p.NextRunAt.Format(time.RFC3339), wait),
			})
			continue
		}

		result, err := r.ProcessPipeline(ctx, p)
		if err != nil {
			log.Printf("[PipelineRunner] Error processing pipeline %d: %v", p.ID, err)
			report.Results = append(report.Results, PipelineResult{
				ID:     p.ID,
				Name:   p.Name,
				Status: "failed",
				Error:  err.Error(),
			})
			continue
		}

		report.Processed++
		report.Results = append(report.Results, PipelineResult{
			ID:      p.ID,
			Name:    p.Name,
			Status:  "processed",
			Success: true,
			Result:  result,
		})
	}

	return report, nil
}

// ProcessPipeline generates content for every pending topic of a due
// pipeline, then advances the schedule exactly once. Platforms without an
// active connection are reported as skipped and never generated against; a
// pipeline with nothing usable still advances so it can't wedge the scanner.
func (r *Runner) ProcessPipeline(ctx context.Context, p *models.Pipeline) (*ProcessResult, error) {
	valid, skipped := r.connectedPlatforms(ctx, p)

	result := &ProcessResult{
		PlatformsUsed:    valid,
		PlatformsSkipped: skipped,
	}

	if len(valid) == 0 {
		log.Printf("[PipelineRunner] Pipeline %d has no connected platforms. Advancing.", p.ID)
		result.Message = "No connected platforms"
		return result, r.advancePipeline(ctx, p)
	}

	topics, err := r.Store.ListPendingTopics(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending topics: %w", err)
	}

	if len(topics) == 0 {
		log.Printf("[PipelineRunner] No pending topics for pipeline %d. Skipping.", p.ID)
		result.Message = "No pending topics"
		return result, r.advancePipeline(ctx, p)
	}

	brandVoice := r.brandVoice(ctx, p.UserID)
	dueAt := p.DueAt(r.now())

	for i := range topics {
		topic := &topics[i]
		outcomes := r.generateForTopic(ctx, p, topic, valid, brandVoice, dueAt)
		result.Outcomes = append(result.Outcomes, outcomes...)
		result.TopicsProcessed++
	}

	if err := r.advancePipeline(ctx, p); err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateTopicContent is the instant-generation path: it runs the per-topic
// generation for one specific topic, synchronously, without touching the
// pipeline schedule. Posts created here are scheduled for the pipeline's
// next due instant so nothing publishes ahead of its slot.
func (r *Runner) GenerateTopicContent(ctx context.Context, topicID, pipelineID uint) (*ProcessResult, error) {
	topic, err := r.Store.GetTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("topic %d not found", topicID)
		}
		return nil, err
	}
	if topic.PipelineID != pipelineID {
		return nil, fmt.Errorf("topic %d does not belong to pipeline %d", topicID, pipelineID)
	}
	if topic.Status != models.TopicStatusPending {
		return nil, fmt.Errorf("topic %d is not pending (status %q)", topicID, topic.Status)
	}

	p, err := r.Store.GetPipeline(ctx, pipelineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("pipeline %d not found", pipelineID)
		}
		return nil, err
	}

	valid, skipped := r.connectedPlatforms(ctx, p)
	result := &ProcessResult{
		PlatformsUsed:    valid,
		PlatformsSkipped: skipped,
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no connected platforms for pipeline %d", pipelineID)
	}

	brandVoice := r.brandVoice(ctx, p.UserID)
	result.Outcomes = r.generateForTopic(ctx, p, topic, valid, brandVoice, p.DueAt(r.now()))
	result.TopicsProcessed = 1
	return result, nil
}

// generateForTopic fans one topic out across the valid platforms. Each
// platform call is independent: a failure is logged, recorded, and the loop
// moves on. The topic always ends up generated with last_used_at stamped,
// even when every platform failed; the created-or-absent posts carry the
// failure visibility.
func (r *Runner) generateForTopic(ctx context.Context, p *models.Pipeline, topic *models.Topic, platforms []string, brandVoice string, dueAt time.Time) []PlatformOutcome {
	if err := r.Store.UpdateTopicStatus(ctx, topic.ID, models.TopicStatusGenerating); err != nil {
		log.Printf("[PipelineRunner] Failed to mark topic %d generating: %v", topic.ID, err)
	}

	var outcomes []PlatformOutcome

	for _, platform := range platforms {
		log.Printf("[PipelineRunner] Generating %s content for topic: %s", platform, topic.Title)

		generated, err := r.AI.GenerateContent(ctx, ai.Request{
			Topic:      topic.Title,
			Notes:      topic.Notes,
			Platform:   platform,
			BrandVoice: brandVoice,
		})
		if err != nil {
			log.Printf("[PipelineRunner] Failed to generate %s for topic %d: %v", platform, topic.ID, err)
			outcomes = append(outcomes, PlatformOutcome{
				Topic:    topic.Title,
				Platform: platform,
				Detail:   err.Error(),
			})
			continue
		}

		post := &models.Post{
			TopicID:     topic.ID,
			PipelineID:  p.ID,
			UserID:      p.UserID,
			Platform:    platform,
			Content:     generated.Content,
			Hashtags:    generated.Hashtags,
			ImagePrompt: generated.ImagePrompt,
		}
		if p.ReviewRequired {
			post.Status = models.PostStatusGenerated
		} else {
			post.Status = models.PostStatusScheduled
			scheduledFor := dueAt
			post.ScheduledFor = &scheduledFor
		}

		if err := r.Store.CreatePost(ctx, post); err != nil {
			log.Printf("[PipelineRunner] Failed to create %s post for topic %d: %v", platform, topic.ID, err)
			outcomes = append(outcomes, PlatformOutcome{
				Topic:    topic.Title,
				Platform: platform,
				Detail:   err.Error(),
			})
			continue
		}

		outcomes = append(outcomes, PlatformOutcome{
			Topic:    topic.Title,
			Platform: platform,
			Success:  true,
			PostID:   post.ID,
		})
	}

	if err := r.Store.MarkTopicGenerated(ctx, topic.ID, r.now()); err != nil {
		log.Printf("[PipelineRunner] Failed to mark topic %d generated: %v", topic.ID, err)
	}

	return outcomes
}

// advancePipeline computes the next run from the pipeline's current slot,
// not from now, and stamps last_run_at. It runs once per scan even when
// nothing was generated.
func (r *Runner) advancePipeline(ctx context.Context, p *models.Pipeline) error {
	now := r.now()
	next := NextRunAt(p.Frequency, p.DueAt(now), now)

	if err := r.Store.UpdatePipelineSchedule(ctx, p.ID, now, next); err != nil {
		return fmt.Errorf("failed to advance pipeline %d: %w", p.ID, err)
	}

	p.LastRunAt = &now
	p.NextRunAt = &next
	return nil
}

// connectedPlatforms splits the pipeline's targets into those with an active
// connection and those without.
func (r *Runner) connectedPlatforms(ctx context.Context, p *models.Pipeline) (valid, skipped []string) {
	for _, platform := range p.Platforms {
		conn, err := r.Store.GetConnection(ctx, p.UserID, platform)
		if err != nil || !conn.IsActive {
			skipped = append(skipped, platform)
			continue
		}
		valid = append(valid, platform)
	}
	return valid, skipped
}

func (r *Runner) brandVoice(ctx context.Context, userID uint) string {
	user, err := r.Store.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.BrandVoice
}

package models

import "time"

// Post status lifecycle.
const (
	PostStatusDraft     = "draft"
	PostStatusPending   = "pending"
	PostStatusGenerated = "generated"
	PostStatusApproved  = "approved"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
	PostStatusSkipped   = "skipped"
)

// Post is one platform-specific generated artifact derived from a topic,
// tracked from generation through publishing. PublishedAt and PlatformPostID
// are set only when Status is "published"; RetryCount only ever increases.
type Post struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	TopicID    uint `gorm:"not null;index" json:"topic_id"`
	PipelineID uint `gorm:"not null;index" json:"pipeline_id"`
	UserID     uint `gorm:"not null;index" json:"user_id"`

	Platform string   `gorm:"not null" json:"platform"`
	Content  string   `gorm:"type:text" json:"content"`
	Hashtags []string `gorm:"serializer:json" json:"hashtags,omitempty"`

	ImageURL    string `json:"image_url,omitempty"`
	ImagePrompt string `gorm:"type:text" json:"image_prompt,omitempty"`

	Status       string     `gorm:"default:'draft';index" json:"status"`
	ScheduledFor *time.Time `gorm:"index" json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`

	PlatformPostID string `json:"platform_post_id,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	RetryCount     int    `gorm:"default:0" json:"retry_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// NeedsImage reports whether the post is waiting on image generation: it
// holds a prompt but no stored URL yet.
func (p *Post) NeedsImage() bool {
	return p.ImagePrompt != "" && p.ImageURL == ""
}

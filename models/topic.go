package models

import "time"

// Topic status lifecycle.
const (
	TopicStatusPending    = "pending"
	TopicStatusGenerating = "generating"
	TopicStatusGenerated  = "generated"
	TopicStatusSkipped    = "skipped"
)

// Topic is a content idea queued inside one pipeline. Topics are processed in
// SortOrder, ties broken by creation order.
type Topic struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	PipelineID uint     `gorm:"not null;index" json:"pipeline_id"`
	Pipeline   Pipeline `gorm:"foreignKey:PipelineID" json:"-"`
	Title      string   `gorm:"not null" json:"title"`

	// Notes give the AI extra context for generation.
	Notes string `gorm:"type:text" json:"notes,omitempty"`

	// Evergreen topics could be recycled after RecycleIntervalDays; nothing
	// re-queues them yet.
	IsEvergreen         bool `gorm:"default:false" json:"is_evergreen"`
	RecycleIntervalDays *int `json:"recycle_interval_days,omitempty"`

	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	SortOrder  int        `gorm:"not null;default:0;index" json:"sort_order"`
	Status     string     `gorm:"default:'pending';index" json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Topic) TableName() string {
	return "topics"
}

package models

import (
	"time"
)

// Posting frequency options.
const (
	FrequencyDaily    = "daily"
	FrequencyWeekly   = "weekly"
	FrequencyBiWeekly = "bi-weekly"
	FrequencyMonthly  = "monthly"
)

// Pipeline is a recurring content-generation schedule owned by one user.
// The scheduler advances NextRunAt/LastRunAt; everything else is edited by
// the user.
type Pipeline struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	UserID      uint     `gorm:"not null;index" json:"user_id"`
	User        User     `gorm:"foreignKey:UserID" json:"-"`
	Name        string   `gorm:"not null" json:"name"`
	Description string   `json:"description"`
	Platforms   []string `gorm:"serializer:json" json:"platforms"`
	Frequency   string   `gorm:"not null;default:'daily'" json:"frequency"`

	// Preferred posting time, advisory only. HH:MM in the pipeline's timezone.
	PostTime string `json:"post_time"`
	Timezone string `gorm:"default:'UTC'" json:"timezone"`

	ReviewRequired bool `gorm:"default:false" json:"review_required"`
	IsActive       bool `gorm:"default:true" json:"is_active"`

	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `gorm:"index" json:"next_run_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Pipeline) TableName() string {
	return "pipelines"
}

// IsDue reports whether the pipeline should be processed at the given time.
// A pipeline with no NextRunAt yet is treated as due.
func (p *Pipeline) IsDue(now time.Time) bool {
	if p.NextRunAt == nil {
		return true
	}
	return !p.NextRunAt.After(now)
}

// DueAt returns the instant this pipeline was scheduled for, falling back to
// now when the pipeline has never been seeded.
func (p *Pipeline) DueAt(now time.Time) time.Time {
	if p.NextRunAt == nil {
		return now
	}
	return *p.NextRunAt
}

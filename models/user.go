package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`

	// BrandVoice is free-form guidance fed to the AI provider with every
	// generation request for this user.
	BrandVoice string `gorm:"type:text" json:"brand_voice,omitempty"`
	Timezone   string `gorm:"default:'UTC'" json:"timezone"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

package models

import "time"

// PlatformConnection is a per-user, per-platform OAuth credential bundle.
// The publishing engine reads these; only the Twitter token refresh writes
// back.
type PlatformConnection struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index:idx_conn_user_platform,unique" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Platform       string     `gorm:"not null;index:idx_conn_user_platform,unique" json:"platform"`
	AccessToken    string     `gorm:"not null" json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PlatformConnection) TableName() string {
	return "platform_connections"
}

// TokenExpiringWithin reports whether the access token expires within d of
// now. Connections without an expiry never report as expiring.
func (c *PlatformConnection) TokenExpiringWithin(d time.Duration, now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return c.TokenExpiresAt.Sub(now) < d
}

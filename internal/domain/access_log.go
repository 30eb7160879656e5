package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessLog is an append-only record of disclosure attempts. Rows may
// reference tokens that no longer exist in secrets; failed attempts against
// consumed or unknown tokens are still recorded.
type AccessLog struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SecretToken string    `gorm:"type:text;not null;index" json:"secretToken"`
	Success     bool      `gorm:"not null;default:false" json:"success"`
	IPAddress   string    `gorm:"type:text" json:"ipAddress"`
	UserAgent   string    `gorm:"type:text" json:"userAgent"`
	AttemptedAt time.Time `gorm:"not null" json:"attemptedAt"`
}

func (AccessLog) TableName() string { return "access_logs" }

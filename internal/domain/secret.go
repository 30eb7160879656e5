package domain

import (
	"time"

	"github.com/google/uuid"
)

// Secret is a pending one-time message. The row is physically removed on
// successful disclosure; there is no consumed flag and no update path.
type Secret struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Token        string     `gorm:"type:text;not null;uniqueIndex:ux_secrets_token" json:"token"`
	Message      string     `gorm:"type:text;not null" json:"-"`
	PasswordHash string     `gorm:"type:text;not null" json:"-"`
	OwnerID      *uuid.UUID `gorm:"type:uuid;index" json:"ownerId,omitempty"`
	CreatedAt    time.Time  `gorm:"not null" json:"createdAt"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (Secret) TableName() string { return "secrets" }

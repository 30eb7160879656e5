package store

import (
	"context"
	"time"

	"secretdrop/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessLogStore is append-only. It never checks whether the referenced
// token still exists in secrets and exposes no read path to the core.
type AccessLogStore struct{ db *gorm.DB }

func (s *Store) AccessLogs() *AccessLogStore { return &AccessLogStore{db: s.DB} }

func (a *AccessLogStore) Append(ctx context.Context, entry *domain.AccessLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now().UTC()
	}
	return a.db.WithContext(ctx).Create(entry).Error
}

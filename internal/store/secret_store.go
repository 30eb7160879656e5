package store

import (
	"context"

	"secretdrop/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SecretStore struct{ db *gorm.DB }

func (s *Store) Secrets() *SecretStore { return &SecretStore{db: s.DB} }

func (ss *SecretStore) Create(ctx context.Context, sec *domain.Secret) error {
	if sec.ID == uuid.Nil {
		sec.ID = uuid.New()
	}
	if err := ss.db.WithContext(ctx).Create(sec).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (ss *SecretStore) Exists(ctx context.Context, token string) (bool, error) {
	var count int64
	err := ss.db.WithContext(ctx).Model(&domain.Secret{}).
		Where("token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetForUpdate loads the secret row under a row lock. Callers must run it
// inside WithTx so the lock spans the verify-then-delete sequence; disclosure
// attempts on the same token serialize here, different tokens never block.
func (ss *SecretStore) GetForUpdate(ctx context.Context, token string) (*domain.Secret, error) {
	var sec domain.Secret
	err := ss.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&sec, "token = ?", token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sec, nil
}

// DeleteByToken removes the row and reports how many rows went away. Zero
// rows on a token that was just read means a concurrent disclosure won.
func (ss *SecretStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	tx := ss.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.Secret{})
	return tx.RowsAffected, tx.Error
}

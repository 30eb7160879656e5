package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateKey is returned when an insert violates a unique index. The
// gorm connection must be opened with TranslateError for the mapping to work.
var ErrDuplicateKey = errors.New("duplicate key")

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	default:
		return err
	}
}

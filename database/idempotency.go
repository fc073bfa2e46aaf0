package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shubhamforall/petstore-api/models"
)

// IdempotencyRepository persists Idempotency-Key records.
type IdempotencyRepository interface {
	Reserve(ctx context.Context, rec *models.IdempotencyKey) (*models.IdempotencyKey, error)
	Complete(ctx context.Context, userID, key string, status int, body []byte) error
	Release(ctx context.Context, userID, key string) error
}

type IdempotencyStore struct {
	db *gorm.DB
}

func NewIdempotencyStore(db *gorm.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// Reserve returns the existing record for (user, key), or stores rec as a pending one.
// The insert ignores conflicts so two racing requests both end up reading the same row.
func (s *IdempotencyStore) Reserve(ctx context.Context, rec *models.IdempotencyKey) (*models.IdempotencyKey, error) {
	db := s.db.WithContext(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return nil, fmt.Errorf("idempotency create failed: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return rec, nil
	}

	var existing models.IdempotencyKey
	if err := db.Where(&models.IdempotencyKey{UserID: rec.UserID, Key: rec.Key}).First(&existing).Error; err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	return &existing, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, userID, key string, status int, body []byte) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.IdempotencyKey{}).
		Where(&models.IdempotencyKey{UserID: userID, Key: key}).
		Updates(map[string]any{
			"response_status": status,
			"response_body":   body,
			"completed_at":    &now,
		}).Error
}

// Release drops a pending record so the key can be retried. Completed records are kept.
func (s *IdempotencyStore) Release(ctx context.Context, userID, key string) error {
	return s.db.WithContext(ctx).
		Where(&models.IdempotencyKey{UserID: userID, Key: key}).
		Where("completed_at IS NULL").
		Delete(&models.IdempotencyKey{}).Error
}

package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketship/backend/internal/domain/shipping"
)

// GormQuoteAuditStore implements shipping.QuoteAuditStore using GORM.
// Append trims the table down to the configured cap, oldest rows first.
type GormQuoteAuditStore struct {
	db  *gorm.DB
	cap int
}

// NewGormQuoteAuditStore creates a new GormQuoteAuditStore. A cap of zero
// or less keeps the log unbounded.
func NewGormQuoteAuditStore(db *gorm.DB, cap int) *GormQuoteAuditStore {
	return &GormQuoteAuditStore{db: db, cap: cap}
}

// Append writes one audit entry and drops entries beyond the cap
func (s *GormQuoteAuditStore) Append(ctx context.Context, entry *shipping.QuoteAuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(QuoteAuditModelFromDomain(entry)).Error; err != nil {
			return err
		}
		if s.cap <= 0 {
			return nil
		}

		var count int64
		if err := tx.Model(&QuoteAuditModel{}).Count(&count).Error; err != nil {
			return err
		}
		excess := count - int64(s.cap)
		if excess <= 0 {
			return nil
		}

		var staleIDs []uuid.UUID
		if err := tx.Model(&QuoteAuditModel{}).
			Order("created_at ASC").
			Limit(int(excess)).
			Pluck("id", &staleIDs).Error; err != nil {
			return err
		}
		return tx.Delete(&QuoteAuditModel{}, "id IN ?", staleIDs).Error
	})
}

// List returns up to limit entries, newest first
func (s *GormQuoteAuditStore) List(ctx context.Context, limit int) ([]shipping.QuoteAuditEntry, error) {
	query := s.db.WithContext(ctx).Model(&QuoteAuditModel{}).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var entryModels []QuoteAuditModel
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]shipping.QuoteAuditEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, nil
}

// Ensure GormQuoteAuditStore implements QuoteAuditStore
var _ shipping.QuoteAuditStore = (*GormQuoteAuditStore)(nil)

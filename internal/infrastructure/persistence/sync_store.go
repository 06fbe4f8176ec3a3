package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/domain/shared"
)

// GormSyncStore implements order.SyncStore using GORM
type GormSyncStore struct {
	db *gorm.DB
}

// NewGormSyncStore creates a new GormSyncStore
func NewGormSyncStore(db *gorm.DB) *GormSyncStore {
	return &GormSyncStore{db: db}
}

// Get returns the sync record for an order
func (s *GormSyncStore) Get(ctx context.Context, orderID string) (*order.SyncRecord, error) {
	var model SyncRecordModel
	if err := s.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return syncRecordToDomain(&model)
}

// Upsert creates or replaces the record for record.OrderID. The whole
// record is written so a crash between seller groups leaves the last
// consistent state on disk.
func (s *GormSyncStore) Upsert(ctx context.Context, record *order.SyncRecord) error {
	if record.OrderID == "" {
		return shared.ErrInvalidInput
	}

	model, err := syncRecordFromDomain(record)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// List returns up to limit records, most recently updated first
func (s *GormSyncStore) List(ctx context.Context, limit int) ([]order.SyncRecord, error) {
	query := s.db.WithContext(ctx).Model(&SyncRecordModel{}).Order("updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recordModels []SyncRecordModel
	if err := query.Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]order.SyncRecord, 0, len(recordModels))
	for i := range recordModels {
		record, err := syncRecordToDomain(&recordModels[i])
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

func syncRecordToDomain(m *SyncRecordModel) (*order.SyncRecord, error) {
	record := &order.SyncRecord{
		OrderID:          m.OrderID,
		Status:           order.SyncStatus(m.Status),
		SelectedShipping: m.SelectedShipping,
		LastError:        m.LastError,
		UpdatedAt:        m.UpdatedAt,
	}
	if m.ShipmentsJSON != "" {
		if err := json.Unmarshal([]byte(m.ShipmentsJSON), &record.Shipments); err != nil {
			return nil, fmt.Errorf("sync record %s: corrupt shipments document: %w", m.OrderID, err)
		}
	}
	if m.SkippedJSON != "" {
		if err := json.Unmarshal([]byte(m.SkippedJSON), &record.SkippedItems); err != nil {
			return nil, fmt.Errorf("sync record %s: corrupt skipped items document: %w", m.OrderID, err)
		}
	}
	return record, nil
}

func syncRecordFromDomain(r *order.SyncRecord) (*SyncRecordModel, error) {
	shipments, err := json.Marshal(r.Shipments)
	if err != nil {
		return nil, err
	}
	skipped, err := json.Marshal(r.SkippedItems)
	if err != nil {
		return nil, err
	}

	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	return &SyncRecordModel{
		OrderID:          r.OrderID,
		Status:           string(r.Status),
		ShipmentsJSON:    string(shipments),
		SkippedJSON:      string(skipped),
		SelectedShipping: r.SelectedShipping,
		LastError:        r.LastError,
		UpdatedAt:        updatedAt,
	}, nil
}

// Ensure GormSyncStore implements SyncStore
var _ order.SyncStore = (*GormSyncStore)(nil)

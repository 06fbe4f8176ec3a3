package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
)

// GormOriginStore implements seller.OriginStore using GORM
type GormOriginStore struct {
	db *gorm.DB
}

// NewGormOriginStore creates a new GormOriginStore
func NewGormOriginStore(db *gorm.DB) *GormOriginStore {
	return &GormOriginStore{db: db}
}

// Get returns the persisted origin for a seller
func (s *GormOriginStore) Get(ctx context.Context, sellerID string) (*seller.SellerOrigin, error) {
	var model OriginModel
	if err := s.db.WithContext(ctx).First(&model, "seller_id = ?", sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert creates or replaces the persisted origin for origin.SellerID
func (s *GormOriginStore) Upsert(ctx context.Context, origin *seller.SellerOrigin) error {
	if origin.SellerID == "" {
		return shared.ErrInvalidInput
	}
	model := OriginModelFromDomain(origin)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}},
			UpdateAll: true,
		}).
		Create(model).Error
}

// List returns up to limit persisted origins ordered by seller id
func (s *GormOriginStore) List(ctx context.Context, limit int) ([]seller.SellerOrigin, error) {
	query := s.db.WithContext(ctx).Model(&OriginModel{}).Order("seller_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var originModels []OriginModel
	if err := query.Find(&originModels).Error; err != nil {
		return nil, err
	}

	origins := make([]seller.SellerOrigin, len(originModels))
	for i := range originModels {
		origins[i] = *originModels[i].ToDomain()
	}
	return origins, nil
}

// Ensure GormOriginStore implements OriginStore
var _ seller.OriginStore = (*GormOriginStore)(nil)

package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marketship/backend/internal/domain/shared"
)

// GormCredentialStore implements shared.CredentialStore using GORM, one
// row per provider slot. Rotated token pairs survive restarts so a fresh
// process can resume with the last issued refresh token.
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

// Load returns the stored credentials for the given provider slot
func (s *GormCredentialStore) Load(ctx context.Context, provider string) (*shared.Credentials, error) {
	var model CredentialModel
	if err := s.db.WithContext(ctx).First(&model, "provider = ?", provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &shared.Credentials{
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
	}, nil
}

// Save overwrites the credentials for the given provider slot
func (s *GormCredentialStore) Save(ctx context.Context, provider string, creds *shared.Credentials) error {
	if provider == "" {
		return shared.ErrInvalidInput
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}},
			UpdateAll: true,
		}).
		Create(&CredentialModel{
			Provider:     provider,
			AccessToken:  creds.AccessToken,
			RefreshToken: creds.RefreshToken,
		}).Error
}

// Ensure GormCredentialStore implements CredentialStore
var _ shared.CredentialStore = (*GormCredentialStore)(nil)

package persistence

import (
	"time"

	"github.com/google/uuid"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shipping"
)

// OriginModel is the persistence model for operator-controlled seller
// origins. The resolution Source tag is runtime-only and never stored.
type OriginModel struct {
	SellerID     string `gorm:"type:varchar(64);primaryKey"`
	PostalCode   string `gorm:"type:varchar(16);not null"`
	City         string `gorm:"type:varchar(100)"`
	State        string `gorm:"type:varchar(100)"`
	Country      string `gorm:"type:varchar(2)"`
	Address      string `gorm:"type:text"`
	Latitude     *float64
	Longitude    *float64
	ContactName  string `gorm:"type:varchar(200)"`
	ContactPhone string `gorm:"type:varchar(32)"`
	ContactEmail string `gorm:"type:varchar(200)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (OriginModel) TableName() string {
	return "seller_origins"
}

// ToDomain converts the persistence model to a domain origin tagged as
// persisted.
func (m *OriginModel) ToDomain() *seller.SellerOrigin {
	return &seller.SellerOrigin{
		SellerID:     m.SellerID,
		PostalCode:   m.PostalCode,
		City:         m.City,
		State:        m.State,
		Country:      m.Country,
		Address:      m.Address,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		ContactName:  m.ContactName,
		ContactPhone: m.ContactPhone,
		ContactEmail: m.ContactEmail,
		Source:       seller.OriginSourcePersisted,
	}
}

// OriginModelFromDomain populates a persistence model from a domain origin.
func OriginModelFromDomain(o *seller.SellerOrigin) *OriginModel {
	return &OriginModel{
		SellerID:     o.SellerID,
		PostalCode:   o.PostalCode,
		City:         o.City,
		State:        o.State,
		Country:      o.Country,
		Address:      o.Address,
		Latitude:     o.Latitude,
		Longitude:    o.Longitude,
		ContactName:  o.ContactName,
		ContactPhone: o.ContactPhone,
		ContactEmail: o.ContactEmail,
	}
}

// SyncRecordModel is the persistence model for order sync records.
// Shipments and skipped items are stored as JSON documents; the record is
// always read and written whole.
type SyncRecordModel struct {
	OrderID          string `gorm:"type:varchar(64);primaryKey"`
	Status           string `gorm:"type:varchar(20);not null;index"`
	ShipmentsJSON    string `gorm:"column:shipments;type:text;not null;default:'[]'"`
	SkippedJSON      string `gorm:"column:skipped_items;type:text;not null;default:'[]'"`
	SelectedShipping string `gorm:"type:varchar(100)"`
	LastError        string `gorm:"type:text"`
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "order_sync_records"
}

// QuoteAuditModel is the persistence model for the capped quote audit log.
type QuoteAuditModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt    time.Time `gorm:"not null;index"`
	Destination  string    `gorm:"type:varchar(100)"`
	Currency     string    `gorm:"type:varchar(3)"`
	GroupCount   int
	SkippedCount int
	RateCount    int
	Fallback     bool
	CacheHit     bool
	DurationMs   int64
	Reason       string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (QuoteAuditModel) TableName() string {
	return "quote_audit_entries"
}

// ToDomain converts the persistence model to a domain audit entry.
func (m *QuoteAuditModel) ToDomain() *shipping.QuoteAuditEntry {
	return &shipping.QuoteAuditEntry{
		ID:           m.ID,
		CreatedAt:    m.CreatedAt,
		Destination:  m.Destination,
		Currency:     m.Currency,
		GroupCount:   m.GroupCount,
		SkippedCount: m.SkippedCount,
		RateCount:    m.RateCount,
		Fallback:     m.Fallback,
		CacheHit:     m.CacheHit,
		DurationMs:   m.DurationMs,
		Reason:       m.Reason,
	}
}

// QuoteAuditModelFromDomain populates a persistence model from a domain
// audit entry.
func QuoteAuditModelFromDomain(e *shipping.QuoteAuditEntry) *QuoteAuditModel {
	return &QuoteAuditModel{
		ID:           e.ID,
		CreatedAt:    e.CreatedAt,
		Destination:  e.Destination,
		Currency:     e.Currency,
		GroupCount:   e.GroupCount,
		SkippedCount: e.SkippedCount,
		RateCount:    e.RateCount,
		Fallback:     e.Fallback,
		CacheHit:     e.CacheHit,
		DurationMs:   e.DurationMs,
		Reason:       e.Reason,
	}
}

// CredentialModel is the persistence model for provider token pairs, one
// row per provider slot.
type CredentialModel struct {
	Provider     string `gorm:"type:varchar(64);primaryKey"`
	AccessToken  string `gorm:"type:text;not null"`
	RefreshToken string `gorm:"type:text"`
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "provider_credentials"
}

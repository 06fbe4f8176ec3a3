package seller

import "context"

// OriginSource records where a SellerOrigin was resolved from.
type OriginSource string

const (
	OriginSourcePersisted OriginSource = "persisted"
	OriginSourceCached    OriginSource = "cached"
	OriginSourceLive      OriginSource = "live"
	OriginSourceDefault   OriginSource = "default"
)

// Seller is the directory record of a marketplace seller.
type Seller struct {
	ID    string
	Name  string
	Phone string
	Email string
}

// VariantMapping resolves a storefront variant to its owning seller,
// including the parsed physical dimensions used for rate manifests.
// Immutable once resolved; cached by variant id with a TTL.
type VariantMapping struct {
	VariantID   string
	SellerID    string
	ProductID   string
	WeightGrams int
	LengthCm    float64
	WidthCm     float64
	HeightCm    float64
}

// SellerOrigin is the physical location a seller ships from, plus the
// contact identity printed on courier bookings.
type SellerOrigin struct {
	SellerID     string   `json:"seller_id"`
	PostalCode   string   `json:"postal_code"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Country      string   `json:"country"`
	Address      string   `json:"address"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	ContactName  string   `json:"contact_name"`
	ContactPhone string   `json:"contact_phone"`
	ContactEmail string   `json:"contact_email"`

	// Source is set at resolution time and never persisted.
	Source OriginSource `json:"source,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (o *SellerOrigin) HasCoordinates() bool {
	return o.Latitude != nil && o.Longitude != nil
}

// OriginStore is the durable, operator-controlled record of seller origins.
// Only explicit origin-sync events and the admin API write to it; quote-time
// resolution reads through it but never writes.
type OriginStore interface {
	// Get returns the persisted origin for a seller, or shared.ErrNotFound.
	Get(ctx context.Context, sellerID string) (*SellerOrigin, error)

	// Upsert creates or replaces the persisted origin for origin.SellerID.
	Upsert(ctx context.Context, origin *SellerOrigin) error

	// List returns up to limit persisted origins.
	List(ctx context.Context, limit int) ([]SellerOrigin, error)
}

// Directory is the live seller-directory provider: variant to seller
// resolution and seller profile lookups.
type Directory interface {
	// GetVariantMapping resolves a storefront variant to its seller.
	GetVariantMapping(ctx context.Context, variantID string) (*VariantMapping, error)

	// GetSellerOrigin looks up the seller's primary shipping location.
	GetSellerOrigin(ctx context.Context, sellerID string) (*SellerOrigin, error)

	// GetSeller looks up the seller profile by id.
	GetSeller(ctx context.Context, sellerID string) (*Seller, error)
}

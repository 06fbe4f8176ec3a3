package order

import (
	"context"
	"time"
)

// SyncStatus is the lifecycle state of an order sync record.
type SyncStatus string

const (
	SyncStatusProcessing    SyncStatus = "processing"
	SyncStatusCompleted     SyncStatus = "completed"
	SyncStatusPartialFailed SyncStatus = "partial_failed"
)

// ShipmentStatus is the outcome of one seller group's booking attempt.
type ShipmentStatus string

const (
	ShipmentStatusCreated ShipmentStatus = "created"
	ShipmentStatusFailed  ShipmentStatus = "failed"
)

// Shipment is the per-seller-group booking outcome inside a sync record.
type Shipment struct {
	SellerID       string         `json:"seller_id"`
	CourierCompany string         `json:"courier_company"`
	CourierType    string         `json:"courier_type"`
	BookingID      string         `json:"booking_id,omitempty"`
	TrackingNumber string         `json:"tracking_number,omitempty"`
	Status         ShipmentStatus `json:"status"`
	FulfillmentID  string         `json:"fulfillment_id,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// SkippedItem records a line item dropped during seller/origin resolution.
type SkippedItem struct {
	VariantID string `json:"variant_id"`
	Reason    string `json:"reason"`
}

// SyncRecord is the durable, idempotency-bearing record of booking attempts
// for one order. Upserted on every sync attempt and after every seller
// group, so a crash mid-run leaves a consistent, resumable state.
type SyncRecord struct {
	OrderID          string        `json:"order_id"`
	Status           SyncStatus    `json:"status"`
	Shipments        []Shipment    `json:"shipments"`
	SkippedItems     []SkippedItem `json:"skipped_items,omitempty"`
	SelectedShipping string        `json:"selected_shipping,omitempty"`
	LastError        string        `json:"last_error,omitempty"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// ShipmentFor returns the recorded shipment for a seller, if any.
func (r *SyncRecord) ShipmentFor(sellerID string) *Shipment {
	for i := range r.Shipments {
		if r.Shipments[i].SellerID == sellerID {
			return &r.Shipments[i]
		}
	}
	return nil
}

// SetShipment replaces the recorded shipment for shipment.SellerID, or
// appends it.
func (r *SyncRecord) SetShipment(shipment Shipment) {
	for i := range r.Shipments {
		if r.Shipments[i].SellerID == shipment.SellerID {
			r.Shipments[i] = shipment
			return
		}
	}
	r.Shipments = append(r.Shipments, shipment)
}

// SyncStore persists sync records keyed by order id.
type SyncStore interface {
	// Get returns the record for an order, or shared.ErrNotFound.
	Get(ctx context.Context, orderID string) (*SyncRecord, error)

	// Upsert creates or replaces the record for record.OrderID.
	Upsert(ctx context.Context, record *SyncRecord) error

	// List returns up to limit records, most recently updated first.
	List(ctx context.Context, limit int) ([]SyncRecord, error)
}

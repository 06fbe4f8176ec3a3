package quote

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Destination is where the cart ships to. At least one of postal code or
// coordinates must be present for rates to be computed.
type Destination struct {
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// Empty reports whether the destination carries neither a postal code nor
// coordinates.
func (d Destination) Empty() bool {
	return d.PostalCode == "" && (d.Latitude == nil || d.Longitude == nil)
}

// CartItem is one checkout line in a quote request.
type CartItem struct {
	VariantID        string          `json:"variant_id" binding:"required"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity" binding:"required,gt=0"`
	WeightGrams      int             `json:"weight_grams"`
	Price            decimal.Decimal `json:"price"`
	RequiresShipping bool            `json:"requires_shipping"`
}

// CartRequest is the quote input: a cart-like payload with destination and
// line items.
type CartRequest struct {
	Destination Destination `json:"destination"`
	Items       []CartItem  `json:"items" binding:"required,min=1,dive"`
}

// Subtotal sums price times quantity over all items, shippable or not. The
// free-shipping threshold compares against this.
func (r *CartRequest) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Rate is one checkout-facing aggregated rate. Total is in minor currency
// units as a decimal string. Delivery dates are omitted for non-positive
// day counts.
type Rate struct {
	ServiceCode     string `json:"service_code"`
	CourierName     string `json:"courier_name"`
	ServiceName     string `json:"service_name"`
	Total           string `json:"total"`
	Currency        string `json:"currency"`
	MinDeliveryDate string `json:"min_delivery_date,omitempty"`
	MaxDeliveryDate string `json:"max_delivery_date,omitempty"`
	Fallback        bool   `json:"fallback,omitempty"`
}

// SkippedItem is one cart line dropped during seller/origin resolution.
type SkippedItem struct {
	VariantID string `json:"variant_id"`
	Reason    string `json:"reason"`
}

// Debug is the per-computation trace attached to every quote result.
type Debug struct {
	CacheKey     string        `json:"cache_key,omitempty"`
	CacheHit     bool          `json:"cache_hit"`
	GroupCount   int           `json:"group_count"`
	SkippedItems []SkippedItem `json:"skipped_items,omitempty"`
	Fallback     bool          `json:"fallback"`
	Reason       string        `json:"reason,omitempty"`
	DurationMs   int64         `json:"duration_ms"`
}

// Result is the quote output: ordered rates plus the debug trace.
type Result struct {
	Rates []Rate `json:"rates"`
	Debug Debug  `json:"debug"`
}

// cacheKeyItem is the normalized per-item part of the cache key.
type cacheKeyItem struct {
	VariantID   string `json:"v"`
	Quantity    int    `json:"q"`
	WeightGrams int    `json:"w"`
	Price       string `json:"p"`
}

// cacheKeyPayload is the stable-serialized identity of a quote request.
type cacheKeyPayload struct {
	PostalCode string         `json:"postal"`
	Latitude   *float64       `json:"lat,omitempty"`
	Longitude  *float64       `json:"lng,omitempty"`
	Currency   string         `json:"currency"`
	Couriers   []string       `json:"couriers,omitempty"`
	Items      []cacheKeyItem `json:"items"`
}

// cacheKey derives the stable cache key for a request: items sorted by
// variant id, courier allow-list sorted, hashed to a fixed-length hex
// string.
func cacheKey(req *CartRequest, currency string, couriers []string, items []CartItem) string {
	keyItems := make([]cacheKeyItem, 0, len(items))
	for _, item := range items {
		keyItems = append(keyItems, cacheKeyItem{
			VariantID:   item.VariantID,
			Quantity:    item.Quantity,
			WeightGrams: item.WeightGrams,
			Price:       item.Price.String(),
		})
	}
	sort.Slice(keyItems, func(i, j int) bool { return keyItems[i].VariantID < keyItems[j].VariantID })

	sortedCouriers := append([]string(nil), couriers...)
	sort.Strings(sortedCouriers)

	payload, _ := json.Marshal(cacheKeyPayload{
		PostalCode: req.Destination.PostalCode,
		Latitude:   req.Destination.Latitude,
		Longitude:  req.Destination.Longitude,
		Currency:   currency,
		Couriers:   sortedCouriers,
		Items:      keyItems,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// toMinorUnits converts a major-unit amount to a minor-unit decimal string,
// e.g. 40000 IDR with factor 100 becomes "4000000".
func toMinorUnits(amount decimal.Decimal, factor int64) string {
	return amount.Mul(decimal.NewFromInt(factor)).Round(0).String()
}

package shipping

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Service-code tokens exposed to the checkout. A combined rate for a
// courier/service common to every seller group is encoded as
// "ms-<courier>-<service>"; when no common key exists the synthetic
// mixed-cheapest rate carries the fixed MixedServiceCode token.
const (
	ServiceCodePrefix = "ms"
	MixedServiceCode  = "ms-mixed-cheapest"
)

// RateQuote is a single courier/service quote for one seller group.
// Price is in major currency units as returned by the rate provider.
type RateQuote struct {
	CourierCode string
	ServiceCode string
	CourierName string
	ServiceName string
	Price       decimal.Decimal
	MinDays     float64
	MaxDays     float64
}

// Key returns the deduplication key for a quote. Two quotes from the same
// seller group sharing a key are collapsed to the lower-priced one, and the
// key intersection across groups drives combined-rate selection.
func (q RateQuote) Key() string {
	return strings.ToLower(q.CourierCode) + ":" + strings.ToLower(q.ServiceCode)
}

// ServiceToken builds the checkout-safe service code for a courier/service
// pair, e.g. "ms-jne-reg".
func ServiceToken(courierCode, serviceCode string) string {
	return fmt.Sprintf("%s-%s-%s", ServiceCodePrefix,
		strings.ToLower(courierCode), strings.ToLower(serviceCode))
}

// ParseServiceToken splits a checkout service token back into its courier
// and service codes. Returns mixed=true for the fixed mixed-cheapest token.
func ParseServiceToken(token string) (courierCode, serviceCode string, mixed bool, err error) {
	if token == MixedServiceCode {
		return "", "", true, nil
	}
	parts := strings.SplitN(token, "-", 3)
	if len(parts) != 3 || parts[0] != ServiceCodePrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false, fmt.Errorf("%w: %q", ErrBadServiceToken, token)
	}
	return parts[1], parts[2], false, nil
}

// AggregatedRate is one checkout-ready combined rate across all seller
// groups. Total is in major currency units; conversion to minor units
// happens at the interface boundary.
type AggregatedRate struct {
	ServiceCode string
	CourierName string
	ServiceName string
	Total       decimal.Decimal
	MinDays     float64
	MaxDays     float64
	Fallback    bool
}

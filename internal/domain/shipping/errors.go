package shipping

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDestination indicates the payload had neither a destination
	// postal code nor coordinates. Caller's fault, never retried.
	ErrNoDestination = errors.New("shipping: destination has no postal code or coordinates")

	// ErrNoShippableItems indicates no line item required shipping.
	ErrNoShippableItems = errors.New("shipping: no shippable items")

	// ErrNoSellerGroups indicates every item was skipped during
	// seller/origin resolution.
	ErrNoSellerGroups = errors.New("shipping: no resolvable seller groups")

	// ErrNoRates indicates at least one seller group returned zero quotes,
	// so not even a fallback rate can be produced.
	ErrNoRates = errors.New("shipping: a seller group returned no rates")

	// ErrBadServiceToken indicates a checkout service code that does not
	// follow the ms-<courier>-<service> format.
	ErrBadServiceToken = errors.New("shipping: malformed service token")

	// ErrBookingInvalid indicates a booking payload missing a mandatory
	// field (phone, address or postal code). Terminal, never retried.
	ErrBookingInvalid = errors.New("shipping: booking payload invalid")
)

func wrapInvalid(detail string) error {
	return fmt.Errorf("%w: %s", ErrBookingInvalid, detail)
}

package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// Party is one side of a shipment: the shipper contact at the origin or the
// receiver at the destination.
type Party struct {
	Name       string
	Phone      string
	Email      string
	Address    string
	City       string
	Province   string
	PostalCode string
	Latitude   *float64
	Longitude  *float64
}

// CargoItem is one manifest line in a rate request or booking.
type CargoItem struct {
	Name        string
	Quantity    int
	WeightGrams int
	Value       decimal.Decimal
}

// RateRequest asks the courier provider for quotes on one
// origin→destination pair.
type RateRequest struct {
	OriginPostalCode string
	OriginLatitude   *float64
	OriginLongitude  *float64

	DestPostalCode string
	DestLatitude   *float64
	DestLongitude  *float64

	Items    []CargoItem
	Couriers []string // allow-list of courier codes; empty means provider default
}

// BookingRequest creates one courier shipment for a single seller group.
type BookingRequest struct {
	OrderRef       string
	CourierCompany string
	CourierType    string
	Shipper        Party
	Destination    Party
	Items          []CargoItem
	Note           string
}

// Validate enforces the mandatory booking fields. A violation is terminal
// for the seller group; it is never retried.
func (r *BookingRequest) Validate() error {
	switch {
	case r.Shipper.Phone == "":
		return wrapInvalid("shipper phone is required")
	case r.Shipper.Address == "":
		return wrapInvalid("shipper address is required")
	case r.Shipper.PostalCode == "":
		return wrapInvalid("shipper postal code is required")
	case r.Destination.Phone == "":
		return wrapInvalid("destination phone is required")
	case r.Destination.Address == "":
		return wrapInvalid("destination address is required")
	case r.Destination.PostalCode == "":
		return wrapInvalid("destination postal code is required")
	case r.CourierCompany == "" || r.CourierType == "":
		return wrapInvalid("courier selection is required")
	case len(r.Items) == 0:
		return wrapInvalid("at least one cargo item is required")
	}
	return nil
}

// Booking is the provider's confirmation of a created shipment.
type Booking struct {
	ID             string
	TrackingNumber string
	Status         string
}

// RateProvider is the courier-aggregation provider port: live rates for one
// origin→destination pair and booking creation.
type RateProvider interface {
	Rates(ctx context.Context, req *RateRequest) ([]RateQuote, error)
	CreateBooking(ctx context.Context, req *BookingRequest) (*Booking, error)
}

package courier

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/marketship/backend/internal/domain/shipping"
)

// ErrEmptyPricing indicates a pricing entry with no usable price field.
var ErrEmptyPricing = errors.New("courier: pricing entry has no price")

// rateEnvelope is the provider's rates response.
type rateEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Pricings []ratePricing `json:"pricings"`
	} `json:"data"`
}

// ratePricing is one courier/service quote on the wire. The provider has
// shipped several historical field-name variants; all lookups are kept in
// toQuote so business logic never sees them.
type ratePricing struct {
	CourierCode        string `json:"courier_code"`
	Courier            string `json:"courier"` // legacy
	ServiceCode        string `json:"courier_service_code"`
	Service            string `json:"service"` // legacy
	CourierName        string `json:"courier_name"`
	CourierServiceName string `json:"courier_service_name"`
	ServiceName        string `json:"service_name"` // legacy

	Price      json.Number `json:"price"`
	FinalPrice json.Number `json:"final_price"` // legacy
	Cost       json.Number `json:"cost"`        // legacy

	Duration     string `json:"duration"`
	Etd          string `json:"etd"` // legacy
	DurationUnit string `json:"duration_unit"`
	EtdUnit      string `json:"etd_unit"` // legacy
}

// toQuote normalizes one wire pricing entry into a domain quote.
func (p ratePricing) toQuote() (shipping.RateQuote, error) {
	courierCode := firstNonEmpty(p.CourierCode, p.Courier)
	serviceCode := firstNonEmpty(p.ServiceCode, p.Service)
	if courierCode == "" || serviceCode == "" {
		return shipping.RateQuote{}, fmt.Errorf("courier: pricing entry missing courier/service code")
	}

	price, err := firstDecimal(p.Price, p.FinalPrice, p.Cost)
	if err != nil {
		return shipping.RateQuote{}, err
	}

	quote := shipping.RateQuote{
		CourierCode: courierCode,
		ServiceCode: serviceCode,
		CourierName: firstNonEmpty(p.CourierName, courierCode),
		ServiceName: firstNonEmpty(p.CourierServiceName, p.ServiceName, serviceCode),
		Price:       price,
	}

	duration := firstNonEmpty(p.Duration, p.Etd)
	if duration != "" {
		minDays, maxDays, err := shipping.ParseDayRange(duration, firstNonEmpty(p.DurationUnit, p.EtdUnit))
		if err == nil {
			quote.MinDays = minDays
			quote.MaxDays = maxDays
		}
	}

	return quote, nil
}

// bookingEnvelope is the provider's booking response.
type bookingEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		ID             string `json:"id"`
		OrderID        string `json:"order_id"` // legacy
		TrackingNumber string `json:"tracking_number"`
		Waybill        string `json:"waybill"` // legacy
		Status         string `json:"status"`
	} `json:"data"`
}

// toBooking normalizes the booking response.
func (e bookingEnvelope) toBooking() *shipping.Booking {
	return &shipping.Booking{
		ID:             firstNonEmpty(e.Data.ID, e.Data.OrderID),
		TrackingNumber: firstNonEmpty(e.Data.TrackingNumber, e.Data.Waybill),
		Status:         e.Data.Status,
	}
}

// wireParty is the request-side shipper/receiver shape.
type wireParty struct {
	Name       string   `json:"name"`
	Phone      string   `json:"phone"`
	Email      string   `json:"email,omitempty"`
	Address    string   `json:"address"`
	City       string   `json:"city,omitempty"`
	Province   string   `json:"province,omitempty"`
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

// wireItem is one manifest line on the wire.
type wireItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Weight   int    `json:"weight"` // grams
	Value    string `json:"value"`
}

func toWireParty(p shipping.Party) wireParty {
	return wireParty{
		Name:       p.Name,
		Phone:      p.Phone,
		Email:      p.Email,
		Address:    p.Address,
		City:       p.City,
		Province:   p.Province,
		PostalCode: p.PostalCode,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
	}
}

func toWireItems(items []shipping.CargoItem) []wireItem {
	out := make([]wireItem, 0, len(items))
	for _, item := range items {
		out = append(out, wireItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Weight:   item.WeightGrams,
			Value:    item.Value.StringFixed(0),
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// firstDecimal returns the first parseable, non-empty numeric field.
func firstDecimal(values ...json.Number) (decimal.Decimal, error) {
	for _, v := range values {
		if v.String() == "" {
			continue
		}
		d, err := decimal.NewFromString(v.String())
		if err == nil {
			return d, nil
		}
	}
	return decimal.Zero, ErrEmptyPricing
}

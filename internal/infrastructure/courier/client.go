package courier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/domain/shipping"
	"github.com/marketship/backend/internal/infrastructure/httpx"
)

const (
	ratesPath    = "/v1/rates/couriers"
	bookingsPath = "/v1/bookings"
)

// Adapter implements the courier-aggregation provider port. All calls route
// through the resilient client; authentication uses the rotating token pair
// managed by TokenSource.
type Adapter struct {
	client *httpx.Client
	logger *zap.Logger
}

// AdapterOption is a functional option for Adapter configuration
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the logger.
func WithAdapterLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter creates a courier provider adapter. Credential persistence
// goes through store; clientOpts are forwarded to the resilient client.
func NewAdapter(cfg *Config, store shared.CredentialStore, clientOpts []httpx.Option, opts ...AdapterOption) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	tokens := NewTokenSource(cfg, store, a.logger)
	clientOpts = append(clientOpts, httpx.WithTokenSource(tokens))
	a.client = httpx.NewClient(cfg.BaseURL, clientOpts...)

	return a, nil
}

// Rates requests quotes for one origin→destination pair.
func (a *Adapter) Rates(ctx context.Context, req *shipping.RateRequest) ([]shipping.RateQuote, error) {
	payload := map[string]any{
		"origin_postal_code":      req.OriginPostalCode,
		"destination_postal_code": req.DestPostalCode,
		"items":                   toWireItems(req.Items),
	}
	if req.OriginLatitude != nil && req.OriginLongitude != nil {
		payload["origin_latitude"] = *req.OriginLatitude
		payload["origin_longitude"] = *req.OriginLongitude
	}
	if req.DestLatitude != nil && req.DestLongitude != nil {
		payload["destination_latitude"] = *req.DestLatitude
		payload["destination_longitude"] = *req.DestLongitude
	}
	if len(req.Couriers) > 0 {
		payload["couriers"] = req.Couriers
	}

	respBody, err := a.client.Do(ctx, http.MethodPost, ratesPath, nil, payload)
	if err != nil {
		return nil, err
	}

	var envelope rateEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("courier: failed to parse rates response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("courier: rates request rejected: %s", envelope.Message)
	}

	quotes := make([]shipping.RateQuote, 0, len(envelope.Data.Pricings))
	for _, pricing := range envelope.Data.Pricings {
		quote, err := pricing.toQuote()
		if err != nil {
			a.logger.Warn("dropping unparseable pricing entry", zap.Error(err))
			continue
		}
		quotes = append(quotes, quote)
	}
	return quotes, nil
}

// CreateBooking creates one courier shipment for a seller group.
func (a *Adapter) CreateBooking(ctx context.Context, req *shipping.BookingRequest) (*shipping.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"reference_id": req.OrderRef,
		"courier": map[string]string{
			"company": req.CourierCompany,
			"type":    req.CourierType,
		},
		"origin":      toWireParty(req.Shipper),
		"destination": toWireParty(req.Destination),
		"items":       toWireItems(req.Items),
	}
	if req.Note != "" {
		payload["note"] = req.Note
	}

	respBody, err := a.client.Do(ctx, http.MethodPost, bookingsPath, nil, payload)
	if err != nil {
		return nil, err
	}

	var envelope bookingEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("courier: failed to parse booking response: %w", err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("courier: booking rejected: %s", envelope.Message)
	}

	return envelope.toBooking(), nil
}

// Ensure Adapter implements the rate provider port
var _ shipping.RateProvider = (*Adapter)(nil)

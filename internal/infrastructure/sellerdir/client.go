package sellerdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/infrastructure/httpx"
)

// Config holds the seller-directory provider settings.
type Config struct {
	BaseURL string
	APIKey  string
}

// Validate checks that the configuration is complete
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("sellerdir: base URL is required")
	}
	if c.APIKey == "" {
		return errors.New("sellerdir: API key is required")
	}
	return nil
}

// Adapter implements the seller.Directory port against the marketplace
// seller-directory API.
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

// NewAdapter creates a seller-directory adapter.
func NewAdapter(cfg *Config, clientOpts []httpx.Option, opts ...AdapterOption) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}

	clientOpts = append(clientOpts, httpx.WithHeader("X-Api-Key", cfg.APIKey))
	a.client = httpx.NewClient(cfg.BaseURL, clientOpts...)
	return a, nil
}

// GetVariantMapping resolves a storefront variant to its seller, including
// parsed physical dimensions.
func (a *Adapter) GetVariantMapping(ctx context.Context, variantID string) (*seller.VariantMapping, error) {
	respBody, err := a.client.Do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/variants/%s", variantID), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope variantEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("sellerdir: failed to parse variant response: %w", err)
	}

	mapping := envelope.toMapping()
	if mapping.VariantID == "" {
		mapping.VariantID = variantID
	}
	if mapping.SellerID == "" {
		return nil, fmt.Errorf("sellerdir: variant %s has no seller", variantID)
	}
	return mapping, nil
}

// GetSellerOrigin looks up the seller's primary shipping location.
func (a *Adapter) GetSellerOrigin(ctx context.Context, sellerID string) (*seller.SellerOrigin, error) {
	respBody, err := a.client.Do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/sellers/%s/location", sellerID), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope locationEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("sellerdir: failed to parse location response: %w", err)
	}

	origin := envelope.toOrigin(sellerID)
	if origin.PostalCode == "" {
		return nil, fmt.Errorf("sellerdir: seller %s location has no postal code", sellerID)
	}
	return origin, nil
}

// GetSeller looks up the seller profile by id.
func (a *Adapter) GetSeller(ctx context.Context, sellerID string) (*seller.Seller, error) {
	respBody, err := a.client.Do(ctx, http.MethodGet,
		fmt.Sprintf("/api/v1/sellers/%s", sellerID), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope sellerEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("sellerdir: failed to parse seller response: %w", err)
	}
	return envelope.toSeller(), nil
}

// Ensure Adapter implements the directory port
var _ seller.Directory = (*Adapter)(nil)

package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/infrastructure/httpx"
)

const accessTokenHeader = "X-Storefront-Access-Token"

// Config holds the storefront admin API settings.
type Config struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// Validate checks that the configuration is complete
func (c *Config) Validate() error {
	if c.ShopDomain == "" {
		return errors.New("storefront: shop domain is required")
	}
	if c.AccessToken == "" {
		return errors.New("storefront: access token is required")
	}
	if c.APIVersion == "" {
		return errors.New("storefront: API version is required")
	}
	return nil
}

// baseURL normalizes the shop domain into a full base URL. Bare domains
// get https.
func (c *Config) baseURL() string {
	if strings.Contains(c.ShopDomain, "://") {
		return c.ShopDomain
	}
	return "https://" + c.ShopDomain
}

// Adapter implements the order.Storefront port against the storefront
// admin REST API.
type Adapter struct {
	client     *httpx.Client
	apiVersion string
	logger     *zap.Logger
}

// AdapterOption is a functional option for Adapter configuration
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the logger.
func WithAdapterLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter creates a storefront admin adapter.
func NewAdapter(cfg *Config, clientOpts []httpx.Option, opts ...AdapterOption) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		apiVersion: cfg.APIVersion,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	clientOpts = append(clientOpts, httpx.WithHeader(accessTokenHeader, cfg.AccessToken))
	a.client = httpx.NewClient(cfg.baseURL(), clientOpts...)
	return a, nil
}

func (a *Adapter) path(format string, args ...any) string {
	return fmt.Sprintf("/admin/api/%s/", a.apiVersion) + fmt.Sprintf(format, args...)
}

// GetOrder fetches a single order with its line items and addresses.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	respBody, err := a.client.Do(ctx, http.MethodGet, a.path("orders/%s.json", orderID), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Order *wireOrder `json:"order"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("storefront: failed to parse order response: %w", err)
	}
	if envelope.Order == nil {
		return nil, fmt.Errorf("storefront: order %s not found in response", orderID)
	}
	return envelope.Order.toDomain(), nil
}

// ListOpenOrders lists paid, open orders that still need fulfillment.
func (a *Adapter) ListOpenOrders(ctx context.Context, limit int) ([]order.Summary, error) {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("financial_status", "paid")
	params.Set("fulfillment_status", "unfulfilled")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	respBody, err := a.client.Do(ctx, http.MethodGet, a.path("orders.json"), params, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Orders []wireOrder `json:"orders"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("storefront: failed to parse orders response: %w", err)
	}

	summaries := make([]order.Summary, 0, len(envelope.Orders))
	for i := range envelope.Orders {
		summaries = append(summaries, envelope.Orders[i].toSummary())
	}
	return summaries, nil
}

// GetFulfillmentOrders lists the fulfillment orders of one order.
func (a *Adapter) GetFulfillmentOrders(ctx context.Context, orderID string) ([]order.FulfillmentOrder, error) {
	respBody, err := a.client.Do(ctx, http.MethodGet,
		a.path("orders/%s/fulfillment_orders.json", orderID), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		FulfillmentOrders []wireFulfillmentOrder `json:"fulfillment_orders"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("storefront: failed to parse fulfillment orders response: %w", err)
	}

	result := make([]order.FulfillmentOrder, 0, len(envelope.FulfillmentOrders))
	for i := range envelope.FulfillmentOrders {
		result = append(result, envelope.FulfillmentOrders[i].toDomain())
	}
	return result, nil
}

// CreateFulfillment creates a fulfillment against specific
// fulfillment-order line items, attaching tracking information.
func (a *Adapter) CreateFulfillment(ctx context.Context, req *order.FulfillmentRequest) (*order.Fulfillment, error) {
	if len(req.Selections) == 0 {
		return nil, errors.New("storefront: fulfillment request has no line selections")
	}

	byFulfillmentOrder := make([]map[string]any, 0, len(req.Selections))
	for _, sel := range req.Selections {
		lines := make([]map[string]any, 0, len(sel.Lines))
		for lineID, qty := range sel.Lines {
			lines = append(lines, map[string]any{
				"id":       lineID,
				"quantity": qty,
			})
		}
		byFulfillmentOrder = append(byFulfillmentOrder, map[string]any{
			"fulfillment_order_id":         sel.FulfillmentOrderID,
			"fulfillment_order_line_items": lines,
		})
	}

	payload := map[string]any{
		"fulfillment": map[string]any{
			"notify_customer": req.NotifyCustomer,
			"tracking_info": map[string]any{
				"number":  req.TrackingNumber,
				"company": req.TrackingCompany,
			},
			"line_items_by_fulfillment_order": byFulfillmentOrder,
		},
	}

	respBody, err := a.client.Do(ctx, http.MethodPost, a.path("fulfillments.json"), nil, payload)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Fulfillment struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"fulfillment"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("storefront: failed to parse fulfillment response: %w", err)
	}

	a.logger.Info("fulfillment created",
		zap.String("order_id", req.OrderID),
		zap.Int64("fulfillment_id", envelope.Fulfillment.ID),
		zap.String("tracking_number", req.TrackingNumber))

	return &order.Fulfillment{
		ID:     formatID(envelope.Fulfillment.ID),
		Status: envelope.Fulfillment.Status,
	}, nil
}

// Ensure Adapter implements the storefront port
var _ order.Storefront = (*Adapter)(nil)

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/domain/shipping"
	"github.com/marketship/backend/internal/interfaces/http/middleware"
	"github.com/marketship/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// newTestEngine wires a registrar under the default /api/v1 group.
func newTestEngine(registrars ...router.RouteRegistrar) *gin.Engine {
	engine := gin.New()
	r := router.NewRouter(engine)
	for _, reg := range registrars {
		r.Register(reg)
	}
	r.Setup()
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// envelope mirrors the response wrapper with raw data for per-test decoding.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// fakeResolver answers variant and origin lookups from fixed maps.
type fakeResolver struct {
	variants map[string]*seller.VariantMapping
	origins  map[string]*seller.SellerOrigin
}

func (f *fakeResolver) ResolveVariant(_ context.Context, variantID string) (*seller.VariantMapping, error) {
	if m, ok := f.variants[variantID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("variant %s: %w", variantID, shared.ErrNotFound)
}

func (f *fakeResolver) ResolveOrigin(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	if o, ok := f.origins[sellerID]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("seller %s: %w", sellerID, shared.ErrNotFound)
}

// fakeProvider serves rate quotes keyed by origin postal code and records
// bookings.
type fakeProvider struct {
	mu       sync.Mutex
	quotes   map[string][]shipping.RateQuote
	rateErr  error
	bookings []*shipping.BookingRequest
}

func (f *fakeProvider) Rates(_ context.Context, req *shipping.RateRequest) ([]shipping.RateQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rateErr != nil {
		return nil, f.rateErr
	}
	return f.quotes[req.OriginPostalCode], nil
}

func (f *fakeProvider) CreateBooking(_ context.Context, req *shipping.BookingRequest) (*shipping.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, req)
	return &shipping.Booking{
		ID:             fmt.Sprintf("bk-%d", len(f.bookings)),
		TrackingNumber: fmt.Sprintf("TRK-%d", len(f.bookings)),
		Status:         "confirmed",
	}, nil
}

// memoryAuditStore is an append-only in-memory audit log.
type memoryAuditStore struct {
	mu      sync.Mutex
	entries []shipping.QuoteAuditEntry
}

func (s *memoryAuditStore) Append(_ context.Context, entry *shipping.QuoteAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]shipping.QuoteAuditEntry{*entry}, s.entries...)
	return nil
}

func (s *memoryAuditStore) List(_ context.Context, limit int) ([]shipping.QuoteAuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && limit < len(s.entries) {
		return append([]shipping.QuoteAuditEntry(nil), s.entries[:limit]...), nil
	}
	return append([]shipping.QuoteAuditEntry(nil), s.entries...), nil
}

// memorySyncStore keeps sync records in a map.
type memorySyncStore struct {
	mu      sync.Mutex
	records map[string]order.SyncRecord
}

func newMemorySyncStore() *memorySyncStore {
	return &memorySyncStore{records: make(map[string]order.SyncRecord)}
}

func (s *memorySyncStore) Get(_ context.Context, orderID string) (*order.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[orderID]
	if !ok {
		return nil, fmt.Errorf("sync record %s: %w", orderID, shared.ErrNotFound)
	}
	copied := rec
	return &copied, nil
}

func (s *memorySyncStore) Upsert(_ context.Context, record *order.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.OrderID] = *record
	return nil
}

func (s *memorySyncStore) List(_ context.Context, limit int) ([]order.SyncRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.SyncRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// fakeDirectory is a static live seller directory.
type fakeDirectory struct {
	variants map[string]*seller.VariantMapping
	origins  map[string]*seller.SellerOrigin
	sellers  map[string]*seller.Seller
}

func (d *fakeDirectory) GetVariantMapping(_ context.Context, variantID string) (*seller.VariantMapping, error) {
	if m, ok := d.variants[variantID]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("variant %s: %w", variantID, shared.ErrNotFound)
}

func (d *fakeDirectory) GetSellerOrigin(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	if o, ok := d.origins[sellerID]; ok {
		copied := *o
		copied.Source = seller.OriginSourceLive
		return &copied, nil
	}
	return nil, fmt.Errorf("seller %s: %w", sellerID, shared.ErrNotFound)
}

func (d *fakeDirectory) GetSeller(_ context.Context, sellerID string) (*seller.Seller, error) {
	if s, ok := d.sellers[sellerID]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("seller %s: %w", sellerID, shared.ErrNotFound)
}

// memoryOriginStore is an in-memory persisted origin store.
type memoryOriginStore struct {
	mu      sync.Mutex
	origins map[string]seller.SellerOrigin
}

func newMemoryOriginStore() *memoryOriginStore {
	return &memoryOriginStore{origins: make(map[string]seller.SellerOrigin)}
}

func (s *memoryOriginStore) Get(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.origins[sellerID]
	if !ok {
		return nil, fmt.Errorf("origin %s: %w", sellerID, shared.ErrNotFound)
	}
	copied := o
	copied.Source = seller.OriginSourcePersisted
	return &copied, nil
}

func (s *memoryOriginStore) Upsert(_ context.Context, origin *seller.SellerOrigin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *origin
	stored.Source = ""
	s.origins[origin.SellerID] = stored
	return nil
}

func (s *memoryOriginStore) List(_ context.Context, limit int) ([]seller.SellerOrigin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]seller.SellerOrigin, 0, len(s.origins))
	for _, o := range s.origins {
		out = append(out, o)
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// fakeStorefront serves a fixed order set.
type fakeStorefront struct {
	mu           sync.Mutex
	orders       map[string]*order.Order
	summaries    []order.Summary
	fulfillments []*order.FulfillmentRequest
}

func (f *fakeStorefront) GetOrder(_ context.Context, orderID string) (*order.Order, error) {
	if o, ok := f.orders[orderID]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("order %s: %w", orderID, shared.ErrNotFound)
}

func (f *fakeStorefront) ListOpenOrders(_ context.Context, limit int) ([]order.Summary, error) {
	if limit > 0 && limit < len(f.summaries) {
		return f.summaries[:limit], nil
	}
	return f.summaries, nil
}

func (f *fakeStorefront) GetFulfillmentOrders(_ context.Context, orderID string) ([]order.FulfillmentOrder, error) {
	return nil, nil
}

func (f *fakeStorefront) CreateFulfillment(_ context.Context, req *order.FulfillmentRequest) (*order.Fulfillment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fulfillments = append(f.fulfillments, req)
	return &order.Fulfillment{ID: fmt.Sprintf("ff-%d", len(f.fulfillments)), Status: "success"}, nil
}

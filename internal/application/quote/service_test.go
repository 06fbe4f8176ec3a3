package quote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shipping"
	"github.com/marketship/backend/internal/infrastructure/cache"
)

// fakeResolver answers variant and origin lookups from canned maps.
type fakeResolver struct {
	mu           sync.Mutex
	mappings     map[string]*seller.VariantMapping
	origins      map[string]*seller.SellerOrigin
	variantCalls int
	originCalls  int
}

func (r *fakeResolver) ResolveVariant(_ context.Context, variantID string) (*seller.VariantMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variantCalls++
	m, ok := r.mappings[variantID]
	if !ok {
		return nil, errors.New("unknown variant")
	}
	return m, nil
}

func (r *fakeResolver) ResolveOrigin(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.originCalls++
	o, ok := r.origins[sellerID]
	if !ok {
		return nil, errors.New("unknown seller")
	}
	return o, nil
}

// fakeProvider serves rate quotes keyed by origin postal code.
type fakeProvider struct {
	mu        sync.Mutex
	quotes    map[string][]shipping.RateQuote
	err       error
	rateCalls int
}

func (p *fakeProvider) Rates(_ context.Context, req *shipping.RateRequest) ([]shipping.RateQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateCalls++
	if p.err != nil {
		return nil, p.err
	}
	return p.quotes[req.OriginPostalCode], nil
}

func (p *fakeProvider) CreateBooking(context.Context, *shipping.BookingRequest) (*shipping.Booking, error) {
	return nil, errors.New("not used")
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rateCalls
}

func q(courier, service, name, svcName string, price int64, minDays, maxDays float64) shipping.RateQuote {
	return shipping.RateQuote{
		CourierCode: courier,
		ServiceCode: service,
		CourierName: name,
		ServiceName: svcName,
		Price:       decimal.NewFromInt(price),
		MinDays:     minDays,
		MaxDays:     maxDays,
	}
}

func twoSellerResolver() *fakeResolver {
	return &fakeResolver{
		mappings: map[string]*seller.VariantMapping{
			"v-1": {VariantID: "v-1", SellerID: "s-1", WeightGrams: 400},
			"v-2": {VariantID: "v-2", SellerID: "s-2", WeightGrams: 250},
		},
		origins: map[string]*seller.SellerOrigin{
			"s-1": {SellerID: "s-1", PostalCode: "40115"},
			"s-2": {SellerID: "s-2", PostalCode: "11111"},
		},
	}
}

func twoSellerCart() *CartRequest {
	return &CartRequest{
		Destination: Destination{PostalCode: "55281"},
		Items: []CartItem{
			{VariantID: "v-1", Name: "Mug", Quantity: 1, WeightGrams: 400,
				Price: decimal.NewFromInt(50000), RequiresShipping: true},
			{VariantID: "v-2", Name: "Shirt", Quantity: 1, WeightGrams: 250,
				Price: decimal.NewFromInt(80000), RequiresShipping: true},
		},
	}
}

func testService(res SellerResolver, provider shipping.RateProvider, cfg Config, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	if cfg.MinorUnitFactor == 0 {
		cfg.MinorUnitFactor = 100
	}
	if cfg.MaxRates == 0 {
		cfg.MaxRates = 8
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}
	return NewService(res, provider, cache.NewInMemoryQuoteCache(32), nil, cfg, opts...)
}

func TestCalculateQuote_NoDestinationMakesNoCalls(t *testing.T) {
	res := twoSellerResolver()
	provider := &fakeProvider{}
	svc := testService(res, provider, Config{})

	req := twoSellerCart()
	req.Destination = Destination{}

	result, err := svc.CalculateQuote(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, result.Rates)
	assert.Contains(t, result.Debug.Reason, "destination")
	assert.Equal(t, 0, provider.calls())
	assert.Equal(t, 0, res.variantCalls, "resolution is skipped entirely")
}

func TestCalculateQuote_CoordinatesAloneAreADestination(t *testing.T) {
	res := twoSellerResolver()
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
		"11111": {q("jne", "reg", "JNE", "Regular", 18000, 1, 3)},
	}}
	svc := testService(res, provider, Config{})

	req := twoSellerCart()
	lat, lng := -7.79, 110.36
	req.Destination = Destination{Latitude: &lat, Longitude: &lng}

	result, err := svc.CalculateQuote(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
}

func TestCalculateQuote_NoShippableItems(t *testing.T) {
	provider := &fakeProvider{}
	svc := testService(twoSellerResolver(), provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), &CartRequest{
		Destination: Destination{PostalCode: "55281"},
		Items: []CartItem{
			{VariantID: "v-1", Quantity: 1, Price: decimal.NewFromInt(50000), RequiresShipping: false},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Rates)
	assert.Contains(t, result.Debug.Reason, "shippable")
	assert.Equal(t, 0, provider.calls())
}

func TestCalculateQuote_CombinesCommonKeysAndDedupes(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {
			q("jne", "reg", "JNE", "Regular", 25000, 1, 2),
			q("jne", "reg", "JNE", "Regular", 22000, 1, 2), // duplicate key, lower price wins
			q("sicepat", "best", "SiCepat", "BEST", 19000, 1, 1),
		},
		"11111": {
			q("jne", "reg", "JNE", "Regular", 18000, 2, 3),
			q("sicepat", "best", "SiCepat", "BEST", 25000, 1, 2),
		},
	}}
	svc := testService(twoSellerResolver(), provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 2)

	assert.Equal(t, "ms-jne-reg", result.Rates[0].ServiceCode)
	assert.Equal(t, "4000000", result.Rates[0].Total, "(22000+18000) in minor units, sorted first")
	assert.Equal(t, "IDR", result.Rates[0].Currency)
	assert.False(t, result.Rates[0].Fallback)

	assert.Equal(t, "ms-sicepat-best", result.Rates[1].ServiceCode)
	assert.Equal(t, "4400000", result.Rates[1].Total, "(19000+25000) in minor units")

	assert.Equal(t, 2, result.Debug.GroupCount)
	assert.Equal(t, 2, provider.calls(), "one fan-out request per seller group")
}

func TestCalculateQuote_DisjointGroupsFallBackToMixedCheapest(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
		"11111": {q("idexpress", "std", "IDExpress", "Standard", 15000, 2, 4)},
	}}
	svc := testService(twoSellerResolver(), provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
	assert.Equal(t, shipping.MixedServiceCode, result.Rates[0].ServiceCode)
	assert.Equal(t, "3700000", result.Rates[0].Total, "(22000+15000) in minor units")
	assert.True(t, result.Rates[0].Fallback)
	assert.True(t, result.Debug.Fallback)
}

func TestCalculateQuote_HandlingFeeAndFreeShippingThreshold(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
		"11111": {q("jne", "reg", "JNE", "Regular", 18000, 1, 2)},
	}}

	svc := testService(twoSellerResolver(), provider, Config{HandlingFee: 2500})
	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
	assert.Equal(t, "4250000", result.Rates[0].Total, "flat fee added to the summed total")

	// Cart subtotal is 130000; a threshold at or below that zeroes shipping.
	svc = testService(twoSellerResolver(), &fakeProvider{quotes: provider.quotes},
		Config{HandlingFee: 2500, FreeShippingThreshold: 130000})
	result, err = svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
	assert.Equal(t, "0", result.Rates[0].Total)
}

func TestCalculateQuote_GroupWithZeroQuotesProducesNoRates(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
		// seller s-2's origin 11111 has no coverage at all
	}}
	svc := testService(twoSellerResolver(), provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	assert.Empty(t, result.Rates, "not even the fallback is produced")
	assert.Contains(t, result.Debug.Reason, "no rates")
}

func TestCalculateQuote_UnresolvableItemsAreSkippedNotFatal(t *testing.T) {
	res := twoSellerResolver()
	delete(res.mappings, "v-2")
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
	}}
	svc := testService(res, provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
	assert.Equal(t, 1, result.Debug.GroupCount)
	require.Len(t, result.Debug.SkippedItems, 1)
	assert.Equal(t, "v-2", result.Debug.SkippedItems[0].VariantID)
}

func TestCalculateQuote_CacheHitShortCircuits(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("jne", "reg", "JNE", "Regular", 22000, 1, 2)},
		"11111": {q("jne", "reg", "JNE", "Regular", 18000, 1, 2)},
	}}
	svc := testService(twoSellerResolver(), provider, Config{})

	first, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	assert.False(t, first.Debug.CacheHit)
	callsAfterFirst := provider.calls()

	second, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	assert.True(t, second.Debug.CacheHit)
	assert.Equal(t, first.Rates, second.Rates)
	assert.Equal(t, callsAfterFirst, provider.calls(), "no new provider calls on a hit")
}

func TestCalculateQuote_ProviderErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream unavailable")}
	svc := testService(twoSellerResolver(), provider, Config{})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.Error(t, err)
	assert.Empty(t, result.Rates)
	assert.Contains(t, err.Error(), "upstream unavailable")
}

func TestCalculateQuote_DeliveryDates(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {q("grab", "instant", "Grab", "Instant", 30000, 2.0/24, 3.0/24)},
		"11111": {q("grab", "instant", "Grab", "Instant", 20000, 1, 2)},
	}}
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := testService(twoSellerResolver(), provider, Config{}, WithClock(func() time.Time { return fixed }))

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)
	assert.Equal(t, "2026-03-11", result.Rates[0].MinDeliveryDate, "slowest leg bounds the shipment")
	assert.Equal(t, "2026-03-12", result.Rates[0].MaxDeliveryDate)
}

func TestCalculateQuote_CapsRateCount(t *testing.T) {
	provider := &fakeProvider{quotes: map[string][]shipping.RateQuote{
		"40115": {
			q("jne", "reg", "JNE", "Regular", 22000, 1, 2),
			q("sicepat", "best", "SiCepat", "BEST", 19000, 1, 1),
			q("idexpress", "std", "IDExpress", "Standard", 17000, 2, 4),
		},
		"11111": {
			q("jne", "reg", "JNE", "Regular", 18000, 1, 2),
			q("sicepat", "best", "SiCepat", "BEST", 25000, 1, 2),
			q("idexpress", "std", "IDExpress", "Standard", 20000, 2, 3),
		},
	}}
	svc := testService(twoSellerResolver(), provider, Config{MaxRates: 2})

	result, err := svc.CalculateQuote(context.Background(), twoSellerCart())
	require.NoError(t, err)
	require.Len(t, result.Rates, 2)
	assert.Equal(t, "3700000", result.Rates[0].Total, "cheapest first after the cap")
}

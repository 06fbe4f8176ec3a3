package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shipping"
	"github.com/marketship/backend/internal/infrastructure/cache"
)

// SellerResolver resolves cart variants to sellers and sellers to shipping
// origins.
type SellerResolver interface {
	ResolveVariant(ctx context.Context, variantID string) (*seller.VariantMapping, error)
	ResolveOrigin(ctx context.Context, sellerID string) (*seller.SellerOrigin, error)
}

// Config holds checkout quote business rules.
type Config struct {
	HandlingFee           int64
	FreeShippingThreshold int64
	MaxRates              int
	Currency              string
	MinorUnitFactor       int64
	CacheTTL              time.Duration
	Couriers              []string
}

// Service computes aggregated multi-seller shipping rates for a cart.
type Service struct {
	resolver SellerResolver
	provider shipping.RateProvider
	cache    cache.QuoteCache
	audit    shipping.QuoteAuditStore
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the clock used for delivery-date estimates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the quote service.
func NewService(res SellerResolver, provider shipping.RateProvider, quoteCache cache.QuoteCache,
	audit shipping.QuoteAuditStore, cfg Config, opts ...Option) *Service {
	s := &Service{
		resolver: res,
		provider: provider,
		cache:    quoteCache,
		audit:    audit,
		cfg:      cfg,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sellerGroup is the subset of cart items attributable to one seller,
// sharing one shipment origin.
type sellerGroup struct {
	sellerID string
	origin   *seller.SellerOrigin
	items    []shipping.CargoItem
}

// combinedRate is an aggregated rate before checkout formatting, with the
// total still in major units so sorting stays exact.
type combinedRate struct {
	serviceCode string
	courierName string
	serviceName string
	total       decimal.Decimal
	minDays     float64
	maxDays     float64
	fallback    bool
}

// CalculateQuote runs the full aggregation pipeline for a cart and returns
// the ordered checkout rates plus a debug trace.
//
// Validation-class empties (no destination, no shippable items, nothing
// resolvable) return an empty result with a reason and a nil error; only
// upstream provider failures return a non-nil error, so the transport layer
// can choose between failing open and failing closed.
func (s *Service) CalculateQuote(ctx context.Context, req *CartRequest) (*Result, error) {
	started := s.now()
	result := &Result{Rates: []Rate{}}
	defer func() {
		result.Debug.DurationMs = time.Since(started).Milliseconds()
		s.appendAudit(ctx, req, result)
	}()

	shippable := make([]CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.RequiresShipping && item.Quantity > 0 {
			shippable = append(shippable, item)
		}
	}
	if len(shippable) == 0 {
		result.Debug.Reason = shipping.ErrNoShippableItems.Error()
		return result, nil
	}
	if req.Destination.Empty() {
		result.Debug.Reason = shipping.ErrNoDestination.Error()
		return result, nil
	}

	key := cacheKey(req, s.cfg.Currency, s.cfg.Couriers, shippable)
	result.Debug.CacheKey = key
	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("quote cache read failed", zap.Error(err))
	} else if ok {
		var rates []Rate
		if err := json.Unmarshal(payload, &rates); err == nil {
			result.Rates = rates
			result.Debug.CacheHit = true
			return result, nil
		}
		s.logger.Warn("quote cache payload corrupt, recomputing", zap.String("key", key))
	}

	groups := s.resolveGroups(ctx, shippable, result)
	result.Debug.GroupCount = len(groups)
	if len(groups) == 0 {
		result.Debug.Reason = shipping.ErrNoSellerGroups.Error()
		return result, nil
	}

	groupQuotes, err := s.fetchGroupRates(ctx, req.Destination, groups)
	if err != nil {
		result.Debug.Reason = err.Error()
		return result, err
	}
	for i := range groupQuotes {
		if len(groupQuotes[i]) == 0 {
			result.Debug.Reason = fmt.Sprintf("%v: seller %s", shipping.ErrNoRates, groups[i].sellerID)
			return result, nil
		}
		groupQuotes[i] = dedupeLowest(groupQuotes[i])
	}

	subtotal := req.Subtotal()
	combined := s.combine(groupQuotes)
	if len(combined) == 0 {
		combined = []combinedRate{s.mixedCheapest(groupQuotes)}
		result.Debug.Fallback = true
	}
	for i := range combined {
		combined[i].total = s.applyFeeAndThreshold(combined[i].total, subtotal)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].total.LessThan(combined[j].total)
	})
	if s.cfg.MaxRates > 0 && len(combined) > s.cfg.MaxRates {
		combined = combined[:s.cfg.MaxRates]
	}

	result.Rates = s.formatRates(combined)
	if payload, err := json.Marshal(result.Rates); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("quote cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// resolveGroups resolves every unique variant to its seller and every
// unique seller to an origin, grouping items by seller. Unresolvable items
// are recorded as skipped, not fatal.
func (s *Service) resolveGroups(ctx context.Context, items []CartItem, result *Result) []sellerGroup {
	type pending struct {
		item    CartItem
		mapping *seller.VariantMapping
	}

	bySeller := make(map[string][]pending)
	var sellerOrder []string
	for _, item := range items {
		mapping, err := s.resolver.ResolveVariant(ctx, item.VariantID)
		if err != nil {
			result.Debug.SkippedItems = append(result.Debug.SkippedItems, SkippedItem{
				VariantID: item.VariantID,
				Reason:    fmt.Sprintf("variant resolution failed: %v", err),
			})
			continue
		}
		if _, seen := bySeller[mapping.SellerID]; !seen {
			sellerOrder = append(sellerOrder, mapping.SellerID)
		}
		bySeller[mapping.SellerID] = append(bySeller[mapping.SellerID], pending{item: item, mapping: mapping})
	}

	groups := make([]sellerGroup, 0, len(sellerOrder))
	for _, sellerID := range sellerOrder {
		origin, err := s.resolver.ResolveOrigin(ctx, sellerID)
		if err != nil {
			for _, p := range bySeller[sellerID] {
				result.Debug.SkippedItems = append(result.Debug.SkippedItems, SkippedItem{
					VariantID: p.item.VariantID,
					Reason:    fmt.Sprintf("origin resolution failed: %v", err),
				})
			}
			continue
		}

		group := sellerGroup{sellerID: sellerID, origin: origin}
		for _, p := range bySeller[sellerID] {
			weight := p.item.WeightGrams
			if weight == 0 {
				weight = p.mapping.WeightGrams
			}
			group.items = append(group.items, shipping.CargoItem{
				Name:        p.item.Name,
				Quantity:    p.item.Quantity,
				WeightGrams: weight,
				Value:       p.item.Price,
			})
		}
		groups = append(groups, group)
	}
	return groups
}

// fetchGroupRates fans out one rate request per seller group concurrently
// and waits for all of them.
func (s *Service) fetchGroupRates(ctx context.Context, dest Destination, groups []sellerGroup) ([][]shipping.RateQuote, error) {
	quotes := make([][]shipping.RateQuote, len(groups))
	errs := make([]error, len(groups))

	var wg sync.WaitGroup
	for i := range groups {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			group := groups[i]
			quotes[i], errs[i] = s.provider.Rates(ctx, &shipping.RateRequest{
				OriginPostalCode: group.origin.PostalCode,
				OriginLatitude:   group.origin.Latitude,
				OriginLongitude:  group.origin.Longitude,
				DestPostalCode:   dest.PostalCode,
				DestLatitude:     dest.Latitude,
				DestLongitude:    dest.Longitude,
				Items:            group.items,
				Couriers:         s.cfg.Couriers,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("rates for seller %s: %w", groups[i].sellerID, err)
		}
	}
	return quotes, nil
}

// dedupeLowest collapses quotes sharing a (courier, service) key to the
// lowest-priced one, preserving first-seen key order.
func dedupeLowest(quotes []shipping.RateQuote) []shipping.RateQuote {
	best := make(map[string]int)
	deduped := make([]shipping.RateQuote, 0, len(quotes))
	for _, q := range quotes {
		key := q.Key()
		if idx, ok := best[key]; ok {
			if q.Price.LessThan(deduped[idx].Price) {
				deduped[idx] = q
			}
			continue
		}
		best[key] = len(deduped)
		deduped = append(deduped, q)
	}
	return deduped
}

// combine builds one rate per (courier, service) key present in every
// group: prices summed, delivery bounds taken from the slowest leg.
func (s *Service) combine(groupQuotes [][]shipping.RateQuote) []combinedRate {
	byKey := make([]map[string]shipping.RateQuote, len(groupQuotes))
	for i, quotes := range groupQuotes {
		byKey[i] = make(map[string]shipping.RateQuote, len(quotes))
		for _, q := range quotes {
			byKey[i][q.Key()] = q
		}
	}

	var combined []combinedRate
	for _, base := range groupQuotes[0] {
		key := base.Key()
		total := decimal.Zero
		minDays, maxDays := 0.0, 0.0
		common := true
		for i := range byKey {
			q, ok := byKey[i][key]
			if !ok {
				common = false
				break
			}
			total = total.Add(q.Price)
			if q.MinDays > minDays {
				minDays = q.MinDays
			}
			if q.MaxDays > maxDays {
				maxDays = q.MaxDays
			}
		}
		if !common {
			continue
		}
		combined = append(combined, combinedRate{
			serviceCode: shipping.ServiceToken(base.CourierCode, base.ServiceCode),
			courierName: base.CourierName,
			serviceName: base.ServiceName,
			total:       total,
			minDays:     minDays,
			maxDays:     maxDays,
		})
	}
	return combined
}

// mixedCheapest builds the synthetic fallback rate: each group's cheapest
// quote summed, tagged with the fixed mixed service code.
func (s *Service) mixedCheapest(groupQuotes [][]shipping.RateQuote) combinedRate {
	total := decimal.Zero
	minDays, maxDays := 0.0, 0.0
	for _, quotes := range groupQuotes {
		cheapest := quotes[0]
		for _, q := range quotes[1:] {
			if q.Price.LessThan(cheapest.Price) {
				cheapest = q
			}
		}
		total = total.Add(cheapest.Price)
		if cheapest.MinDays > minDays {
			minDays = cheapest.MinDays
		}
		if cheapest.MaxDays > maxDays {
			maxDays = cheapest.MaxDays
		}
	}
	return combinedRate{
		serviceCode: shipping.MixedServiceCode,
		courierName: "Multiple couriers",
		serviceName: "Cheapest per seller",
		total:       total,
		minDays:     minDays,
		maxDays:     maxDays,
		fallback:    true,
	}
}

// applyFeeAndThreshold adds the flat handling fee, then zeroes the total
// when the cart subtotal reaches the free-shipping threshold.
func (s *Service) applyFeeAndThreshold(total, subtotal decimal.Decimal) decimal.Decimal {
	total = total.Add(decimal.NewFromInt(s.cfg.HandlingFee))
	if s.cfg.FreeShippingThreshold > 0 &&
		subtotal.GreaterThanOrEqual(decimal.NewFromInt(s.cfg.FreeShippingThreshold)) {
		return decimal.Zero
	}
	return total
}

// formatRates converts combined rates to checkout-facing form: minor
// currency units and delivery-date estimates. Non-positive day counts omit
// the date fields.
func (s *Service) formatRates(combined []combinedRate) []Rate {
	now := s.now()
	rates := make([]Rate, 0, len(combined))
	for _, c := range combined {
		rate := Rate{
			ServiceCode: c.serviceCode,
			CourierName: c.courierName,
			ServiceName: c.serviceName,
			Total:       toMinorUnits(c.total, s.cfg.MinorUnitFactor),
			Currency:    s.cfg.Currency,
			Fallback:    c.fallback,
		}
		if c.minDays > 0 {
			rate.MinDeliveryDate = deliveryDate(now, c.minDays)
		}
		if c.maxDays > 0 {
			rate.MaxDeliveryDate = deliveryDate(now, c.maxDays)
		}
		rates = append(rates, rate)
	}
	return rates
}

// deliveryDate offsets now by a possibly fractional day count.
func deliveryDate(now time.Time, days float64) string {
	return now.Add(time.Duration(days * 24 * float64(time.Hour))).Format("2006-01-02")
}

func (s *Service) appendAudit(ctx context.Context, req *CartRequest, result *Result) {
	if s.audit == nil {
		return
	}
	entry := &shipping.QuoteAuditEntry{
		Destination:  req.Destination.PostalCode,
		Currency:     s.cfg.Currency,
		GroupCount:   result.Debug.GroupCount,
		SkippedCount: len(result.Debug.SkippedItems),
		RateCount:    len(result.Rates),
		Fallback:     result.Debug.Fallback,
		CacheHit:     result.Debug.CacheHit,
		DurationMs:   result.Debug.DurationMs,
		Reason:       result.Debug.Reason,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Warn("quote audit append failed", zap.Error(err))
	}
}

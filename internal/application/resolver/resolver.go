package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/infrastructure/cache"
)

// ErrOriginUnresolved is returned when a seller origin cannot be resolved
// from any tier and no default origin is configured.
var ErrOriginUnresolved = errors.New("seller origin unresolved")

// Config holds resolution cache and fallback settings.
type Config struct {
	TTL                 time.Duration
	CacheSize           int
	DefaultOriginPostal string
}

// Resolver answers variant-to-seller and seller-to-origin lookups for the
// quote and sync paths.
//
// Variant mappings resolve cache-first, then live. Origins resolve through
// a persisted-first chain: operator-controlled store, then cache, then the
// live directory, then the configured default origin. Quote-time resolution
// never writes the persisted store; only SyncOrigin does.
type Resolver struct {
	directory seller.Directory
	origins   seller.OriginStore

	variantCache *cache.TTLCache
	originCache  *cache.TTLCache
	ttl          time.Duration

	defaultPostal string
	logger        *zap.Logger
}

// Option is a functional option for Resolver configuration
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a resolver over the live directory and the persisted
// origin store.
func NewResolver(directory seller.Directory, origins seller.OriginStore, cfg Config, opts ...Option) *Resolver {
	r := &Resolver{
		directory:     directory,
		origins:       origins,
		variantCache:  cache.NewTTLCache(cfg.CacheSize),
		originCache:   cache.NewTTLCache(cfg.CacheSize),
		ttl:           cfg.TTL,
		defaultPostal: cfg.DefaultOriginPostal,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveVariant resolves a storefront variant to its seller mapping,
// cache-first.
func (r *Resolver) ResolveVariant(ctx context.Context, variantID string) (*seller.VariantMapping, error) {
	if cached, ok := r.variantCache.Get(variantID); ok {
		return cached.(*seller.VariantMapping), nil
	}

	mapping, err := r.directory.GetVariantMapping(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("resolve variant %s: %w", variantID, err)
	}

	r.variantCache.Set(variantID, mapping, r.ttl)
	return mapping, nil
}

// ResolveOrigin resolves the shipping origin for a seller through the
// persisted store, the cache, the live directory and finally the default
// origin. The returned origin's Source records which tier answered.
func (r *Resolver) ResolveOrigin(ctx context.Context, sellerID string) (*seller.SellerOrigin, error) {
	persisted, err := r.origins.Get(ctx, sellerID)
	if err == nil {
		return persisted, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		r.logger.Warn("persisted origin lookup failed, falling through",
			zap.String("seller_id", sellerID), zap.Error(err))
	}

	if cached, ok := r.originCache.Get(sellerID); ok {
		origin := *cached.(*seller.SellerOrigin)
		origin.Source = seller.OriginSourceCached
		return &origin, nil
	}

	live, liveErr := r.directory.GetSellerOrigin(ctx, sellerID)
	if liveErr == nil {
		r.originCache.Set(sellerID, live, r.ttl)
		return live, nil
	}

	if r.defaultPostal == "" {
		return nil, fmt.Errorf("%w: seller %s: %v", ErrOriginUnresolved, sellerID, liveErr)
	}

	r.logger.Warn("seller origin downgraded to default",
		zap.String("seller_id", sellerID),
		zap.String("default_postal", r.defaultPostal),
		zap.Error(liveErr))
	return &seller.SellerOrigin{
		SellerID:   sellerID,
		PostalCode: r.defaultPostal,
		Source:     seller.OriginSourceDefault,
	}, nil
}

// SyncOrigin is the explicit write path: it fetches the live origin,
// persists it and refreshes the cache. Origin-sync webhooks and the admin
// API land here.
func (r *Resolver) SyncOrigin(ctx context.Context, sellerID string) (*seller.SellerOrigin, error) {
	live, err := r.directory.GetSellerOrigin(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("sync origin for seller %s: %w", sellerID, err)
	}

	if err := r.origins.Upsert(ctx, live); err != nil {
		return nil, fmt.Errorf("persist origin for seller %s: %w", sellerID, err)
	}
	r.originCache.Set(sellerID, live, r.ttl)

	r.logger.Info("seller origin synced",
		zap.String("seller_id", sellerID),
		zap.String("postal_code", live.PostalCode))
	return live, nil
}

// PutOrigin persists an operator-supplied origin directly and refreshes
// the cache.
func (r *Resolver) PutOrigin(ctx context.Context, origin *seller.SellerOrigin) error {
	if err := r.origins.Upsert(ctx, origin); err != nil {
		return err
	}
	r.originCache.Set(origin.SellerID, origin, r.ttl)
	return nil
}

// InvalidateOrigin drops a seller's origin from the resolution cache.
func (r *Resolver) InvalidateOrigin(sellerID string) {
	r.originCache.Delete(sellerID)
}

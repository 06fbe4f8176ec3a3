package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
)

// fakeDirectory is a canned seller.Directory that counts live lookups.
type fakeDirectory struct {
	mu           sync.Mutex
	mappings     map[string]*seller.VariantMapping
	origins      map[string]*seller.SellerOrigin
	variantCalls int
	originCalls  int
}

func (d *fakeDirectory) GetVariantMapping(_ context.Context, variantID string) (*seller.VariantMapping, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.variantCalls++
	m, ok := d.mappings[variantID]
	if !ok {
		return nil, errors.New("variant not found")
	}
	return m, nil
}

func (d *fakeDirectory) GetSellerOrigin(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.originCalls++
	o, ok := d.origins[sellerID]
	if !ok {
		return nil, errors.New("seller location not found")
	}
	copied := *o
	copied.Source = seller.OriginSourceLive
	return &copied, nil
}

func (d *fakeDirectory) GetSeller(_ context.Context, sellerID string) (*seller.Seller, error) {
	return &seller.Seller{ID: sellerID}, nil
}

// memoryOriginStore is an in-memory seller.OriginStore that counts writes.
type memoryOriginStore struct {
	mu      sync.Mutex
	origins map[string]*seller.SellerOrigin
	upserts int
}

func newMemoryOriginStore() *memoryOriginStore {
	return &memoryOriginStore{origins: make(map[string]*seller.SellerOrigin)}
}

func (s *memoryOriginStore) Get(_ context.Context, sellerID string) (*seller.SellerOrigin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.origins[sellerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *o
	copied.Source = seller.OriginSourcePersisted
	return &copied, nil
}

func (s *memoryOriginStore) Upsert(_ context.Context, origin *seller.SellerOrigin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origins[origin.SellerID] = origin
	s.upserts++
	return nil
}

func (s *memoryOriginStore) List(_ context.Context, limit int) ([]seller.SellerOrigin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []seller.SellerOrigin
	for _, o := range s.origins {
		out = append(out, *o)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func testConfig() Config {
	return Config{TTL: time.Minute, CacheSize: 16}
}

func TestResolveVariant_CachesLiveLookups(t *testing.T) {
	dir := &fakeDirectory{mappings: map[string]*seller.VariantMapping{
		"v-1": {VariantID: "v-1", SellerID: "s-1", WeightGrams: 400},
	}}
	r := NewResolver(dir, newMemoryOriginStore(), testConfig())

	for i := 0; i < 3; i++ {
		m, err := r.ResolveVariant(context.Background(), "v-1")
		require.NoError(t, err)
		assert.Equal(t, "s-1", m.SellerID)
	}
	assert.Equal(t, 1, dir.variantCalls, "repeat lookups served from cache")
}

func TestResolveVariant_UnknownVariant(t *testing.T) {
	dir := &fakeDirectory{mappings: map[string]*seller.VariantMapping{}}
	r := NewResolver(dir, newMemoryOriginStore(), testConfig())

	_, err := r.ResolveVariant(context.Background(), "v-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v-404")
}

func TestResolveOrigin_PersistedWins(t *testing.T) {
	dir := &fakeDirectory{origins: map[string]*seller.SellerOrigin{
		"s-1": {SellerID: "s-1", PostalCode: "11111"},
	}}
	store := newMemoryOriginStore()
	require.NoError(t, store.Upsert(context.Background(),
		&seller.SellerOrigin{SellerID: "s-1", PostalCode: "40115"}))

	r := NewResolver(dir, store, testConfig())

	origin, err := r.ResolveOrigin(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", origin.PostalCode, "persisted origin preferred over live")
	assert.Equal(t, seller.OriginSourcePersisted, origin.Source)
	assert.Equal(t, 0, dir.originCalls)
}

func TestResolveOrigin_LiveThenCached(t *testing.T) {
	dir := &fakeDirectory{origins: map[string]*seller.SellerOrigin{
		"s-1": {SellerID: "s-1", PostalCode: "40115"},
	}}
	store := newMemoryOriginStore()
	r := NewResolver(dir, store, testConfig())

	origin, err := r.ResolveOrigin(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, seller.OriginSourceLive, origin.Source)

	origin, err = r.ResolveOrigin(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, seller.OriginSourceCached, origin.Source)
	assert.Equal(t, "40115", origin.PostalCode)

	assert.Equal(t, 1, dir.originCalls, "second resolution hits the cache")
	assert.Equal(t, 0, store.upserts, "quote-time resolution never writes the persisted store")
}

func TestResolveOrigin_DefaultFallback(t *testing.T) {
	dir := &fakeDirectory{origins: map[string]*seller.SellerOrigin{}}
	cfg := testConfig()
	cfg.DefaultOriginPostal = "10110"
	r := NewResolver(dir, newMemoryOriginStore(), cfg)

	origin, err := r.ResolveOrigin(context.Background(), "s-ghost")
	require.NoError(t, err)
	assert.Equal(t, "10110", origin.PostalCode)
	assert.Equal(t, seller.OriginSourceDefault, origin.Source)
}

func TestResolveOrigin_UnresolvedWithoutDefault(t *testing.T) {
	dir := &fakeDirectory{origins: map[string]*seller.SellerOrigin{}}
	r := NewResolver(dir, newMemoryOriginStore(), testConfig())

	_, err := r.ResolveOrigin(context.Background(), "s-ghost")
	assert.ErrorIs(t, err, ErrOriginUnresolved)
}

func TestSyncOrigin_PersistsAndRefreshesCache(t *testing.T) {
	dir := &fakeDirectory{origins: map[string]*seller.SellerOrigin{
		"s-1": {SellerID: "s-1", PostalCode: "40115"},
	}}
	store := newMemoryOriginStore()
	r := NewResolver(dir, store, testConfig())

	origin, err := r.SyncOrigin(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", origin.PostalCode)
	assert.Equal(t, 1, store.upserts, "sync writes the persisted store")

	persisted, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", persisted.PostalCode)
}

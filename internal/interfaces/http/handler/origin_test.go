package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketship/backend/internal/application/resolver"
	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/interfaces/http/middleware"
)

func newOriginFixture(webhookSecret string) (*OriginHandler, *memoryOriginStore) {
	directory := &fakeDirectory{origins: map[string]*seller.SellerOrigin{
		"s-1": {
			SellerID:     "s-1",
			PostalCode:   "40115",
			Address:      "Jl. Merdeka 1",
			ContactName:  "Toko A",
			ContactPhone: "0811111111",
		},
	}}
	store := newMemoryOriginStore()
	res := resolver.NewResolver(directory, store, resolver.Config{TTL: time.Minute, CacheSize: 16})

	h := NewOriginHandler(res, store, middleware.WebhookSignature(webhookSecret), nil)
	return h, store
}

func TestOriginHandler_PutAndList(t *testing.T) {
	h, store := newOriginFixture("")
	engine := newTestEngine(h)

	w := doJSON(t, engine, http.MethodPut, "/api/v1/origins/s-9", map[string]any{
		"postal_code":   "11111",
		"city":          "Jakarta Barat",
		"address":       "Jl. Panjang 8",
		"contact_name":  "Toko B",
		"contact_phone": "0822222222",
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Get(t.Context(), "s-9")
	require.NoError(t, err)
	assert.Equal(t, "11111", stored.PostalCode)

	w = doJSON(t, engine, http.MethodGet, "/api/v1/origins", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var origins []seller.SellerOrigin
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &origins))
	require.Len(t, origins, 1)
	assert.Equal(t, "s-9", origins[0].SellerID)
}

func TestOriginHandler_PutRequiresPostalCode(t *testing.T) {
	h, _ := newOriginFixture("")
	engine := newTestEngine(h)

	w := doJSON(t, engine, http.MethodPut, "/api/v1/origins/s-9", map[string]any{
		"city": "Jakarta Barat",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOriginHandler_SyncPersistsDirectoryOrigin(t *testing.T) {
	h, store := newOriginFixture("")
	engine := newTestEngine(h)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/origins/s-1/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Get(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", stored.PostalCode)
}

func TestOriginHandler_SyncUnknownSeller(t *testing.T) {
	h, _ := newOriginFixture("")
	engine := newTestEngine(h)

	w := doJSON(t, engine, http.MethodPost, "/api/v1/origins/s-404/sync", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOriginHandler_WebhookSignature(t *testing.T) {
	const secret = "wh-secret"
	h, store := newOriginFixture(secret)
	engine := newTestEngine(h)

	// Missing signature is rejected.
	w := doJSON(t, engine, http.MethodPost, "/api/v1/origins/s-1/sync", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err := store.Get(t.Context(), "s-1")
	assert.Error(t, err)

	// Correctly signed request passes.
	mac := hmac.New(sha256.New, []byte(secret))
	signature := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/origins/s-1/sync", bytes.NewReader(nil))
	req.Header.Set(middleware.SignatureHeader, signature)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := store.Get(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", stored.PostalCode)
}

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/marketship/backend/internal/domain/order"
	"github.com/marketship/backend/internal/domain/seller"
	"github.com/marketship/backend/internal/domain/shared"
	"github.com/marketship/backend/internal/domain/shipping"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestOriginStore_UpsertAndGet(t *testing.T) {
	store := NewGormOriginStore(setupTestDB(t))
	ctx := context.Background()

	lat, lng := -6.9, 107.6
	require.NoError(t, store.Upsert(ctx, &seller.SellerOrigin{
		SellerID:     "s-1",
		PostalCode:   "40115",
		City:         "Bandung",
		Country:      "ID",
		Latitude:     &lat,
		Longitude:    &lng,
		ContactName:  "Toko A",
		ContactPhone: "0811111111",
		Source:       seller.OriginSourceLive,
	}))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "40115", got.PostalCode)
	assert.Equal(t, seller.OriginSourcePersisted, got.Source, "stored origins always read back as persisted")
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, -6.9, *got.Latitude, 1e-9)
}

func TestOriginStore_UpsertReplaces(t *testing.T) {
	store := NewGormOriginStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &seller.SellerOrigin{SellerID: "s-1", PostalCode: "40115"}))
	require.NoError(t, store.Upsert(ctx, &seller.SellerOrigin{SellerID: "s-1", PostalCode: "55281"}))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "55281", got.PostalCode)

	origins, err := store.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, origins, 1)
}

func TestOriginStore_GetMissing(t *testing.T) {
	store := NewGormOriginStore(setupTestDB(t))

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSyncStore_RoundTrip(t *testing.T) {
	store := NewGormSyncStore(setupTestDB(t))
	ctx := context.Background()

	record := &order.SyncRecord{
		OrderID: "1001",
		Status:  order.SyncStatusPartialFailed,
		Shipments: []order.Shipment{
			{SellerID: "s-1", CourierCompany: "jne", CourierType: "reg",
				BookingID: "bk-1", TrackingNumber: "AWB123", Status: order.ShipmentStatusCreated},
			{SellerID: "s-2", Status: order.ShipmentStatusFailed, Error: "no coverage"},
		},
		SkippedItems:     []order.SkippedItem{{VariantID: "v-9", Reason: "seller lookup failed"}},
		SelectedShipping: "ms-jne-reg",
	}
	require.NoError(t, store.Upsert(ctx, record))

	got, err := store.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, order.SyncStatusPartialFailed, got.Status)
	require.Len(t, got.Shipments, 2)
	assert.Equal(t, "AWB123", got.Shipments[0].TrackingNumber)
	assert.Equal(t, order.ShipmentStatusFailed, got.Shipments[1].Status)
	require.Len(t, got.SkippedItems, 1)
	assert.Equal(t, "v-9", got.SkippedItems[0].VariantID)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSyncStore_UpsertReplacesWholeRecord(t *testing.T) {
	store := NewGormSyncStore(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &order.SyncRecord{
		OrderID: "1001", Status: order.SyncStatusProcessing,
	}))
	require.NoError(t, store.Upsert(ctx, &order.SyncRecord{
		OrderID: "1001", Status: order.SyncStatusCompleted,
		Shipments: []order.Shipment{{SellerID: "s-1", Status: order.ShipmentStatusCreated}},
	}))

	got, err := store.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, order.SyncStatusCompleted, got.Status)
	assert.Len(t, got.Shipments, 1)
}

func TestSyncStore_ListNewestFirst(t *testing.T) {
	store := NewGormSyncStore(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	for i, id := range []string{"1001", "1002", "1003"} {
		require.NoError(t, store.Upsert(ctx, &order.SyncRecord{
			OrderID:   id,
			Status:    order.SyncStatusCompleted,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1003", records[0].OrderID)
	assert.Equal(t, "1002", records[1].OrderID)
}

func TestQuoteAuditStore_AppendTrimsToCap(t *testing.T) {
	store := NewGormQuoteAuditStore(setupTestDB(t), 3)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, &shipping.QuoteAuditEntry{
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
			Destination: "55281",
			RateCount:   i,
		}))
	}

	entries, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3, "oldest entries beyond the cap are dropped")
	assert.Equal(t, 4, entries[0].RateCount, "newest first")
	assert.Equal(t, 2, entries[2].RateCount)
}

func TestQuoteAuditStore_AssignsIDAndTimestamp(t *testing.T) {
	store := NewGormQuoteAuditStore(setupTestDB(t), 0)
	ctx := context.Background()

	entry := &shipping.QuoteAuditEntry{Destination: "55281"}
	require.NoError(t, store.Append(ctx, entry))

	entries, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotZero(t, entries[0].ID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestCredentialStore_RoundTripAndRotate(t *testing.T) {
	store := NewGormCredentialStore(setupTestDB(t))
	ctx := context.Background()

	_, err := store.Load(ctx, "courier")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, store.Save(ctx, "courier", &shared.Credentials{
		AccessToken: "first", RefreshToken: "rt-first",
	}))
	require.NoError(t, store.Save(ctx, "courier", &shared.Credentials{
		AccessToken: "second", RefreshToken: "rt-second",
	}))

	creds, err := store.Load(ctx, "courier")
	require.NoError(t, err)
	assert.Equal(t, "second", creds.AccessToken)
	assert.Equal(t, "rt-second", creds.RefreshToken)
}

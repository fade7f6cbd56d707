package caching

import (
	"context"
	"os"
	"testing"
	"time"

	"reliefledger/internal/models"
	"reliefledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-2b1d-4d8e-9a57-0c3b1f1e8d21")
	assert.Equal(t, "reliefledger:stock:6f1c2a9e-2b1d-4d8e-9a57-0c3b1f1e8d21", stockKey(id))
	assert.Equal(t, "reliefledger:analytics:dashboard", analyticsKey("dashboard"))
}

func TestNoopCacheService(t *testing.T) {
	ctx := context.Background()
	cache := NewNoopCacheService()

	require.NoError(t, cache.SetStockRecord(ctx, &models.StockRecord{ID: uuid.New()}, time.Minute))
	rec, err := cache.GetStockRecord(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, rec)

	var dst map[string]int
	hit, err := cache.GetAnalytics(ctx, "dashboard", &dst)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.Ping(ctx))
}

// TestRedisCacheService runs against a live Redis when REDIS_ADDR is set.
func TestRedisCacheService(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis cache test")
	}
	ctx := context.Background()
	cache := NewRedisCacheService(addr, os.Getenv("REDIS_PASSWORD"), 0, logger.Nop())
	require.NoError(t, cache.Ping(ctx))

	shelterID := uuid.New()
	rec := &models.StockRecord{
		ID:                 uuid.New(),
		ItemName:           "Water",
		ProvincialQuantity: 10,
		ShelterQuantities:  map[uuid.UUID]models.ShelterStock{shelterID: {Quantity: 5}},
		TotalQuantity:      15,
		Version:            3,
	}
	require.NoError(t, cache.SetStockRecord(ctx, rec, time.Minute))

	got, err := cache.GetStockRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.ShelterQuantities[shelterID].Quantity)
	assert.Equal(t, 3, got.Version)

	require.NoError(t, cache.DeleteStockRecord(ctx, rec.ID))
	got, err = cache.GetStockRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetAnalytics(ctx, "test-summary", map[string]int{"items": 4}, time.Minute))
	var summary map[string]int
	hit, err := cache.GetAnalytics(ctx, "test-summary", &summary)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, summary["items"])

	require.NoError(t, cache.InvalidateAnalytics(ctx))
	hit, err = cache.GetAnalytics(ctx, "test-summary", &summary)
	require.NoError(t, err)
	assert.False(t, hit)
}

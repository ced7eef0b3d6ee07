package service

import (
	"context"
	"testing"
	"time"

	"orgdir/core"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDetailCache(t *testing.T) (*DetailCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDetailCache(client, time.Minute, zap.NewNop().Sugar()), mr
}

func sampleDetail() *core.OrganizationDetail {
	return &core.OrganizationDetail{
		Organization: core.Organization{ID: 7, Name: "Dairy King", BuildingID: 2},
		Building:     core.Building{ID: 2, Address: "456 Market St, San Francisco", Latitude: 37.7749, Longitude: -122.4194},
		PhoneNumbers: []core.PhoneNumber{{ID: 1, Number: "555-345-6789", OrganizationID: 7}},
	}
}

func TestDetailCacheRoundTrip(t *testing.T) {
	cache, _ := newTestDetailCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)

	cache.Set(ctx, 7, sampleDetail())

	got, ok := cache.Get(ctx, 7)
	require.True(t, ok)
	assert.Equal(t, "Dairy King", got.Name)
	assert.Len(t, got.PhoneNumbers, 1)
}

func TestDetailCacheExpiry(t *testing.T) {
	cache, mr := newTestDetailCache(t)
	ctx := context.Background()

	cache.Set(ctx, 7, sampleDetail())
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestDetailCacheInvalidate(t *testing.T) {
	cache, _ := newTestDetailCache(t)
	ctx := context.Background()

	cache.Set(ctx, 7, sampleDetail())
	cache.Invalidate(ctx, 7)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

func TestDetailCacheCorruptEntry(t *testing.T) {
	cache, mr := newTestDetailCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("orgdir:organization:7", "not json"))

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)
}

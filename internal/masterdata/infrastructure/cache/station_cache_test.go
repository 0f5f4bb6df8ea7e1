package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	masterdata "cng-console/internal/masterdata/domain"
)

func TestStationCache_Redis(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	cache, err := NewStationCache(url, time.Minute)
	require.NoError(t, err)
	defer cache.Close()
	cache.key = "cng:test:stations:" + time.Now().UTC().Format("150405.000000000")

	ctx := context.Background()
	_, err = cache.GetStations(ctx)
	assert.True(t, errors.Is(err, masterdata.ErrCacheMiss))

	stations := []masterdata.Station{{ID: "st-1", Name: "North", Timezone: "UTC", Active: true}}
	require.NoError(t, cache.SetStations(ctx, stations))

	cached, err := cache.GetStations(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "North", cached[0].Name)

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.GetStations(ctx)
	assert.ErrorIs(t, err, masterdata.ErrCacheMiss)
}

func TestNewStationCache_InvalidURL(t *testing.T) {
	_, err := NewStationCache("not a url", time.Minute)
	assert.Error(t, err)
}

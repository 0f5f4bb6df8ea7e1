package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	masterdata "cng-console/internal/masterdata/domain"
)

const defaultStationListKey = "cng:stations:active"

// StationCache stores the active station list in Redis.
type StationCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewStationCache connects to url and verifies the connection.
func NewStationCache(url string, ttl time.Duration) (*StationCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("station cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("station cache: connect redis: %w", err)
	}
	return NewStationCacheWithClient(client, ttl), nil
}

// NewStationCacheWithClient wraps an existing client.
func NewStationCacheWithClient(client *redis.Client, ttl time.Duration) *StationCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StationCache{client: client, key: defaultStationListKey, ttl: ttl}
}

// GetStations returns the cached list or masterdata.ErrCacheMiss.
func (c *StationCache) GetStations(ctx context.Context) ([]masterdata.Station, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, masterdata.ErrCacheMiss
		}
		return nil, err
	}
	var stations []masterdata.Station
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, fmt.Errorf("station cache: decode: %w", err)
	}
	return stations, nil
}

// SetStations replaces the cached list.
func (c *StationCache) SetStations(ctx context.Context, stations []masterdata.Station) error {
	raw, err := json.Marshal(stations)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, raw, c.ttl).Err()
}

// Invalidate drops the cached list.
func (c *StationCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// Ping checks the connection.
func (c *StationCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *StationCache) Close() error {
	return c.client.Close()
}

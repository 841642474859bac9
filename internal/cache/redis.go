package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kargin-dv/skyfare/config"
	"github.com/kargin-dv/skyfare/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return NewRedisCacheFromClient(client, searchTTL)
}

func NewRedisCacheFromClient(client *redis.Client, searchTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, searchTTL: searchTTL}
}

// GetSearch returns the cached result set for a search key, or nil on a miss.
func (c *RedisCache) GetSearch(ctx context.Context, key string) ([]domain.FlightQuote, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var quotes []domain.FlightQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, key string, quotes []domain.FlightQuote) error {
	payload, err := json.Marshal(quotes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.searchTTL).Err()
}

// AcquireBookingLock takes a short-lived lock on a (flight, seat class) pool
// ahead of the ledger transaction, so contending bookings fail fast instead
// of queueing on the database row lock.
func (c *RedisCache) AcquireBookingLock(ctx context.Context, flightID int64, class domain.SeatClass, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, bookingLockKey(flightID, class), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseBookingLock(ctx context.Context, flightID int64, class domain.SeatClass) error {
	return c.client.Del(ctx, bookingLockKey(flightID, class)).Err()
}

// SearchKey builds the cache key for one search query.
func SearchKey(origin, destination, date string, class domain.SeatClass, sortBy string) string {
	return fmt.Sprintf("cache:search:%s:%s:%s:%s:%s", origin, destination, date, class, sortBy)
}

func bookingLockKey(flightID int64, class domain.SeatClass) string {
	return fmt.Sprintf("lock:flight:%d:class:%s", flightID, class)
}

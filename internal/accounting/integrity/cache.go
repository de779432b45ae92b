package integrity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const latestReportKey = "gl:integrity:latest"

// ErrNoReport indicates no run has been cached yet.
var ErrNoReport = errors.New("integrity: no report available")

// Cache keeps the latest report in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Save(ctx context.Context, report Report) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestReportKey, raw, c.ttl).Err()
}

func (c *Cache) Latest(ctx context.Context) (Report, error) {
	if c == nil || c.client == nil {
		return Report{}, ErrNoReport
	}
	raw, err := c.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, ErrNoReport
	}
	if err != nil {
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, err
	}
	return report, nil
}

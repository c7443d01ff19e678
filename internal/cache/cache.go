// Package cache keeps computed sales reports in Redis.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/xenking/promo-pricing/internal/domain/sales"
)

const (
	reportKey     = "pricing:sales:report"
	generationKey = reportKey + ":gen"
)

// setIfGeneration stores ARGV[2] under KEYS[1] only while KEYS[2] still holds
// generation ARGV[1]. A missing generation key is generation 0.
var setIfGeneration = redis.NewScript(`
local gen = tonumber(redis.call('GET', KEYS[2]) or '0')
if gen ~= tonumber(ARGV[1]) then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

var _ sales.Cache = (*SalesReport)(nil)

// SalesReport implements sales.Cache on a Redis key with a TTL and a
// generation counter bumped by every invalidation.
type SalesReport struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, opts Options) (*SalesReport, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect redis at %s", opts.Addr)
	}
	return NewSalesReport(client, opts.TTL), nil
}

// NewSalesReport wraps an existing client.
func NewSalesReport(client *redis.Client, ttl time.Duration) *SalesReport {
	return &SalesReport{client: client, key: reportKey, genKey: generationKey, ttl: ttl}
}

// Ping checks the connection.
func (c *SalesReport) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *SalesReport) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

type cachedRow struct {
	Currency          string          `json:"currency"`
	TotalRegularPrice decimal.Decimal `json:"totalRegularPrice"`
	TotalDiscount     decimal.Decimal `json:"totalDiscount"`
	PurchaseCount     int64           `json:"purchaseCount"`
}

// Get returns the cached report. A missing key is not an error.
func (c *SalesReport) Get(ctx context.Context) ([]sales.Row, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "getting key %s", c.key)
	}

	var cached []cachedRow
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, errors.Wrapf(err, "unmarshaling key %s", c.key)
	}

	rows := make([]sales.Row, len(cached))
	for i, r := range cached {
		rows[i] = sales.Row(r)
	}
	return rows, true, nil
}

// Generation returns the current report generation, 0 if none was recorded.
func (c *SalesReport) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "getting key %s", c.genKey)
	}
	return gen, nil
}

// Set stores rows under the report key with the configured TTL, unless the
// report was invalidated after generation gen was read.
func (c *SalesReport) Set(ctx context.Context, gen int64, rows []sales.Row) error {
	cached := make([]cachedRow, len(rows))
	for i, r := range rows {
		cached[i] = cachedRow(r)
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return errors.Wrap(err, "marshaling report")
	}
	keys := []string{c.key, c.genKey}
	if err := setIfGeneration.Run(ctx, c.client, keys, gen, data, c.ttl.Milliseconds()).Err(); err != nil {
		return errors.Wrapf(err, "setting key %s", c.key)
	}
	return nil
}

// Invalidate removes the cached report and bumps the generation in one
// transaction.
func (c *SalesReport) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "invalidating key %s", c.key)
	}
	return nil
}

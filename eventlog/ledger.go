// Package eventlog remembers which payment webhook events were processed.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL covers Stripe's three-day redelivery window.
const DefaultTTL = 72 * time.Hour

// Ledger records processed event ids.
type Ledger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisLedger stores one key per event id with a TTL.
type RedisLedger struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLedger parses a redis:// URL and pings the server.
func NewRedisLedger(ctx context.Context, redisURL string, ttl time.Duration) (*RedisLedger, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	opts.MinRetryBackoff = 3 * time.Second
	opts.MaxRetryBackoff = 5 * time.Second
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{rdb: rdb, ttl: ttl, prefix: "stripe:event:"}, nil
}

func (l *RedisLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) Mark(ctx context.Context, eventID string) error {
	return l.rdb.Set(ctx, l.prefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}

func (l *RedisLedger) Close() error {
	return l.rdb.Close()
}

// MemoryLedger is an in-process Ledger without expiry.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (m *MemoryLedger) Seen(_ context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[eventID]
	return ok, nil
}

func (m *MemoryLedger) Mark(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[eventID] = struct{}{}
	return nil
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "busticket:webhook:"
	DefaultTTL = 24 * time.Hour
)

// RedisLedger remembers provider event ids that were already applied.
// A nil ledger or a nil client never reports a duplicate.
type RedisLedger struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{Client: client, TTL: DefaultTTL}
}

func (l *RedisLedger) enabled(eventID string) bool {
	return l != nil && l.Client != nil && eventID != ""
}

// Seen reports whether eventID was remembered before.
func (l *RedisLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	if !l.enabled(eventID) {
		return false, nil
	}
	n, err := l.Client.Exists(ctx, keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("ledger lookup %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Remember stores eventID. It returns false when the id was already stored.
func (l *RedisLedger) Remember(ctx context.Context, eventID string) (bool, error) {
	if !l.enabled(eventID) {
		return true, nil
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	ok, err := l.Client.SetNX(ctx, keyPrefix+eventID, time.Now().UTC().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger store %s: %w", eventID, err)
	}
	return ok, nil
}

package revocation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps revocations in a sorted set: members are token ids, scores
// are the original expiry in unix seconds. Every operation is a single Redis
// command, so readers never see a partial entry.
type RedisLedger struct {
	client *redis.Client
	key    string
}

// NewRedisLedger builds a ledger stored under key.
func NewRedisLedger(client *redis.Client, key string) *RedisLedger {
	return &RedisLedger{client: client, key: key}
}

func (l *RedisLedger) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	member := redis.Z{Score: float64(expiresAt.Unix()), Member: tokenID}
	if err := l.client.ZAddNX(ctx, l.key, member).Err(); err != nil {
		return fmt.Errorf("%w: revoke: %w", ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLedger) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return true, nil
	}
	err := l.client.ZScore(ctx, l.key, tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: lookup: %w", ErrUnavailable, err)
	}
}

func (l *RedisLedger) PruneExpiredBefore(ctx context.Context, now time.Time) (int64, error) {
	// "(" makes the upper bound exclusive: entries expiring exactly now survive.
	upper := "(" + strconv.FormatInt(now.Unix(), 10)
	removed, err := l.client.ZRemRangeByScore(ctx, l.key, "-inf", upper).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: prune: %w", ErrUnavailable, err)
	}
	return removed, nil
}

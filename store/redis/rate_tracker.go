package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/convoke/convoke/store"
)

// rateScript performs prune, count, conditional record and expiry refresh in
// one atomic round trip. KEYS[1] is the endpoint window, ARGV[1] the window
// start, ARGV[2] now, ARGV[3] the RPM limit, ARGV[4] a unique member.
var rateScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[3]) then
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
	redis.call('EXPIRE', KEYS[1], 120)
	return 1
end
return 0
`)

// RateTracker is the shared sliding-window tracker for multi-process
// deployments. Each endpoint's requests live in a sorted set scored by unix
// time; the check-and-increment runs as a single Lua script so concurrent
// callers cannot double-admit past the limit.
type RateTracker struct {
	client *redis.Client
	prefix string
}

// NewRateTracker creates a tracker on an existing client.
func NewRateTracker(client *redis.Client, keyPrefix string) *RateTracker {
	return &RateTracker{client: client, prefix: keyPrefix}
}

func (t *RateTracker) key(endpointID string) string {
	return t.prefix + "rate:" + endpointID
}

// IncrementAndCheck atomically admits the call if the endpoint is under its
// RPM limit within the trailing 60 seconds, recording it on admission.
func (t *RateTracker) IncrementAndCheck(ctx context.Context, endpointID string, rpmLimit int) (bool, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	res, err := rateScript.Run(ctx, t.client,
		[]string{t.key(endpointID)},
		now-60, now, rpmLimit, uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return res == 1, nil
}

// CurrentRPM returns the number of admitted requests in the trailing window.
func (t *RateTracker) CurrentRPM(ctx context.Context, endpointID string) (int, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	key := t.key(endpointID)
	if err := t.client.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%f", now-60)).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	n, err := t.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return int(n), nil
}

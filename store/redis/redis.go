// Package redis provides the Redis-backed implementation of the store
// contract plus the shared sliding-window rate tracker used by the model
// router in multi-process deployments.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/convoke/convoke/store"
)

// Options configures the Redis store connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key written by this store.
	KeyPrefix string
}

// Store implements store.Store on top of go-redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// New creates a Redis store. The connection is lazy; the first call performs
// the dial.
func New(optFns ...func(o *Options)) *Store {
	opts := Options{Addr: "localhost:6379"}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Store{client: client, prefix: opts.KeyPrefix}
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(client *redis.Client, keyPrefix string) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + k
}

func (s *Store) wrap(err error) error {
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

// Set stores a scalar value with an optional TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// Get returns the value and whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(err)
	}
	return v, true, nil
}

// Delete removes a key of any shape.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// Exists reports whether the key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, s.wrap(err)
	}
	return n > 0, nil
}

// ListPush appends values to the tail of a list.
func (s *Store) ListPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := s.client.RPush(ctx, s.key(key), args...).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// ListRange returns list entries from start to stop inclusive.
func (s *Store) ListRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	out, err := s.client.LRange(ctx, s.key(key), start, stop).Result()
	if err != nil {
		return nil, s.wrap(err)
	}
	return out, nil
}

// ListTrim keeps only entries from start to stop inclusive.
func (s *Store) ListTrim(ctx context.Context, key string, start, stop int64) error {
	if err := s.client.LTrim(ctx, s.key(key), start, stop).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// SetAdd adds members to an unordered set.
func (s *Store) SetAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SAdd(ctx, s.key(key), args...).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// SetMembers returns all members of a set.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	out, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, s.wrap(err)
	}
	return out, nil
}

// SetRemove removes members from a set.
func (s *Store) SetRemove(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, s.key(key), args...).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// HashSet stores fields of a hash.
func (s *Store) HashSet(ctx context.Context, key string, fields map[string]string) error {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	if err := s.client.HSet(ctx, s.key(key), args...).Err(); err != nil {
		return s.wrap(err)
	}
	return nil
}

// HashGetAll returns all fields of a hash.
func (s *Store) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	out, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, s.wrap(err)
	}
	return out, nil
}

// HashGet returns one field and whether it exists.
func (s *Store) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, s.key(key), field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(err)
	}
	return v, true, nil
}

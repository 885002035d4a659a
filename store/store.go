package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the backing store could not serve the call.
// Implementations wrap it so callers can match with errors.Is and degrade
// instead of failing the turn.
var ErrUnavailable = errors.New("store unavailable")

// Store is the persistence contract for the orchestration engine. Values are
// JSON documents encoded as strings; the engine owns (de)serialization.
type Store interface {
	// Set stores a scalar value. A ttl of zero means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Delete removes a key of any shape.
	Delete(ctx context.Context, key string) error
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ListPush appends values to the tail of a list.
	ListPush(ctx context.Context, key string, values ...string) error
	// ListRange returns list entries from start to stop inclusive.
	// Negative indices count from the tail, -1 being the last entry.
	ListRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// ListTrim keeps only entries from start to stop inclusive.
	ListTrim(ctx context.Context, key string, start, stop int64) error

	// SetAdd adds members to an unordered set.
	SetAdd(ctx context.Context, key string, members ...string) error
	// SetMembers returns all members of a set.
	SetMembers(ctx context.Context, key string) ([]string, error)
	// SetRemove removes members from a set.
	SetRemove(ctx context.Context, key string, members ...string) error

	// HashSet stores fields of a hash.
	HashSet(ctx context.Context, key string, fields map[string]string) error
	// HashGetAll returns all fields of a hash.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	// HashGet returns one field and whether it exists.
	HashGet(ctx context.Context, key, field string) (string, bool, error)
}

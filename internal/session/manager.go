package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GeneralMarshal/postgres-auth/internal/domain"
)

// ErrStoreUnavailable wraps any Redis transport failure. Callers in the
// request path treat it as "no session" (fail closed) but log it apart
// from an ordinary miss.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Manager owns the session records mirrored 1:1 with issued tokens,
// keyed by `{prefix}{tokenID}`. Record expiry is handled entirely by the
// store's native TTL; there is no sweep in this service.
type Manager struct {
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

// NewManager builds a manager over the given client.
func NewManager(client *redis.Client, keyPrefix string, defaultTTL time.Duration) *Manager {
	if keyPrefix == "" {
		keyPrefix = "session:"
	}
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Manager{client: client, keyPrefix: keyPrefix, defaultTTL: defaultTTL}
}

func (m *Manager) key(tokenID string) string {
	return m.keyPrefix + tokenID
}

func (m *Manager) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return m.defaultTTL
	}
	return ttl
}

// Create stores the session record with the given TTL (default when zero).
// An existing record at the same key is overwritten; tokenID collisions are
// a correctness bug given the issuer's entropy, not a race to arbitrate.
func (m *Manager) Create(ctx context.Context, tokenID string, data domain.SessionData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, m.key(tokenID), payload, m.ttlOrDefault(ttl)).Err(); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Exists reports whether a live record backs the tokenID. This runs on
// every authenticated request, so it only tests key presence and never
// deserializes the value.
func (m *Manager) Exists(ctx context.Context, tokenID string) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(tokenID)).Result()
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return n > 0, nil
}

// Get returns the parsed session record, or nil when the key is absent.
// An unparseable value is treated the same as absent.
func (m *Manager) Get(ctx context.Context, tokenID string) (*domain.SessionData, error) {
	raw, err := m.client.Get(ctx, m.key(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, wrapStoreErr(err)
	}

	var data domain.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil
	}
	return &data, nil
}

// Delete removes the record, revoking the paired token immediately.
// Deleting a missing key is not an error.
func (m *Manager) Delete(ctx context.Context, tokenID string) error {
	if err := m.client.Del(ctx, m.key(tokenID)).Err(); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Refresh extends the record's TTL without touching its value. Used for
// sliding expiration; a no-op when the key no longer exists.
func (m *Manager) Refresh(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := m.client.Expire(ctx, m.key(tokenID), m.ttlOrDefault(ttl)).Err(); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func wrapStoreErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

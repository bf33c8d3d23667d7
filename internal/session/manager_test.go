package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GeneralMarshal/postgres-auth/internal/domain"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewManager(client, "session:", time.Hour), mr
}

func testSessionData() domain.SessionData {
	role := domain.RoleUser
	return domain.SessionData{
		UserID:    "u1",
		Email:     "a@b.com",
		Role:      &role,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGet(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "tok-1", testSessionData(), 30*time.Minute))

	got, err := m.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "a@b.com", got.Email)
	require.NotNil(t, got.Role)
	assert.Equal(t, domain.RoleUser, *got.Role)

	ttl := mr.TTL("session:tok-1")
	assert.InDelta(t, 30*time.Minute, ttl, float64(time.Minute))
}

func TestCreateDefaultTTL(t *testing.T) {
	m, mr := newTestManager(t)

	require.NoError(t, m.Create(context.Background(), "tok-1", testSessionData(), 0))
	assert.InDelta(t, time.Hour, mr.TTL("session:tok-1"), float64(time.Minute))
}

func TestExists(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	alive, err := m.Exists(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, alive)

	require.NoError(t, m.Create(ctx, "tok-1", testSessionData(), time.Minute))

	alive, err = m.Exists(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, alive)

	// Native store expiry revokes without any explicit delete.
	mr.FastForward(2 * time.Minute)

	alive, err = m.Exists(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestGetAbsentAndCorrupt(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	got, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Corrupt data reads as absent: fail closed.
	require.NoError(t, mr.Set("session:corrupt", "{not json"))
	got, err = m.Get(ctx, "corrupt")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "tok-1", testSessionData(), time.Minute))

	require.NoError(t, m.Delete(ctx, "tok-1"))
	require.NoError(t, m.Delete(ctx, "tok-1"))

	alive, err := m.Exists(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestRefreshExtendsTTL(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.Create(ctx, "tok-1", testSessionData(), time.Minute))
	require.NoError(t, m.Refresh(ctx, "tok-1", 10*time.Minute))

	assert.InDelta(t, 10*time.Minute, mr.TTL("session:tok-1"), float64(time.Minute))

	got, err := m.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}

func TestStoreUnavailable(t *testing.T) {
	m, mr := newTestManager(t)
	mr.Close()

	_, err := m.Exists(context.Background(), "tok-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = m.Create(context.Background(), "tok-1", testSessionData(), time.Minute)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
	"github.com/jrsteele09/go-token-service/revocation"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *revocation.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, revocation.NewRedisStore(client)
}

func TestRedisRecordAndGet(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	rec := &revocation.RefreshRecord{
		TokenID:   "tok-1",
		FamilyID:  "fam-1",
		Subject:   "user-1",
		Roles:     []string{"admin", "user"},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, store.Record(ctx, rec))

	got, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.Equal(t, "fam-1", got.FamilyID)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, []string{"admin", "user"}, got.Roles)
	require.Equal(t, now.Unix(), got.IssuedAt.Unix())
	require.False(t, got.Revoked)

	_, err = store.Get(ctx, "missing")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func TestRedisConsumeSemantics(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	_, err := store.Consume(ctx, "missing")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))

	rec, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, rec.Revoked)
	require.Equal(t, "fam-1", rec.FamilyID)
	require.Equal(t, "user-1", rec.Subject)

	rec, err = store.Consume(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrRevoked)
	require.NotNil(t, rec)
	require.Equal(t, "fam-1", rec.FamilyID)

	revoked, err := store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "missing")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRedisConsumeExpired(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := newRecord("tok-1", "fam-1", now)
	rec.ExpiresAt = now.Add(time.Minute)
	require.NoError(t, store.Record(ctx, rec))

	mr.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrNotFound, "redis expires the key itself")
}

func TestRedisRevokeFamily(t *testing.T) {
	_, store := setupRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))
	require.NoError(t, store.Record(ctx, newRecord("tok-2", "fam-1", now)))
	require.NoError(t, store.Record(ctx, newRecord("tok-3", "fam-2", now)))

	require.NoError(t, store.RevokeFamily(ctx, "fam-1"))

	for _, tokenID := range []string{"tok-1", "tok-2"} {
		_, err := store.Consume(ctx, tokenID)
		require.ErrorIs(t, err, autherrors.ErrRevoked, "token %s", tokenID)
	}

	_, err := store.Consume(ctx, "tok-3")
	require.NoError(t, err)
}

func TestRedisAccessBlacklist(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()

	require.False(t, store.IsAccessRevoked("jti-1"))

	require.NoError(t, store.BlacklistAccess(ctx, "jti-1", time.Now().Add(time.Minute)))
	require.True(t, store.IsAccessRevoked("jti-1"))

	mr.FastForward(2 * time.Minute)
	require.False(t, store.IsAccessRevoked("jti-1"))
}

func TestRedisUnavailableSurfacesRetryableError(t *testing.T) {
	mr, store := setupRedisStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))
	mr.Close()

	_, err := store.Consume(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrUnavailable)

	err = store.Record(ctx, newRecord("tok-2", "fam-1", now))
	require.ErrorIs(t, err, autherrors.ErrUnavailable)

	// The validation path fails open rather than blocking.
	require.False(t, store.IsAccessRevoked("jti-1"))
}

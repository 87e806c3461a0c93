package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
	"github.com/jrsteele09/go-token-service/revocation"
)

func newRecord(tokenID, familyID string, now time.Time) *revocation.RefreshRecord {
	return &revocation.RefreshRecord{
		TokenID:   tokenID,
		FamilyID:  familyID,
		Subject:   "user-1",
		Roles:     []string{"user"},
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestInMemoryConsumeSemantics(t *testing.T) {
	now := time.Now()
	store := revocation.NewInMemoryStore(revocation.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	_, err := store.Consume(ctx, "missing")
	require.ErrorIs(t, err, autherrors.ErrNotFound)

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))

	revoked, err := store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, revoked)

	rec, err := store.Consume(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, rec.Revoked)
	require.Equal(t, "fam-1", rec.FamilyID)

	rec, err = store.Consume(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrRevoked)
	require.NotNil(t, rec, "reuse detection needs the family id")
	require.Equal(t, "fam-1", rec.FamilyID)

	revoked, err = store.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "missing")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestInMemoryConsumeExpired(t *testing.T) {
	now := time.Now()
	store := revocation.NewInMemoryStore(revocation.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))

	now = now.Add(time.Hour + time.Second)
	_, err := store.Consume(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrExpired)

	// Expired records are dropped lazily.
	_, err = store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

func TestInMemoryRevokeFamily(t *testing.T) {
	now := time.Now()
	store := revocation.NewInMemoryStore(revocation.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))
	require.NoError(t, store.Record(ctx, newRecord("tok-2", "fam-1", now)))
	require.NoError(t, store.Record(ctx, newRecord("tok-3", "fam-2", now)))

	require.NoError(t, store.RevokeFamily(ctx, "fam-1"))

	for _, tokenID := range []string{"tok-1", "tok-2"} {
		_, err := store.Consume(ctx, tokenID)
		require.ErrorIs(t, err, autherrors.ErrRevoked, "token %s", tokenID)
	}

	_, err := store.Consume(ctx, "tok-3")
	require.NoError(t, err, "other families are untouched")
}

func TestInMemoryAccessBlacklistExpiresLazily(t *testing.T) {
	now := time.Now()
	store := revocation.NewInMemoryStore(revocation.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.False(t, store.IsAccessRevoked("jti-1"))

	require.NoError(t, store.BlacklistAccess(ctx, "jti-1", now.Add(time.Minute)))
	require.True(t, store.IsAccessRevoked("jti-1"))

	now = now.Add(2 * time.Minute)
	require.False(t, store.IsAccessRevoked("jti-1"))
}

func TestInMemoryCleanupDropsExpiredEntries(t *testing.T) {
	now := time.Now()
	store := revocation.NewInMemoryStore(revocation.WithNowFunc(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, newRecord("tok-1", "fam-1", now)))
	require.NoError(t, store.BlacklistAccess(ctx, "jti-1", now.Add(time.Minute)))

	now = now.Add(2 * time.Hour)
	require.NoError(t, store.Cleanup(ctx))

	_, err := store.Get(ctx, "tok-1")
	require.ErrorIs(t, err, autherrors.ErrNotFound)
}

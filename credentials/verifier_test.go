package credentials_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-token-service/credentials"
	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
)

const (
	testIdentifier = "john.doe@example.com"
	testSecret     = "password123"
	testSubject    = "user-1"
	maxAttempts    = 3
	lockoutWindow  = 15 * time.Minute
)

type verifierFixture struct {
	now      time.Time
	repo     *credentials.InMemoryRepo
	verifier *credentials.Verifier
}

func setupVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()

	f := &verifierFixture{now: time.Now()}
	f.repo = credentials.NewInMemoryRepo()

	hash, err := credentials.HashSecret(testSecret)
	require.NoError(t, err)
	require.NoError(t, f.repo.Upsert(context.Background(), &credentials.Credential{
		Identifier: testIdentifier,
		SecretHash: hash,
		Subject:    testSubject,
		Roles:      []string{"user"},
	}))

	tracker := credentials.NewInMemoryAttemptTracker(lockoutWindow,
		credentials.WithTrackerNowFunc(func() time.Time { return f.now }))

	f.verifier, err = credentials.NewVerifier(f.repo, tracker, credentials.LockoutPolicy{
		MaxAttempts: maxAttempts,
		Window:      lockoutWindow,
	})
	require.NoError(t, err)
	return f
}

func TestVerifyReturnsIdentityForValidCredentials(t *testing.T) {
	f := setupVerifierFixture(t)

	identity, err := f.verifier.Verify(context.Background(), testIdentifier, testSecret)
	require.NoError(t, err)
	require.Equal(t, testSubject, identity.Subject)
	require.Equal(t, []string{"user"}, identity.Roles)
}

func TestVerifyFailsWithInvalidCredentials(t *testing.T) {
	f := setupVerifierFixture(t)
	ctx := context.Background()

	_, err := f.verifier.Verify(ctx, testIdentifier, "wrong-password")
	require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)

	// Unknown identifiers fail the same way, no enumeration.
	_, err = f.verifier.Verify(ctx, "nobody@example.com", testSecret)
	require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
}

func TestVerifyFailsForDisabledCredential(t *testing.T) {
	f := setupVerifierFixture(t)
	ctx := context.Background()

	hash, err := credentials.HashSecret(testSecret)
	require.NoError(t, err)
	require.NoError(t, f.repo.Upsert(ctx, &credentials.Credential{
		Identifier: "disabled@example.com",
		SecretHash: hash,
		Subject:    "user-2",
		Disabled:   true,
	}))

	_, err = f.verifier.Verify(ctx, "disabled@example.com", testSecret)
	require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
}

func TestVerifyLocksAccountAfterMaxAttempts(t *testing.T) {
	f := setupVerifierFixture(t)
	ctx := context.Background()

	for i := 0; i < maxAttempts; i++ {
		_, err := f.verifier.Verify(ctx, testIdentifier, "wrong-password")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials, "attempt %d", i+1)
	}

	// Locked now, even with the correct secret.
	_, err := f.verifier.Verify(ctx, testIdentifier, testSecret)
	require.ErrorIs(t, err, autherrors.ErrAccountLocked)

	// The lock clears once the window elapses.
	f.now = f.now.Add(lockoutWindow + time.Second)
	identity, err := f.verifier.Verify(ctx, testIdentifier, testSecret)
	require.NoError(t, err)
	require.Equal(t, testSubject, identity.Subject)
}

func TestVerifySuccessResetsFailureCount(t *testing.T) {
	f := setupVerifierFixture(t)
	ctx := context.Background()

	for i := 0; i < maxAttempts-1; i++ {
		_, err := f.verifier.Verify(ctx, testIdentifier, "wrong-password")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
	}

	_, err := f.verifier.Verify(ctx, testIdentifier, testSecret)
	require.NoError(t, err)

	// The counter restarted, so the next failure is attempt one again.
	for i := 0; i < maxAttempts-1; i++ {
		_, err = f.verifier.Verify(ctx, testIdentifier, "wrong-password")
		require.ErrorIs(t, err, autherrors.ErrInvalidCredentials)
	}
	_, err = f.verifier.Verify(ctx, testIdentifier, testSecret)
	require.NoError(t, err)
}

func TestRedisAttemptTrackerLockoutWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker := credentials.NewRedisAttemptTracker(client, lockoutWindow)
	ctx := context.Background()

	count, err := tracker.Failures(ctx, testIdentifier)
	require.NoError(t, err)
	require.Zero(t, count)

	for i := 1; i <= maxAttempts; i++ {
		count, err = tracker.RecordFailure(ctx, testIdentifier)
		require.NoError(t, err)
		require.Equal(t, i, count)
	}

	// The counter resets itself when the window's TTL elapses.
	mr.FastForward(lockoutWindow + time.Second)
	count, err = tracker.Failures(ctx, testIdentifier)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = tracker.RecordFailure(ctx, testIdentifier)
	require.NoError(t, err)
	require.NoError(t, tracker.Reset(ctx, testIdentifier))
	count, err = tracker.Failures(ctx, testIdentifier)
	require.NoError(t, err)
	require.Zero(t, count)
}

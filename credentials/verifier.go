package credentials

import (
	"context"

	"github.com/pkg/errors"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
	"github.com/jrsteele09/go-token-service/token"
)

// Verifier checks submitted credentials against the stored record and
// enforces the lockout policy. The lockout check runs before the secret
// comparison, so a locked account rejects even correct credentials until
// the window elapses.
type Verifier struct {
	repo     Repo
	attempts AttemptTracker
	policy   LockoutPolicy
}

func NewVerifier(repo Repo, attempts AttemptTracker, policy LockoutPolicy) (*Verifier, error) {
	if repo == nil {
		return nil, errors.New("[NewVerifier] credential repo is required")
	}
	if attempts == nil {
		return nil, errors.New("[NewVerifier] attempt tracker is required")
	}
	if policy.MaxAttempts <= 0 || policy.Window <= 0 {
		return nil, errors.New("[NewVerifier] lockout policy requires positive MaxAttempts and Window")
	}

	return &Verifier{
		repo:     repo,
		attempts: attempts,
		policy:   policy,
	}, nil
}

// Verify returns the identity bound to the credential, or
// ErrInvalidCredentials / ErrAccountLocked. Unknown identifiers take the
// same failure path as a wrong secret.
func (v *Verifier) Verify(ctx context.Context, identifier, secret string) (*token.Identity, error) {
	failures, err := v.attempts.Failures(ctx, identifier)
	if err != nil {
		return nil, errors.Wrap(err, "Verifier.Verify Failures")
	}
	if failures >= v.policy.MaxAttempts {
		return nil, autherrors.ErrAccountLocked
	}

	cred, err := v.repo.GetByIdentifier(ctx, identifier)
	if err != nil || cred == nil || cred.Disabled {
		return nil, v.recordFailure(ctx, identifier)
	}

	if !CheckSecretHash(secret, cred.SecretHash) {
		return nil, v.recordFailure(ctx, identifier)
	}

	if err := v.attempts.Reset(ctx, identifier); err != nil {
		return nil, errors.Wrap(err, "Verifier.Verify Reset")
	}

	return &token.Identity{
		Subject: cred.Subject,
		Roles:   cred.Roles,
	}, nil
}

func (v *Verifier) recordFailure(ctx context.Context, identifier string) error {
	if _, err := v.attempts.RecordFailure(ctx, identifier); err != nil {
		return errors.Wrap(err, "Verifier.Verify RecordFailure")
	}
	return autherrors.ErrInvalidCredentials
}

// Package refresh coordinates refresh-token rotation: each token is
// consumed exactly once, and reuse of a consumed token revokes its whole
// family on the assumption the token was stolen.
package refresh

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
	"github.com/jrsteele09/go-token-service/revocation"
	"github.com/jrsteele09/go-token-service/token"
)

// Manager exchanges a live refresh token for a new token pair and handles
// logout. The exactly-once guarantee lives in Store.Consume; the manager
// adds the reuse response and re-issuance.
type Manager struct {
	issuer *token.Issuer
	store  revocation.Store
}

func New(issuer *token.Issuer, store revocation.Store) *Manager {
	return &Manager{
		issuer: issuer,
		store:  store,
	}
}

// Rotate consumes the presented refresh token and issues a fresh pair in
// the same family. Concurrent rotations of one token yield exactly one
// success; every other caller receives ErrRevoked.
//
// A token that was already consumed is treated as stolen: the entire
// family is revoked before the caller sees the failure.
func (m *Manager) Rotate(ctx context.Context, refreshToken string) (*token.TokenPair, error) {
	tokenID := token.RefreshTokenID(refreshToken)

	rec, err := m.store.Consume(ctx, tokenID)
	switch {
	case err == nil:
		// consumed below
	case autherrors.Is(err, autherrors.ErrRevoked):
		m.containReuse(ctx, rec)
		return nil, autherrors.ErrRevoked
	case autherrors.Is(err, autherrors.ErrNotFound),
		autherrors.Is(err, autherrors.ErrExpired),
		autherrors.Is(err, autherrors.ErrUnavailable):
		return nil, err
	default:
		return nil, errors.Wrap(err, "Manager.Rotate Consume")
	}

	identity := &token.Identity{Subject: rec.Subject, Roles: rec.Roles}
	pair, err := m.issuer.IssueInFamily(ctx, identity, rec.FamilyID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Rotate IssueInFamily")
	}
	return pair, nil
}

// Logout revokes the family of the presented refresh token. Idempotent:
// unknown and already-revoked tokens are not an error.
func (m *Manager) Logout(ctx context.Context, refreshToken string) error {
	rec, err := m.store.Get(ctx, token.RefreshTokenID(refreshToken))
	switch {
	case autherrors.Is(err, autherrors.ErrNotFound):
		return nil
	case err != nil:
		return errors.Wrap(err, "Manager.Logout Get")
	}

	if err := m.store.RevokeFamily(ctx, rec.FamilyID); err != nil {
		return errors.Wrap(err, "Manager.Logout RevokeFamily")
	}
	return nil
}

// BlacklistAccess revokes a still-valid access token by its jti, for
// logout-before-expiry. Invalid tokens are ignored: an unverifiable or
// expired token cannot be used anyway.
func (m *Manager) BlacklistAccess(ctx context.Context, validator *token.Validator, rawAccessToken string) error {
	info, err := validator.Introspect(rawAccessToken)
	if err != nil || info.TokenID == "" {
		return nil
	}
	if err := m.store.BlacklistAccess(ctx, info.TokenID, time.Unix(info.ExpiresAt, 0)); err != nil {
		return errors.Wrap(err, "Manager.BlacklistAccess")
	}
	return nil
}

// containReuse revokes the whole family after a consumed token was
// presented again.
func (m *Manager) containReuse(ctx context.Context, rec *revocation.RefreshRecord) {
	if rec == nil {
		return
	}
	log.Warn().
		Str("family_id", rec.FamilyID).
		Str("subject", rec.Subject).
		Msg("refresh token reuse detected, revoking token family")

	if err := m.store.RevokeFamily(ctx, rec.FamilyID); err != nil {
		log.Error().Err(err).Str("family_id", rec.FamilyID).Msg("failed to revoke token family")
	}
}

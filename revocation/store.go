// Package revocation tracks the server-side state of refresh tokens and
// blacklisted access-token ids. Refresh tokens are grouped into families
// (the rotation lineage of one login); at most one token per family is
// live at any time.
package revocation

import (
	"context"
	"time"
)

// RefreshRecord is the stored state of one refresh token. The opaque token
// value itself is never stored, only its derived id.
type RefreshRecord struct {
	TokenID   string    `json:"token_id"`
	FamilyID  string    `json:"family_id"`
	Subject   string    `json:"subject"`
	Roles     []string  `json:"roles,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Store persists refresh-token records and the access-token blacklist.
//
// Consume is the one operation with a strict consistency requirement: it
// atomically marks the record revoked and returns its prior state. For a
// record that is already revoked it returns the record together with
// errors.ErrRevoked so the caller can see the family id and contain reuse.
// Expired records yield errors.ErrExpired, unknown ids errors.ErrNotFound,
// and backend failures errors.ErrUnavailable.
type Store interface {
	// Record stores a new, unrevoked refresh record and indexes it under
	// its family.
	Record(ctx context.Context, rec *RefreshRecord) error

	// Consume atomically marks the record revoked. Exactly one concurrent
	// caller per token id succeeds; the rest observe ErrRevoked.
	Consume(ctx context.Context, tokenID string) (*RefreshRecord, error)

	// Get returns the record without mutating it. Used by logout, which
	// must resolve the family of an already-revoked token.
	Get(ctx context.Context, tokenID string) (*RefreshRecord, error)

	// IsRevoked reports whether the record exists and has been revoked.
	// Unknown and expired ids read as false.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// RevokeFamily marks every record in the family revoked.
	RevokeFamily(ctx context.Context, familyID string) error

	// BlacklistAccess records an access-token id until its expiry, for
	// logout-before-expiry.
	BlacklistAccess(ctx context.Context, jti string, exp time.Time) error

	// IsAccessRevoked reports whether an access-token id is blacklisted.
	// It runs on every protected request and never blocks beyond the
	// store's bounded timeout; an unreachable backend reads as false.
	IsAccessRevoked(jti string) bool

	// Cleanup drops expired records and blacklist entries.
	Cleanup(ctx context.Context) error
}

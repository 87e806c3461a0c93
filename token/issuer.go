package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-token-service/revocation"
)

// Issuer mints access/refresh token pairs for verified identities. Access
// tokens are signed with the keyring's active key; refresh tokens are
// opaque values recorded server-side under a token family.
type Issuer struct {
	keyring            *Keyring
	store              revocation.Store
	issuer             string
	audience           string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	nowFunc            func() time.Time
}

type IssuerOption func(*Issuer)

func WithTokenExpiry(accessTokenExpiry time.Duration, refreshTokenExpiry time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.accessTokenExpiry = accessTokenExpiry
		i.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

func WithIssuer(issuer string) IssuerOption {
	return func(i *Issuer) {
		i.issuer = issuer
	}
}

func WithAudience(audience string) IssuerOption {
	return func(i *Issuer) {
		i.audience = audience
	}
}

func NewIssuer(keyring *Keyring, store revocation.Store, options ...IssuerOption) *Issuer {
	i := &Issuer{
		keyring: keyring,
		store:   store,
	}

	for _, opt := range options {
		opt(i)
	}

	if i.accessTokenExpiry == 0 {
		i.accessTokenExpiry = 5 * time.Minute
	}
	if i.refreshTokenExpiry == 0 {
		i.refreshTokenExpiry = 24 * time.Hour
	}
	if i.nowFunc == nil {
		i.nowFunc = time.Now
	}
	return i
}

// Issue mints a token pair for a fresh login, starting a new token family.
func (i *Issuer) Issue(ctx context.Context, identity *Identity) (*TokenPair, error) {
	return i.IssueInFamily(ctx, identity, uuid.New().String())
}

// IssueInFamily mints a token pair whose refresh token continues an
// existing family. Used by rotation so a stolen-token reuse can be traced
// back to one login session.
func (i *Issuer) IssueInFamily(ctx context.Context, identity *Identity, familyID string) (*TokenPair, error) {
	accessToken, err := i.createAccessToken(identity)
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.IssueInFamily createAccessToken")
	}

	refreshValue, err := NewRefreshTokenValue()
	if err != nil {
		return nil, errors.Wrap(err, "Issuer.IssueInFamily")
	}

	now := i.nowFunc()
	if err := i.store.Record(ctx, &revocation.RefreshRecord{
		TokenID:   RefreshTokenID(refreshValue),
		FamilyID:  familyID,
		Subject:   identity.Subject,
		Roles:     identity.Roles,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.refreshTokenExpiry),
	}); err != nil {
		return nil, errors.Wrap(err, "Issuer.IssueInFamily Record")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshValue,
		TokenType:    "bearer",
		ExpiresIn:    int(i.accessTokenExpiry.Seconds()),
	}, nil
}

func (i *Issuer) createAccessToken(identity *Identity) (string, error) {
	now := i.nowFunc()

	claims := jwt.MapClaims{
		"sub": identity.Subject,                    // The verified subject
		"iat": now.Unix(),                          // Issued At: the time at which the token was issued
		"exp": now.Add(i.accessTokenExpiry).Unix(), // Expiry: when the token will expire
		"jti": uuid.New().String(),                 // Unique token ID for revocation
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	if i.audience != "" {
		claims["aud"] = i.audience
	}
	if len(identity.Roles) > 0 {
		claims["roles"] = identity.Roles
	}

	return i.keyring.Active().Sign(claims)
}

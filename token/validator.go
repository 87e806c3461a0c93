package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/go-token-service/internal/errors"
)

// AccessRevocations is the read-only revocation lookup consulted on every
// validation. Implemented by the revocation stores.
type AccessRevocations interface {
	IsAccessRevoked(jti string) bool
}

// Validator verifies access tokens on the hot path. Validation is
// side-effect-free and safe for unbounded concurrent callers; the only
// shared state is the keyring and the revocation lookup.
type Validator struct {
	keyring  *Keyring
	revoked  AccessRevocations
	issuer   string
	audience string
	nowFunc  func() time.Time
	parser   *jwt.Parser
}

type ValidatorOption func(*Validator)

// WithValidatorNowFunc sets the now time function (primarily for testing)
func WithValidatorNowFunc(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.nowFunc = now
	}
}

// WithExpectedIssuer requires the iss claim to match
func WithExpectedIssuer(issuer string) ValidatorOption {
	return func(v *Validator) {
		v.issuer = issuer
	}
}

// WithExpectedAudience requires the aud claim to contain audience
func WithExpectedAudience(audience string) ValidatorOption {
	return func(v *Validator) {
		v.audience = audience
	}
}

func NewValidator(keyring *Keyring, revoked AccessRevocations, options ...ValidatorOption) *Validator {
	v := &Validator{
		keyring: keyring,
		revoked: revoked,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.nowFunc() }),
	}
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience))
	}
	v.parser = jwt.NewParser(parserOptions...)

	return v
}

// Validate verifies signature, expiry and revocation state of a raw access
// token and reconstructs the identity from its claims.
func (v *Validator) Validate(rawToken string) (*Identity, error) {
	info, err := v.Introspect(rawToken)
	if err != nil {
		return nil, err
	}
	return &info.Identity, nil
}

// Introspect is Validate plus the token metadata (jti, timestamps) needed
// by callers that blacklist tokens on logout.
func (v *Validator) Introspect(rawToken string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	parsed, err := v.parser.ParseWithClaims(rawToken, claims, v.verificationKey)
	if err != nil || !parsed.Valid {
		return nil, classifyParseError(err)
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && v.revoked != nil && v.revoked.IsAccessRevoked(jti) {
		return nil, errors.ErrRevoked
	}

	sub, _ := claims["sub"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	var roles []string
	if claimRoles, ok := claims["roles"].([]interface{}); ok {
		roles = interfaceArrayToString(claimRoles)
	}

	return &TokenInfo{
		Identity:  Identity{Subject: sub, Roles: roles},
		TokenID:   jti,
		IssuedAt:  int64(iat),
		ExpiresAt: int64(exp),
	}, nil
}

func (v *Validator) verificationKey(t *jwt.Token) (any, error) {
	keyID, _ := t.Header["kid"].(string)
	signer, err := v.keyring.SignerFor(keyID)
	if err != nil {
		return nil, err
	}
	return signer.GetVerificationKey(t)
}

// classifyParseError maps golang-jwt parse failures onto the service's
// error kinds. Signature problems are checked after structure, expiry
// after signature, matching the order checks run in.
func classifyParseError(err error) error {
	switch {
	case err == nil:
		return errors.ErrMalformed
	case errors.Is(err, jwt.ErrTokenMalformed):
		return errors.ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrExpired
	default:
		return errors.ErrMalformed
	}
}

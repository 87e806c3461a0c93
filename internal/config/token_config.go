package config

import "time"

type TokenConfig interface {
	GetIssuer() string
	GetAudience() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetSigningSecret() string
	GetSigningKeyID() string
	GetKeyGracePeriod() time.Duration
}

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetIssuer() string {
	return GetEnv("TOKEN_ISSUER", "go-token-service")
}

func (Tokens) GetAudience() string {
	return GetEnv("TOKEN_AUDIENCE", "api")
}

func (Tokens) GetAccessTokenTTL() time.Duration {
	return GetDurationEnv("ACCESS_TOKEN_TTL", 5*time.Minute)
}

func (Tokens) GetRefreshTokenTTL() time.Duration {
	return GetDurationEnv("REFRESH_TOKEN_TTL", 24*time.Hour)
}

// GetSigningSecret returns the HMAC signing secret. Empty means the server
// generates an RSA key pair at startup and serves its public half via JWKS.
func (Tokens) GetSigningSecret() string {
	return GetEnv("SIGNING_SECRET", "")
}

func (Tokens) GetSigningKeyID() string {
	return GetEnv("SIGNING_KEY_ID", "key-1")
}

// GetKeyGracePeriod returns how long tokens signed by a retired key remain
// verifiable after a rotation.
func (Tokens) GetKeyGracePeriod() time.Duration {
	return GetDurationEnv("KEY_GRACE_PERIOD", 10*time.Minute)
}

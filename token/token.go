// Package token mints, validates and represents the credentials issued by
// the service: short-lived signed access tokens and long-lived opaque
// refresh tokens.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/pkg/errors"
)

// Identity is the verified subject carried inside an access token.
// Immutable once issued; validators reconstruct it purely from claims.
type Identity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles,omitempty"`
}

// TokenPair is the response shape of login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// TokenInfo is the introspected state of a verified access token, used for
// blacklisting on logout.
type TokenInfo struct {
	Identity  Identity
	TokenID   string
	IssuedAt  int64
	ExpiresAt int64
}

// NewRefreshTokenValue returns a fresh opaque refresh token: 32 random
// bytes (256 bits), base64url encoded.
func NewRefreshTokenValue() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "token.NewRefreshTokenValue rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

// RefreshTokenID derives the storage id of a refresh token. Only the digest
// is ever persisted, so a leaked store does not leak usable tokens.
func RefreshTokenID(tokenValue string) string {
	sum := sha256.Sum256([]byte(tokenValue))
	return hex.EncodeToString(sum[:])
}

func interfaceArrayToString(iArray []interface{}) []string {
	stringSlice := make([]string, 0)
	for _, v := range iArray {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}

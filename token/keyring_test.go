package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-token-service/token"
)

func TestKeyringSignerForResolvesActiveAndRetired(t *testing.T) {
	now := time.Now()
	keyring := token.NewKeyring(
		token.NewHMACSigner("key-1", "secret-1"),
		token.WithGracePeriod(10*time.Minute),
		token.WithKeyringNowFunc(func() time.Time { return now }),
	)

	signer, err := keyring.SignerFor("key-1")
	require.NoError(t, err)
	require.Equal(t, "key-1", signer.KeyID())

	_, err = keyring.SignerFor("unknown")
	require.Error(t, err)

	keyring.Rotate(token.NewHMACSigner("key-2", "secret-2"))
	require.Equal(t, "key-2", keyring.Active().KeyID())

	signer, err = keyring.SignerFor("key-1")
	require.NoError(t, err)
	require.Equal(t, "key-1", signer.KeyID())

	now = now.Add(11 * time.Minute)
	_, err = keyring.SignerFor("key-1")
	require.Error(t, err)
}

func TestKeyringJWKSExposesAsymmetricPublicKeys(t *testing.T) {
	keyPair, err := token.GenerateRSAKeyPair("rsa-1", 2048)
	require.NoError(t, err)

	keyring := token.NewKeyring(token.NewKeyPairSigner(keyPair))
	jwks, err := keyring.JWKS()
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "rsa-1", jwks.Keys[0].Kid)
	require.Equal(t, "RSA", jwks.Keys[0].Kty)
	require.NotEmpty(t, jwks.Keys[0].N)

	nextPair, err := token.GenerateECDSAKeyPair("ec-1")
	require.NoError(t, err)
	keyring.Rotate(token.NewKeyPairSigner(nextPair))

	jwks, err = keyring.JWKS()
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2)
}

func TestKeyringJWKSOmitsSymmetricKeys(t *testing.T) {
	keyring := token.NewKeyring(token.NewHMACSigner("key-1", "secret-1"))
	jwks, err := keyring.JWKS()
	require.NoError(t, err)
	require.Empty(t, jwks.Keys)
}

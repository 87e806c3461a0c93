package token

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Keyring holds the process-wide signing key state: one active signer plus
// any retired signers still inside their grace period. New tokens are
// always signed with the active key; tokens signed under a retired key
// verify until the grace period elapses, so a rotation never instantly
// invalidates outstanding access tokens.
type Keyring struct {
	mu      sync.RWMutex
	active  Signer
	retired map[string]retiredSigner // keyed by key id
	grace   time.Duration
	nowFunc func() time.Time
}

type retiredSigner struct {
	signer    Signer
	expiresAt time.Time
}

type KeyringOption func(*Keyring)

// WithGracePeriod sets how long retired keys remain valid for verification
func WithGracePeriod(grace time.Duration) KeyringOption {
	return func(k *Keyring) {
		k.grace = grace
	}
}

// WithKeyringNowFunc sets the now time function (primarily for testing)
func WithKeyringNowFunc(now func() time.Time) KeyringOption {
	return func(k *Keyring) {
		k.nowFunc = now
	}
}

func NewKeyring(active Signer, options ...KeyringOption) *Keyring {
	k := &Keyring{
		active:  active,
		retired: make(map[string]retiredSigner),
		grace:   10 * time.Minute,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

// Active returns the signer used for newly issued tokens
func (k *Keyring) Active() Signer {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.active
}

// Rotate installs next as the active signer and retires the previous one
// for the configured grace period. Safe to call while validation is running.
func (k *Keyring) Rotate(next Signer) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.retired[k.active.KeyID()] = retiredSigner{
		signer:    k.active,
		expiresAt: k.nowFunc().Add(k.grace),
	}
	k.active = next
	delete(k.retired, next.KeyID())
}

// SignerFor resolves the signer for a token's key id. Unknown ids and
// retired keys past their grace period fail verification.
func (k *Keyring) SignerFor(keyID string) (Signer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if keyID == k.active.KeyID() {
		return k.active, nil
	}
	if r, ok := k.retired[keyID]; ok && r.expiresAt.After(k.nowFunc()) {
		return r.signer, nil
	}
	return nil, errors.Errorf("no verification key for key id %q", keyID)
}

// JWKS returns the public keys of the active and still-valid retired
// signers. Only asymmetric signers contribute keys.
func (k *Keyring) JWKS() (*JWKS, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	jwks := &JWKS{Keys: make([]JWK, 0)}
	now := k.nowFunc()

	signers := []Signer{k.active}
	for _, r := range k.retired {
		if r.expiresAt.After(now) {
			signers = append(signers, r.signer)
		}
	}

	for _, s := range signers {
		kp, ok := s.(*KeyPairSigner)
		if !ok {
			continue
		}
		jwk, err := kp.JWK()
		if err != nil {
			return nil, errors.Wrap(err, "Keyring.JWKS")
		}
		jwks.Keys = append(jwks.Keys, *jwk)
	}
	return jwks, nil
}

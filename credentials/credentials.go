// Package credentials verifies submitted credentials against stored
// records and enforces the failed-attempt lockout policy.
package credentials

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Credential is a stored credential record. The secret is only ever held
// as a bcrypt hash.
type Credential struct {
	Identifier string    `json:"identifier"`            // Login identifier (email or username)
	SecretHash string    `json:"-"`                     // Hashed secret - never serialize
	Subject    string    `json:"subject"`               // Subject id issued into tokens
	Roles      []string  `json:"roles,omitempty"`       // Roles carried into token claims
	Disabled   bool      `json:"disabled,omitempty"`    // Disabled credentials never verify
	CreatedAt  time.Time `json:"created_at,omitempty"`  // When the record was created
}

// Repo is the collaborator boundary to the persistent credential store.
type Repo interface {
	GetByIdentifier(ctx context.Context, identifier string) (*Credential, error)
	Upsert(ctx context.Context, cred *Credential) error
}

// HashSecret hashes a raw secret for storage
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckSecretHash compares a raw secret against a stored hash in constant
// time
func CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

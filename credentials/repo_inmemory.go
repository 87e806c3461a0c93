package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-token-service/internal/errors"
)

// InMemoryRepo is the process-local credential store: the default for
// development and the fixture for tests. Production deployments satisfy
// Repo against their own user store.
type InMemoryRepo struct {
	mu    sync.RWMutex
	creds map[string]*Credential // keyed by identifier
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		creds: make(map[string]*Credential),
	}
}

func (r *InMemoryRepo) GetByIdentifier(_ context.Context, identifier string) (*Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.creds[identifier]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (r *InMemoryRepo) Upsert(_ context.Context, cred *Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *cred
	if stored.Subject == "" {
		stored.Subject = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.creds[stored.Identifier] = &stored
	return nil
}

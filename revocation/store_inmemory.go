package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-token-service/internal/errors"
)

// InMemoryStore is the process-local Store implementation. Suitable for a
// single-instance deployment and for tests; multi-instance deployments use
// the Redis store.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*RefreshRecord
	families  map[string][]string // familyID -> tokenIDs
	blacklist map[string]time.Time
	nowFunc   func() time.Time
}

type InMemoryStoreOption func(*InMemoryStore)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) InMemoryStoreOption {
	return func(s *InMemoryStore) {
		s.nowFunc = now
	}
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore(options ...InMemoryStoreOption) *InMemoryStore {
	s := &InMemoryStore{
		records:   make(map[string]*RefreshRecord),
		families:  make(map[string][]string),
		blacklist: make(map[string]time.Time),
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Record(_ context.Context, rec *RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *rec
	stored.Revoked = false
	s.records[rec.TokenID] = &stored
	s.families[rec.FamilyID] = append(s.families[rec.FamilyID], rec.TokenID)
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, tokenID string) (*RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tokenID]
	if !ok {
		return nil, errors.ErrNotFound
	}

	if !rec.ExpiresAt.After(s.nowFunc()) {
		s.dropLocked(rec)
		return nil, errors.ErrExpired
	}

	if rec.Revoked {
		cp := *rec
		return &cp, errors.ErrRevoked
	}

	rec.Revoked = true
	cp := *rec
	return &cp, nil
}

func (s *InMemoryStore) Get(_ context.Context, tokenID string) (*RefreshRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[tokenID]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[tokenID]
	if !ok || !rec.ExpiresAt.After(s.nowFunc()) {
		return false, nil
	}
	return rec.Revoked, nil
}

func (s *InMemoryStore) RevokeFamily(_ context.Context, familyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tokenID := range s.families[familyID] {
		if rec, ok := s.records[tokenID]; ok {
			rec.Revoked = true
		}
	}
	return nil
}

func (s *InMemoryStore) BlacklistAccess(_ context.Context, jti string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[jti] = exp
	return nil
}

func (s *InMemoryStore) IsAccessRevoked(jti string) bool {
	s.mu.RLock()
	exp, ok := s.blacklist[jti]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if !exp.After(s.nowFunc()) {
		// Lazy expiry: a blacklist entry past the token's own expiry is
		// redundant, the expiry check rejects the token anyway.
		s.mu.Lock()
		delete(s.blacklist, jti)
		s.mu.Unlock()
		return false
	}
	return true
}

func (s *InMemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	for _, rec := range s.records {
		if !rec.ExpiresAt.After(now) {
			s.dropLocked(rec)
		}
	}
	for jti, exp := range s.blacklist {
		if !exp.After(now) {
			delete(s.blacklist, jti)
		}
	}
	return nil
}

// dropLocked removes a record and its family index entry. Callers hold mu.
func (s *InMemoryStore) dropLocked(rec *RefreshRecord) {
	delete(s.records, rec.TokenID)

	ids := s.families[rec.FamilyID]
	for i, id := range ids {
		if id == rec.TokenID {
			s.families[rec.FamilyID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.families[rec.FamilyID]) == 0 {
		delete(s.families, rec.FamilyID)
	}
}

package revocation

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
)

const (
	consumeNotFound int64 = 0
	consumeExpired  int64 = 1
	consumeRevoked  int64 = 2
	consumeRotated  int64 = 3
)

// consumeScript atomically marks a refresh record revoked and returns its
// prior state, so that exactly one concurrent caller per token id wins.
const consumeScript = `
local exp = redis.call("HGET", KEYS[1], "exp")
if not exp then
  return {0}
end
if tonumber(exp) <= tonumber(ARGV[1]) then
  redis.call("DEL", KEYS[1])
  return {1}
end
local fields = redis.call("HGETALL", KEYS[1])
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return {2, fields}
end
redis.call("HSET", KEYS[1], "revoked", "1")
return {3, fields}
`

// revokeFamilyScript marks every live record of a family revoked.
const revokeFamilyScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call("EXISTS", key) == 1 then
    redis.call("HSET", key, "revoked", "1")
    n = n + 1
  end
end
return n
`

var (
	consumeLua      = redis.NewScript(consumeScript)
	revokeFamilyLua = redis.NewScript(revokeFamilyScript)
)

// RedisStore is the shared Store implementation for multi-instance
// deployments. Record hashes and family sets expire with the refresh TTL,
// so Redis handles garbage collection on its own.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	nowFunc func() time.Time
}

type RedisStoreOption func(*RedisStore)

// WithRedisNowFunc sets the now time function (primarily for testing)
func WithRedisNowFunc(now func() time.Time) RedisStoreOption {
	return func(s *RedisStore) {
		s.nowFunc = now
	}
}

// WithRedisTimeout bounds every store call. Callers receive ErrUnavailable
// rather than blocking on an unreachable backend.
func WithRedisTimeout(timeout time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.timeout = timeout
	}
}

// WithRedisPrefix namespaces all keys, for shared Redis instances.
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, options ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		prefix:  "gts:",
		timeout: 2 * time.Second,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *RedisStore) recordKey(tokenID string) string {
	return s.prefix + "rt:" + tokenID
}

func (s *RedisStore) familyKey(familyID string) string {
	return s.prefix + "fam:" + familyID
}

func (s *RedisStore) blacklistKey(jti string) string {
	return s.prefix + "bl:" + jti
}

func (s *RedisStore) Record(ctx context.Context, rec *RefreshRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	roles, err := json.Marshal(rec.Roles)
	if err != nil {
		return errors.Wrap(err, "RedisStore.Record marshal roles")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := s.recordKey(rec.TokenID)
		pipe.HSet(ctx, key,
			"family", rec.FamilyID,
			"subject", rec.Subject,
			"roles", string(roles),
			"iat", rec.IssuedAt.Unix(),
			"exp", rec.ExpiresAt.Unix(),
			"revoked", "0",
		)
		pipe.ExpireAt(ctx, key, rec.ExpiresAt)
		famKey := s.familyKey(rec.FamilyID)
		pipe.SAdd(ctx, famKey, rec.TokenID)
		pipe.ExpireAt(ctx, famKey, rec.ExpiresAt)
		return nil
	})
	if err != nil {
		return errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.Record: %v", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := consumeLua.Run(ctx, s.client,
		[]string{s.recordKey(tokenID)},
		s.nowFunc().Unix(),
	).Result()
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.Consume: %v", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.Consume: unexpected reply %T", raw)
	}

	status, _ := reply[0].(int64)
	switch status {
	case consumeNotFound:
		return nil, autherrors.ErrNotFound
	case consumeExpired:
		return nil, autherrors.ErrExpired
	}

	rec, err := s.parseRecordReply(tokenID, reply[1])
	if err != nil {
		return nil, err
	}

	if status == consumeRevoked {
		return rec, autherrors.ErrRevoked
	}
	rec.Revoked = true
	return rec, nil
}

func (s *RedisStore) Get(ctx context.Context, tokenID string) (*RefreshRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.recordKey(tokenID)).Result()
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.Get: %v", err)
	}
	if len(fields) == 0 {
		return nil, autherrors.ErrNotFound
	}
	return parseRecordFields(tokenID, fields)
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	revoked, err := s.client.HGet(ctx, s.recordKey(tokenID), "revoked").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.IsRevoked: %v", err)
	}
	return revoked == "1", nil
}

func (s *RedisStore) RevokeFamily(ctx context.Context, familyID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := revokeFamilyLua.Run(ctx, s.client,
		[]string{s.familyKey(familyID)},
		s.prefix+"rt:",
	).Err()
	if err != nil {
		return errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.RevokeFamily: %v", err)
	}
	return nil
}

func (s *RedisStore) BlacklistAccess(ctx context.Context, jti string, exp time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ttl := exp.Sub(s.nowFunc())
	if ttl <= 0 {
		return nil // already expired, the timestamp check rejects it
	}
	if err := s.client.Set(ctx, s.blacklistKey(jti), "1", ttl).Err(); err != nil {
		return errors.Wrapf(autherrors.ErrUnavailable, "RedisStore.BlacklistAccess: %v", err)
	}
	return nil
}

func (s *RedisStore) IsAccessRevoked(jti string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.client.Exists(ctx, s.blacklistKey(jti)).Result()
	if err != nil {
		// Validation stays available during a backend outage; the short
		// access TTL bounds the exposure window.
		return false
	}
	return n > 0
}

func (s *RedisStore) Cleanup(_ context.Context) error {
	// Redis expires records and blacklist entries via key TTLs.
	return nil
}

func (s *RedisStore) parseRecordReply(tokenID string, raw interface{}) (*RefreshRecord, error) {
	flat, ok := raw.([]interface{})
	if !ok || len(flat)%2 != 0 {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore: malformed record reply %T", raw)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return parseRecordFields(tokenID, fields)
}

func parseRecordFields(tokenID string, fields map[string]string) (*RefreshRecord, error) {
	iat, err := strconv.ParseInt(fields["iat"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore: bad iat field: %v", err)
	}
	exp, err := strconv.ParseInt(fields["exp"], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore: bad exp field: %v", err)
	}

	var roles []string
	if fields["roles"] != "" {
		if err := json.Unmarshal([]byte(fields["roles"]), &roles); err != nil {
			return nil, errors.Wrapf(autherrors.ErrUnavailable, "RedisStore: bad roles field: %v", err)
		}
	}

	return &RefreshRecord{
		TokenID:   tokenID,
		FamilyID:  fields["family"],
		Subject:   fields["subject"],
		Roles:     roles,
		IssuedAt:  time.Unix(iat, 0),
		ExpiresAt: time.Unix(exp, 0),
		Revoked:   fields["revoked"] == "1",
	}, nil
}

package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
)

// LockoutPolicy configures the failed-attempt lockout: after MaxAttempts
// consecutive failures within Window, further attempts are rejected until
// the window elapses.
type LockoutPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// AttemptTracker counts consecutive failed attempts per identifier inside
// a rolling window.
type AttemptTracker interface {
	// RecordFailure increments the counter and returns the new count
	RecordFailure(ctx context.Context, identifier string) (int, error)

	// Failures returns the current counter
	Failures(ctx context.Context, identifier string) (int, error)

	// Reset clears the counter after a successful verification
	Reset(ctx context.Context, identifier string) error
}

// InMemoryAttemptTracker is the process-local tracker.
type InMemoryAttemptTracker struct {
	mu      sync.Mutex
	window  time.Duration
	counts  map[string]*attemptWindow
	nowFunc func() time.Time
}

type attemptWindow struct {
	count     int
	expiresAt time.Time
}

type InMemoryAttemptTrackerOption func(*InMemoryAttemptTracker)

// WithTrackerNowFunc sets the now time function (primarily for testing)
func WithTrackerNowFunc(now func() time.Time) InMemoryAttemptTrackerOption {
	return func(t *InMemoryAttemptTracker) {
		t.nowFunc = now
	}
}

var _ AttemptTracker = (*InMemoryAttemptTracker)(nil)

func NewInMemoryAttemptTracker(window time.Duration, options ...InMemoryAttemptTrackerOption) *InMemoryAttemptTracker {
	t := &InMemoryAttemptTracker{
		window:  window,
		counts:  make(map[string]*attemptWindow),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *InMemoryAttemptTracker) RecordFailure(_ context.Context, identifier string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.liveWindowLocked(identifier)
	if w == nil {
		// The window starts at the first failure and does not slide.
		w = &attemptWindow{expiresAt: t.nowFunc().Add(t.window)}
		t.counts[identifier] = w
	}
	w.count++
	return w.count, nil
}

func (t *InMemoryAttemptTracker) Failures(_ context.Context, identifier string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.liveWindowLocked(identifier)
	if w == nil {
		return 0, nil
	}
	return w.count, nil
}

func (t *InMemoryAttemptTracker) Reset(_ context.Context, identifier string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, identifier)
	return nil
}

func (t *InMemoryAttemptTracker) liveWindowLocked(identifier string) *attemptWindow {
	w, ok := t.counts[identifier]
	if !ok {
		return nil
	}
	if !w.expiresAt.After(t.nowFunc()) {
		delete(t.counts, identifier)
		return nil
	}
	return w
}

// RedisAttemptTracker shares the lockout counters across instances via
// INCR with a TTL set on the first failure, so the counter auto-resets
// when the window elapses.
type RedisAttemptTracker struct {
	client redis.UniversalClient
	window time.Duration
	prefix string
}

var _ AttemptTracker = (*RedisAttemptTracker)(nil)

func NewRedisAttemptTracker(client redis.UniversalClient, window time.Duration) *RedisAttemptTracker {
	return &RedisAttemptTracker{
		client: client,
		window: window,
		prefix: "gts:la:",
	}
}

func (t *RedisAttemptTracker) key(identifier string) string {
	return t.prefix + identifier
}

func (t *RedisAttemptTracker) RecordFailure(ctx context.Context, identifier string) (int, error) {
	count, err := t.client.Incr(ctx, t.key(identifier)).Result()
	if err != nil {
		return 0, errors.Wrapf(autherrors.ErrUnavailable, "RedisAttemptTracker.RecordFailure: %v", err)
	}
	if count == 1 {
		if err := t.client.Expire(ctx, t.key(identifier), t.window).Err(); err != nil {
			return 0, errors.Wrapf(autherrors.ErrUnavailable, "RedisAttemptTracker.RecordFailure: %v", err)
		}
	}
	return int(count), nil
}

func (t *RedisAttemptTracker) Failures(ctx context.Context, identifier string) (int, error) {
	count, err := t.client.Get(ctx, t.key(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, errors.Wrapf(autherrors.ErrUnavailable, "RedisAttemptTracker.Failures: %v", err)
	}
	return int(count), nil
}

func (t *RedisAttemptTracker) Reset(ctx context.Context, identifier string) error {
	if err := t.client.Del(ctx, t.key(identifier)).Err(); err != nil {
		return errors.Wrapf(autherrors.ErrUnavailable, "RedisAttemptTracker.Reset: %v", err)
	}
	return nil
}

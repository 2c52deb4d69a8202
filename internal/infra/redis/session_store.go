package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizroom/internal/app"
)

const defaultOpTimeout = 250 * time.Millisecond

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions themselves stay in a local map; nothing is ever reloaded from Redis.
//   - Each registered code is reserved with SETNX so a code that is still
//     reserved (for example from an earlier run within the TTL) counts as a
//     collision and is not handed out again.
//   - Redis is best effort: every call is bounded by opTimeout, no call is made
//     while the registry lock is held, and lookups never touch Redis. If Redis is
//     unreachable or slow the local check alone decides.
type SessionStore struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*app.Session
}

// NewSessionStore expects a client with ContextTimeoutEnabled so the per-call
// deadline is honored.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		ttl:       ttl,
		opTimeout: defaultOpTimeout,
		sessions:  make(map[string]*app.Session),
	}
}

func (s *SessionStore) Add(ctx context.Context, session *app.Session) bool {
	code := session.Code()
	if s.has(code) {
		return false
	}

	if !s.reserve(ctx, code, session.Summary().Title) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another Add may have won the same code while Redis was consulted
	if _, taken := s.sessions[code]; taken {
		return false
	}
	s.sessions[code] = session
	return true
}

// reserve reports false only when Redis confirms the code is already reserved.
func (s *SessionStore) reserve(ctx context.Context, code, title string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	reserved, err := s.client.SetNX(ctx, s.key(code), title, s.ttl).Result()
	return err != nil || reserved
}

func (s *SessionStore) Get(_ context.Context, code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// KeepAlive refreshes the reservation of every registered code each interval
// until ctx is done, so codes stay reserved for as long as their quiz is served.
func (s *SessionStore) KeepAlive(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.refresh(ctx)
		}
	}
}

func (s *SessionStore) refresh(ctx context.Context) error {
	s.mu.RLock()
	codes := make([]string, 0, len(s.sessions))
	for code := range s.sessions {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	if len(codes) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	pipe := s.client.Pipeline()
	for _, code := range codes {
		pipe.Expire(ctx, s.key(code), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *SessionStore) has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[code]
	return ok
}

func (s *SessionStore) key(code string) string {
	return "quizroom:code:" + code
}

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// TokenStore keeps single-use confirmation tokens. Take must remove the
// token atomically so a token can never be redeemed twice.
type TokenStore interface {
	Put(ctx context.Context, token, binding string, ttl time.Duration) error
	Take(ctx context.Context, token string) (binding string, ok bool, err error)
}

type memoryToken struct {
	binding string
	expires time.Time
}

// MemoryTokenStore is a process-local TokenStore
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

// NewMemoryTokenStore creates an empty in-memory token store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]memoryToken), now: time.Now}
}

// Put stores token until ttl elapses
func (s *MemoryTokenStore) Put(ctx context.Context, token, binding string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.tokens {
		if now.After(v.expires) {
			delete(s.tokens, k)
		}
	}
	if _, exists := s.tokens[token]; exists {
		return errors.New("token already issued")
	}
	s.tokens[token] = memoryToken{binding: binding, expires: now.Add(ttl)}
	return nil
}

// Take removes token and returns its binding if it has not expired
func (s *MemoryTokenStore) Take(ctx context.Context, token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return "", false, nil
	}
	delete(s.tokens, token)
	if s.now().After(t.expires) {
		return "", false, nil
	}
	return t.binding, true, nil
}

// KeyValueBackend is the subset of a Redis client the shared token store uses
type KeyValueBackend interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	GetDel(ctx context.Context, key string) (string, bool, error)
}

// SharedTokenStore keeps tokens in Redis so any worker replica can redeem them
type SharedTokenStore struct {
	backend KeyValueBackend
}

// NewSharedTokenStore creates a TokenStore backed by backend
func NewSharedTokenStore(backend KeyValueBackend) *SharedTokenStore {
	return &SharedTokenStore{backend: backend}
}

// Put stores token until ttl elapses
func (s *SharedTokenStore) Put(ctx context.Context, token, binding string, ttl time.Duration) error {
	ok, err := s.backend.SetNX(ctx, tokenKey(token), binding, ttl)
	if err != nil {
		return errors.Wrap(err, "store confirmation token")
	}
	if !ok {
		return errors.New("token already issued")
	}
	return nil
}

// Take removes token and returns its binding
func (s *SharedTokenStore) Take(ctx context.Context, token string) (string, bool, error) {
	binding, ok, err := s.backend.GetDel(ctx, tokenKey(token))
	if err != nil {
		return "", false, errors.Wrap(err, "redeem confirmation token")
	}
	return binding, ok, nil
}

func tokenKey(token string) string {
	return "sportsync:confirm:" + token
}

package utils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const claimKeyPrefix = "fry:review:claim:"

// Deletes the claim only while it still carries the caller's token.
const releaseScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end; return 0`

type claimEntry struct {
	token     string
	expiresAt time.Time
}

// ClaimStore hands out short-lived exclusive claims on review keys.
// Redis is used when available; otherwise claims only hold within this process.
type ClaimStore struct {
	rc *redis.Client

	mu     sync.Mutex
	claims map[string]claimEntry
}

// NewClaimStore returns a store over rc. A nil rc selects the in-memory fallback.
func NewClaimStore(rc *redis.Client) *ClaimStore {
	return &ClaimStore{rc: rc, claims: map[string]claimEntry{}}
}

// Claim takes the claim on key for ttl and returns its token. An empty token
// means someone else holds it.
func (s *ClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	token := uuid.NewString()
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		ok, err := s.rc.SetNX(ctx, claimKeyPrefix+key, token, ttl).Result()
		if err != nil || !ok {
			return "", err
		}
		return token, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if e, ok := s.claims[key]; ok && now.Before(e.expiresAt) {
		return "", nil
	}
	s.claims[key] = claimEntry{token: token, expiresAt: now.Add(ttl)}
	return token, nil
}

// Release drops the claim on key if token still owns it. A claim that expired
// and was taken by someone else is left alone.
func (s *ClaimStore) Release(ctx context.Context, key, token string) error {
	if token == "" {
		return nil
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return s.rc.Eval(ctx, releaseScript, []string{claimKeyPrefix + key}, token).Err()
	}
	s.mu.Lock()
	if e, ok := s.claims[key]; ok && e.token == token {
		delete(s.claims, key)
	}
	s.mu.Unlock()
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// PlaySession is the state bound to one play-session token. Ephemeral: it
// lives only in the token store and disappears on use or expiry.
type PlaySession struct {
	UserID   int64     `json:"user_id"`
	GameID   int64     `json:"game_id"`
	IssuedAt time.Time `json:"issued_at"`
	ClientIP string    `json:"client_ip"`
}

// TokenStore keeps play sessions keyed by token with a TTL. Redis in
// production; the memory implementation backs tests and single-node runs.
type TokenStore interface {
	Save(ctx context.Context, token string, session *PlaySession, ttl time.Duration) error
	// Consume removes and returns the session in one step, so two racing
	// callers can never both obtain the same token. Returns nil, nil for
	// missing or expired tokens.
	Consume(ctx context.Context, token string) (*PlaySession, error)
}

const sessionKeyPrefix = "playsession:"

type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Save(ctx context.Context, token string, session *PlaySession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+token, payload, ttl).Err()
}

func (s *RedisTokenStore) Consume(ctx context.Context, token string) (*PlaySession, error) {
	payload, err := s.client.GetDel(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session PlaySession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

type memoryEntry struct {
	session   PlaySession
	expiresAt time.Time
}

type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryTokenStore) Save(ctx context.Context, token string, session *PlaySession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{session: *session, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryTokenStore) Consume(ctx context.Context, token string) (*PlaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	delete(s.entries, token)
	if time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	session := entry.session
	return &session, nil
}

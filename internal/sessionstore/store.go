// Package sessionstore tracks each client's active chat session.
package sessionstore

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Store maps a client id to its active session id. An empty session id
// means no active session; the next turn creates one.
type Store interface {
	Active(ctx context.Context, clientID string) (string, error)
	SetActive(ctx context.Context, clientID, sessionID string) error
	Clear(ctx context.Context, clientID string) error
}

// Config holds session store configuration.
type Config struct {
	RedisEnabled bool
	RedisAddr    string
	Prefix       string
	TTL          time.Duration
}

// New returns a Redis-backed store when enabled, otherwise an in-memory one.
func New(cfg *Config) Store {
	if cfg == nil || !cfg.RedisEnabled || cfg.RedisAddr == "" {
		log.Info().Msg("Redis disabled, using in-memory session store")
		return &memoryStore{active: make(map[string]string)}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	log.Info().
		Str("addr", cfg.RedisAddr).
		Str("prefix", cfg.Prefix).
		Msg("Redis session store initialized")
	return &redisStore{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
}

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (s *redisStore) key(clientID string) string {
	return s.prefix + clientID
}

func (s *redisStore) Active(ctx context.Context, clientID string) (string, error) {
	val, err := s.client.Get(ctx, s.key(clientID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *redisStore) SetActive(ctx context.Context, clientID, sessionID string) error {
	return s.client.Set(ctx, s.key(clientID), sessionID, s.ttl).Err()
}

func (s *redisStore) Clear(ctx context.Context, clientID string) error {
	return s.client.Del(ctx, s.key(clientID)).Err()
}

type memoryStore struct {
	mu     sync.RWMutex
	active map[string]string
}

func (s *memoryStore) Active(_ context.Context, clientID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[clientID], nil
}

func (s *memoryStore) SetActive(_ context.Context, clientID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[clientID] = sessionID
	return nil
}

func (s *memoryStore) Clear(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, clientID)
	return nil
}

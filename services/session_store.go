package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"ragwizard/models"
)

// SessionStore persists wizard sessions between requests so a reload resumes
// mid-wizard. Entries expire after a period of inactivity.
type SessionStore interface {
	Load(ctx context.Context, id string) (models.WizardSession, error)
	Save(ctx context.Context, session models.WizardSession) error
	Delete(ctx context.Context, id string) error
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	cache *cache.Cache
}

// NewMemorySessionStore creates a store whose entries expire after ttl and
// are purged every ttl/4.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &MemorySessionStore{
		cache: cache.New(ttl, ttl/4),
	}
}

func (s *MemorySessionStore) Load(ctx context.Context, id string) (models.WizardSession, error) {
	if x, found := s.cache.Get(id); found {
		return x.(models.WizardSession).Clone(), nil
	}
	return models.WizardSession{}, ErrSessionNotFound
}

func (s *MemorySessionStore) Save(ctx context.Context, session models.WizardSession) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	s.cache.Set(session.ID, session.Clone(), cache.DefaultExpiration)
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// RedisSessionStore shares sessions between server instances
type RedisSessionStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionStore connects to redisURL (redis://host:port/db)
func NewRedisSessionStore(redisURL string, ttl time.Duration) (*RedisSessionStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	return NewRedisSessionStoreWithClient(redis.NewClient(opt), ttl), nil
}

// NewRedisSessionStoreWithClient uses an existing client
func NewRedisSessionStoreWithClient(rdb *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisSessionStore{
		rdb:    rdb,
		ttl:    ttl,
		prefix: "ragwizard:session:",
	}
}

// Ping checks the connection
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisSessionStore) Load(ctx context.Context, id string) (models.WizardSession, error) {
	data, err := s.rdb.Get(ctx, s.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.WizardSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.WizardSession{}, errors.Wrap(err, "failed to read session")
	}

	var session models.WizardSession
	if err := json.Unmarshal(data, &session); err != nil {
		return models.WizardSession{}, errors.Wrap(err, "failed to decode session")
	}
	if session.Errors == nil {
		session.Errors = make(map[models.ErrorSlot][]string)
	}
	return session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session models.WizardSession) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to encode session")
	}
	return errors.Wrap(s.rdb.Set(ctx, s.prefix+session.ID, data, s.ttl).Err(), "failed to write session")
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(s.rdb.Del(ctx, s.prefix+id).Err(), "failed to delete session")
}

// Close releases the redis connection pool
func (s *RedisSessionStore) Close() error {
	return s.rdb.Close()
}

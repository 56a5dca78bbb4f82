package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/infrastructure/redis"
)

const (
	keyPrefix = "catgpt:session:"
	indexKey  = "catgpt:sessions"
)

// Store persists sessions. Get returns nil for an unknown id.
type Store interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	IDs(ctx context.Context) ([]string, error)
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu       sync.RWMutex
	order    []string
	sessions map[string]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
	}
}

func NewRedisStore(redisService *redis.Service) *RedisStore {
	return &RedisStore{redisService: redisService}
}

// Redis Store implementation
func (rs *RedisStore) Save(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	existing, err := rs.redisService.Get(ctx, keyPrefix+session.ID)
	if err != nil && !redis.IsNil(err) {
		return err
	}
	if err := rs.redisService.Set(ctx, keyPrefix+session.ID, string(data), 0); err != nil {
		return err
	}
	if existing == "" {
		return rs.redisService.Push(ctx, indexKey, session.ID)
	}
	return nil
}

func (rs *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+id)
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", id, err)
	}
	return &session, nil
}

func (rs *RedisStore) IDs(ctx context.Context) ([]string, error) {
	return rs.redisService.Range(ctx, indexKey)
}

// Memory Store implementation
func (ms *MemoryStore) Save(ctx context.Context, session models.Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, exists := ms.sessions[session.ID]; !exists {
		ms.order = append(ms.order, session.ID)
	}
	ms.sessions[session.ID] = session
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	session, exists := ms.sessions[id]
	if !exists {
		return nil, nil
	}
	return &session, nil
}

func (ms *MemoryStore) IDs(ctx context.Context) ([]string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]string(nil), ms.order...), nil
}

package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/infrastructure/redis"
	"github.com/deepgram/catgpt/pkg/logger"
)

const (
	titleLength  = 30
	DefaultTitle = "New chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Service owns the session state and mirrors every change to its store
type Service struct {
	mu    sync.RWMutex
	state State
	store Store
	newID func() string
}

// NewService uses redis when it is available and reachable, memory otherwise
func NewService(redisService *redis.Service) *Service {
	var store Store
	if redisService != nil {
		// Test Redis connection
		if err := redisService.Ping(context.Background()); err != nil {
			logger.Warn(logger.SESSION, "Redis unreachable, keeping sessions in memory: %v", err)
			store = NewMemoryStore()
		} else {
			store = NewRedisStore(redisService)
		}
	} else {
		store = NewMemoryStore()
	}

	return NewServiceWithStore(store)
}

func NewServiceWithStore(store Store) *Service {
	return &Service{
		store: store,
		newID: func() string { return uuid.New().String() },
	}
}

// Restore loads every stored session into the state. The last one becomes
// active.
func (s *Service) Restore(ctx context.Context) error {
	ids, err := s.store.IDs(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.state.Get(id); ok {
			continue
		}
		stored, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			continue
		}
		s.state = s.state.NewSession(id)
		for _, msg := range stored.Messages {
			s.state, _ = s.state.Append(id, msg)
		}
	}
	logger.Debug(logger.SESSION, "Restored %d sessions", len(s.state.Sessions))
	return nil
}

// NewSession creates an empty session and makes it active
func (s *Service) NewSession(ctx context.Context) models.Session {
	s.mu.Lock()
	id := s.newID()
	s.state = s.state.NewSession(id)
	session, _ := s.state.Get(id)
	s.mu.Unlock()

	s.persist(ctx, session)
	logger.Info(logger.SESSION, "Created session %s", id)
	return session
}

// SelectSession switches the active session without touching any messages
func (s *Service) SelectSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.state.Select(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.state = next
	return nil
}

// Append adds msg to the session id
func (s *Service) Append(ctx context.Context, id string, msg models.Message) error {
	s.mu.Lock()
	next, ok := s.state.Append(id, msg)
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.state = next
	session, _ := s.state.Get(id)
	s.mu.Unlock()

	s.persist(ctx, session)
	return nil
}

// Sessions returns all sessions in creation order
func (s *Service) Sessions() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Session(nil), s.state.Sessions...)
}

// Active returns the active session
func (s *Service) Active() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Active()
}

// Get returns the session with the given id
func (s *Service) Get(id string) (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Get(id)
}

// State returns the current snapshot
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// persist failures are logged; the in-memory state stays authoritative
func (s *Service) persist(ctx context.Context, session models.Session) {
	if err := s.store.Save(ctx, session); err != nil {
		logger.Error(logger.SESSION, "Failed to persist session %s: %v", session.ID, err)
	}
}

// Title is the first user message cut to 30 characters, or "New chat"
func Title(session models.Session) string {
	for _, msg := range session.Messages {
		if msg.Role != models.RoleUser || msg.Content.IsFlow() || msg.Content.Text == "" {
			continue
		}
		runes := []rune(msg.Content.Text)
		if len(runes) > titleLength {
			return string(runes[:titleLength])
		}
		return msg.Content.Text
	}
	return DefaultTitle
}

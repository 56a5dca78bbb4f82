package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/internal/connections"
	"github.com/deepgram/catgpt/internal/infrastructure/catgpt"
	"github.com/deepgram/catgpt/internal/infrastructure/redis"
	"github.com/deepgram/catgpt/internal/services/chat"
	"github.com/deepgram/catgpt/internal/services/expense"
	"github.com/deepgram/catgpt/internal/services/flowrun"
	"github.com/deepgram/catgpt/internal/services/session"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	catgptService  *catgpt.Service
	chatService    *chat.Service
	expenseService *expense.Service
	flowRunService *flowrun.Service
	redisService   *redis.Service
	sessionService *session.Service
	watchers       *connections.Manager
}

// InitializeServices wires the client services from configuration. The
// watcher manager is always created; it only gets connections when the watch
// server runs.
func InitializeServices(ctx context.Context) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()

	// Initialize session service with optional Redis
	sessionService := session.NewService(redisService)
	if err := sessionService.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to restore stored sessions")
	}

	catgptService := catgpt.NewService()
	log.Info().Str("api_url", catgptService.BaseURL()).Msg("Initializing backend client")

	watchers := connections.NewManager(connections.DefaultTimeouts)

	flowRunService := flowrun.NewService(catgptService, config.GetStreamFraming())
	flowRunService.AddWatcher(func(r flowrun.FlowExecutionResult) {
		watchers.Broadcast(r)
	})

	log.Info().Msg("All services initialized successfully")

	return &Services{
		catgptService:  catgptService,
		chatService:    chat.NewService(catgptService, sessionService),
		expenseService: expense.NewService(),
		flowRunService: flowRunService,
		redisService:   redisService,
		sessionService: sessionService,
		watchers:       watchers,
	}, nil
}

// Close releases the redis connection if there is one
func (s *Services) Close() error {
	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}

// GetChatService returns the chat service
func (s *Services) GetChatService() *chat.Service {
	return s.chatService
}

// GetExpenseService returns the expense service
func (s *Services) GetExpenseService() *expense.Service {
	return s.expenseService
}

// GetFlowRunService returns the run service
func (s *Services) GetFlowRunService() *flowrun.Service {
	return s.flowRunService
}

// GetSessionService returns the session service
func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

// GetWatchers returns the websocket watcher manager
func (s *Services) GetWatchers() *connections.Manager {
	return s.watchers
}

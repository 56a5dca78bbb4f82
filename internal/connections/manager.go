package connections

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/metrics"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// Manager tracks the websocket watchers of run status and pushes snapshots
// to them. Writes to a connection are serialised by its own mutex.
type Manager struct {
	connections sync.Map // *websocket.Conn -> *sync.Mutex
	timeouts    TimeoutConfig

	mu   sync.RWMutex
	last []byte
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a watcher and sends it the latest snapshot
func (m *Manager) AddConnection(conn *websocket.Conn) {
	lock := &sync.Mutex{}
	m.connections.Store(conn, lock)
	metrics.WatchersConnected.Set(float64(m.GetConnectionCount()))

	if last := m.Last(); last != nil {
		if err := m.write(conn, lock, last); err != nil {
			m.RemoveConnection(conn)
		}
	}
}

// RemoveConnection removes a WebSocket connection
func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
	metrics.WatchersConnected.Set(float64(m.GetConnectionCount()))
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

// Last returns the most recently broadcast payload
func (m *Manager) Last() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Broadcast sends v as JSON to every watcher and remembers it for watchers
// that connect later. Watchers that fail to receive it are dropped. It
// returns how many watchers received the message.
func (m *Manager) Broadcast(v interface{}) int {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode broadcast")
		return 0
	}

	m.mu.Lock()
	m.last = payload
	m.mu.Unlock()

	delivered := 0
	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		if err := m.write(conn, value.(*sync.Mutex), payload); err != nil {
			log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Dropping watcher")
			m.RemoveConnection(conn)
			_ = conn.Close()
			return true
		}
		delivered++
		return true
	})
	return delivered
}

func (m *Manager) write(conn *websocket.Conn, lock *sync.Mutex, payload []byte) error {
	lock.Lock()
	defer lock.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(m.timeouts.WriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

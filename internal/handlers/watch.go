package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/connections"
	"github.com/deepgram/catgpt/internal/metrics"
	"github.com/deepgram/catgpt/pkg/httpext"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the watch server binds to a local address
	},
}

// NewWatchRouter serves run status to websocket watchers on /ws and the
// client metrics on /metrics.
func NewWatchRouter(manager *connections.Manager) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", HandleWatch(manager))
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		last := manager.Last()
		if last == nil {
			httpext.JsonError(w, "no run yet", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(last)
	}).Methods(http.MethodGet)
	return r
}

// HandleWatch upgrades the request and keeps the watcher registered until
// it disconnects or stops answering pings. Messages from the client are
// ignored.
func HandleWatch(manager *connections.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Could not upgrade watch connection")
			return
		}

		timeouts := manager.GetTimeouts()
		manager.AddConnection(conn)
		log.Info().Str("remote", r.RemoteAddr).Msg("Watcher connected")
		defer func() {
			manager.RemoveConnection(conn)
			conn.Close()
			log.Info().Str("remote", r.RemoteAddr).Msg("Watcher disconnected")
		}()

		// Set up ping/pong handlers
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
		})

		done := make(chan struct{})
		defer close(done)

		go func() {
			ticker := time.NewTicker(timeouts.PingPeriod)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					deadline := time.Now().Add(timeouts.WriteWait)
					if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("Watcher closed unexpectedly")
				}
				return
			}
		}
	}
}

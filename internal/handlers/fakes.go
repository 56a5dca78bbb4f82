package handlers

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/infrastructure/catgpt"
	"github.com/deepgram/catgpt/internal/stream"
	"github.com/deepgram/catgpt/pkg/httpext"
	"github.com/deepgram/catgpt/pkg/logger"
	"github.com/deepgram/catgpt/pkg/ratelimit"
)

// FakeBackend is an in-memory stand-in for the CatGPT backend. /chat plans a
// three agent flow from the message and /run streams canned agent output.
type FakeBackend struct {
	mu       sync.Mutex
	sessions map[string][]models.Message

	// TokenDelay is the pause between streamed tokens
	TokenDelay time.Duration
}

func NewFakeBackend(tokenDelay time.Duration) *FakeBackend {
	return &FakeBackend{
		sessions:   make(map[string][]models.Message),
		TokenDelay: tokenDelay,
	}
}

// Router returns the backend routes with rate limiting applied when enabled
func (f *FakeBackend) Router() *mux.Router {
	r := mux.NewRouter()

	chatLimit := limited("chat")
	r.Handle("/chat", chatLimit(http.HandlerFunc(f.HandleChat))).Methods(http.MethodPost)
	r.Handle("/chat/stream", chatLimit(http.HandlerFunc(f.HandleChatStream))).Methods(http.MethodPost)
	r.Handle("/run", limited("run")(http.HandlerFunc(f.HandleRun))).Methods(http.MethodPost)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpext.JsonResponse(w, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

// limited returns the rate limit middleware for key, or a pass-through when
// limiting is disabled. One limiter is shared by every route using the result.
func limited(key string) mux.MiddlewareFunc {
	cfg := config.GetRateLimitConfig(key)
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimit.NewLimiter(cfg.Window, cfg.MaxHits).Middleware(clientIP)
}

// History returns a copy of the messages stored for a session
func (f *FakeBackend) History(sessionID string) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message(nil), f.sessions[sessionID]...)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// decodeChat validates a chat request the way the real backend does
func (f *FakeBackend) decodeChat(w http.ResponseWriter, r *http.Request) (*catgpt.ChatRequest, bool) {
	var req catgpt.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpext.JsonError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		httpext.JsonError(w, "session_id cannot be empty", http.StatusBadRequest)
		return nil, false
	}
	if req.Message.Content.Text == "" {
		httpext.JsonError(w, "message cannot be empty", http.StatusBadRequest)
		return nil, false
	}
	if req.Message.Role == "" {
		req.Message.Role = models.RoleUser
	}
	if req.Message.Role != models.RoleUser && req.Message.Role != models.RoleAssistant {
		httpext.JsonError(w, "invalid role", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func (f *FakeBackend) remember(sessionID string, msgs ...models.Message) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sessionID] = append(f.sessions[sessionID], msgs...)
	return len(f.sessions[sessionID])
}

func (f *FakeBackend) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := f.decodeChat(w, r)
	if !ok {
		return
	}
	logger.Info(logger.HANDLER, "Received /chat request for session %s", req.SessionID)

	flow := PlanFlow(req.Message.Content.Text)
	message := fmt.Sprintf("Here is a plan with %d agents.", len(flow.Agents))
	reply := models.Content{Text: message, Flow: flow}

	n := f.remember(req.SessionID, req.Message, models.Message{Role: models.RoleAssistant, Content: reply})
	logger.Debug(logger.HANDLER, "Session %s now holds %d messages", req.SessionID, n)

	httpext.JsonResponse(w, reply)
}

func (f *FakeBackend) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := f.decodeChat(w, r)
	if !ok {
		return
	}

	sw, err := httpext.NewStreamWriter(w, "text/event-stream")
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	answer := fmt.Sprintf("Meow! You said: %s", req.Message.Content.Text)
	for _, token := range Tokens(answer) {
		data, _ := json.Marshal(map[string]string{"delta": token})
		if err := sw.WriteChunk("data: " + string(data) + "\n\n"); err != nil {
			return
		}
		if !f.pause(r) {
			return
		}
	}
	_ = sw.WriteChunk("data: [DONE]\n\n")

	f.remember(req.SessionID, req.Message, models.Message{Role: models.RoleAssistant, Content: models.TextContent(answer)})
}

func (f *FakeBackend) HandleRun(w http.ResponseWriter, r *http.Request) {
	var flow models.FlowResponse
	if err := json.NewDecoder(r.Body).Decode(&flow); err != nil {
		httpext.JsonError(w, "invalid flow", http.StatusBadRequest)
		return
	}
	if err := flow.Validate(); err != nil {
		httpext.JsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	framing := strings.ToLower(r.URL.Query().Get("framing"))
	sw, err := httpext.NewStreamWriter(w, "text/event-stream")
	if err != nil {
		httpext.JsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	enc := sentinelFrames
	if framing == stream.FramingSSE {
		enc = sseFrames
	}

	log.Info().Strs("agents", flow.Names()).Str("framing", framing).Msg("Streaming fake run")
	for _, agent := range flow.Agents {
		if err := sw.WriteChunk(enc.start(agent.Name)); err != nil {
			return
		}
		for _, token := range Tokens(AgentAnswer(agent)) {
			if !f.pause(r) {
				return
			}
			if err := sw.WriteChunk(enc.chunk(token)); err != nil {
				return
			}
		}
		if err := sw.WriteChunk(enc.end()); err != nil {
			return
		}
	}
	if done := enc.done(); done != "" {
		_ = sw.WriteChunk(done)
	}
}

// pause waits TokenDelay and reports false when the client went away
func (f *FakeBackend) pause(r *http.Request) bool {
	if f.TokenDelay <= 0 {
		return r.Context().Err() == nil
	}
	t := time.NewTimer(f.TokenDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-r.Context().Done():
		return false
	}
}

type frameEncoder struct {
	start func(name string) string
	chunk func(text string) string
	end   func() string
	done  func() string
}

var sentinelFrames = frameEncoder{
	start: func(name string) string { return "::result::" + name + "::" + stream.SentinelSeparator },
	chunk: func(text string) string { return text + stream.SentinelSeparator },
	end:   func() string { return "::end::" + stream.SentinelSeparator },
	done:  func() string { return "" },
}

var sseFrames = frameEncoder{
	start: func(name string) string { return sseData(map[string]string{"type": "result", "agent": name}) },
	chunk: func(text string) string { return sseData(map[string]string{"type": "chunk", "text": text}) },
	end:   func() string { return sseData(map[string]string{"type": "end"}) },
	done:  func() string { return "data: [DONE]\n\n" },
}

func sseData(v interface{}) string {
	data, _ := json.Marshal(v)
	return "data: " + string(data) + "\n\n"
}

// PlanFlow builds the canned flow for a request
func PlanFlow(request string) *models.FlowResponse {
	return &models.FlowResponse{Agents: []models.Agent{
		{
			Name:         "Researcher",
			Type:         models.AgentTypeComputerUse,
			Instructions: "Search the web for: " + request,
			OutputSchema: json.RawMessage(`{"type":"object","properties":{"findings":{"type":"string"}}}`),
		},
		{
			Name:         "Librarian",
			Type:         models.AgentTypeFilesystem,
			Instructions: "Save the findings to notes.md",
			InputSchema:  json.RawMessage(`{"type":"object","properties":{"findings":{"type":"string"}}}`),
		},
		{
			Name:         "Summariser",
			Type:         models.AgentTypeAssistant,
			Instructions: "Summarise the findings in markdown",
		},
	}}
}

// AgentAnswer is the canned markdown an agent of the fake backend produces
func AgentAnswer(agent models.Agent) string {
	switch agent.Type {
	case models.AgentTypeFilesystem:
		return "Saved **notes.md** to the workspace."
	case models.AgentTypeComputerUse:
		return "Visited 3 pages and collected the findings."
	case models.AgentTypeAssistant:
		return "## Summary\n\n- " + agent.Instructions + "\n- Purr-fectly done."
	default:
		return "Unsupported agent type `" + agent.Type + "`."
	}
}

// Tokens splits s into word tokens that keep their trailing whitespace, so
// joining them gives s back.
func Tokens(s string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' && (i+1 == len(s) || s[i+1] != ' ') {
			tokens = append(tokens, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

package catgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/config"
	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/metrics"
	"github.com/deepgram/catgpt/pkg/httpext"
)

// maxErrorBody caps how much of a failed response is kept in an APIError
const maxErrorBody = 4096

// Service talks to the CatGPT backend
type Service struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// ChatRequest is the body of POST /chat and POST /chat/stream
type ChatRequest struct {
	SessionID string         `json:"session_id"`
	Message   models.Message `json:"message"`
}

// RunStream is the open body of a run. The caller must close it.
type RunStream struct {
	Body        io.ReadCloser
	ContentType string
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if msg := httpext.ErrorMessage([]byte(e.Body)); msg != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}

// NewService builds a client from the configured base URL and timeout
func NewService() *Service {
	return NewServiceWithURL(config.GetAPIBaseURL())
}

// NewServiceWithURL builds a client for baseURL
func NewServiceWithURL(baseURL string) *Service {
	return &Service{
		// streams are bounded by their context, so the client has no timeout
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: config.GetRequestTimeout(),
	}
}

// BaseURL returns the backend base URL
func (s *Service) BaseURL() string {
	return s.baseURL
}

// Chat sends one message and decodes the reply
func (s *Service) Chat(ctx context.Context, sessionID string, msg models.Message) (models.Content, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.post(ctx, "chat", "/chat", "application/json", ChatRequest{SessionID: sessionID, Message: msg})
	if err != nil {
		return models.Content{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Content{}, fmt.Errorf("failed to read chat reply: %w", err)
	}

	content, err := models.ParseReply(body)
	if err != nil {
		return models.Content{}, fmt.Errorf("failed to decode chat reply: %w", err)
	}
	return content, nil
}

// ChatStream sends one message to the streaming chat endpoint. The body is
// server-sent events.
func (s *Service) ChatStream(ctx context.Context, sessionID string, msg models.Message) (io.ReadCloser, error) {
	resp, err := s.post(ctx, "chat_stream", "/chat/stream", "text/event-stream", ChatRequest{SessionID: sessionID, Message: msg})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Run starts executing a flow and returns the streamed body
func (s *Service) Run(ctx context.Context, flow *models.FlowResponse) (*RunStream, error) {
	resp, err := s.post(ctx, "run", "/run", "text/event-stream, text/plain", flow)
	if err != nil {
		return nil, err
	}
	return &RunStream{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// post sends v as JSON and returns the response when it is 2xx. Other
// responses are drained into an APIError.
func (s *Service) post(ctx context.Context, endpoint, path, accept string, v interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, metrics.Outcome(err)).Inc()
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Backend returned an error response")
		metrics.RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	metrics.RequestsTotal.WithLabelValues(endpoint, metrics.Outcome(nil)).Inc()
	log.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Msg("Backend request succeeded")
	return resp, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/services/session"
	"github.com/deepgram/catgpt/internal/stream"
	"github.com/deepgram/catgpt/pkg/logger"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a message is already being sent")
	ErrEmptyReply   = errors.New("backend sent an empty reply")
)

// API is the part of the backend client the chat service needs
type API interface {
	Chat(ctx context.Context, sessionID string, msg models.Message) (models.Content, error)
	ChatStream(ctx context.Context, sessionID string, msg models.Message) (io.ReadCloser, error)
}

// Service sends one message at a time. The user message is appended before
// the request; the reply is appended only on success.
type Service struct {
	api      API
	sessions *session.Service
	pending  atomic.Bool
}

func NewService(api API, sessions *session.Service) *Service {
	return &Service{
		api:      api,
		sessions: sessions,
	}
}

// Pending reports whether a send is in flight
func (s *Service) Pending() bool {
	return s.pending.Load()
}

// Send posts text to the session and appends the assistant reply to that
// same session, whichever session is active when the reply arrives.
func (s *Service) Send(ctx context.Context, sessionID, text string) error {
	msg, err := s.begin(ctx, sessionID, text)
	if err != nil {
		return err
	}
	defer s.pending.Store(false)

	logger.Debug(logger.CHAT, "Sending message to session %s", sessionID)
	content, err := s.api.Chat(ctx, sessionID, msg)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Chat request failed")
		return fmt.Errorf("failed to send message: %w", err)
	}

	return s.sessions.Append(ctx, sessionID, models.Message{Role: models.RoleAssistant, Content: content})
}

// SendStream is Send against the streaming endpoint. onToken sees every text
// delta as it arrives; the joined text becomes one assistant message once the
// stream ends cleanly.
func (s *Service) SendStream(ctx context.Context, sessionID, text string, onToken func(string)) error {
	msg, err := s.begin(ctx, sessionID, text)
	if err != nil {
		return err
	}
	defer s.pending.Store(false)

	body, err := s.api.ChatStream(ctx, sessionID, msg)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Chat stream request failed")
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer body.Close()

	reply, err := readTokens(ctx, body, onToken)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Chat stream ended early")
		return fmt.Errorf("failed to read reply: %w", err)
	}
	if reply == "" {
		return ErrEmptyReply
	}

	return s.sessions.Append(ctx, sessionID, models.Message{Role: models.RoleAssistant, Content: models.TextContent(reply)})
}

// begin validates text, claims the in-flight slot and appends the user
// message. On success the caller owns the slot.
func (s *Service) begin(ctx context.Context, sessionID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyMessage
	}
	if !s.pending.CompareAndSwap(false, true) {
		return models.Message{}, ErrBusy
	}

	msg := models.Message{Role: models.RoleUser, Content: models.TextContent(text)}
	if err := s.sessions.Append(ctx, sessionID, msg); err != nil {
		s.pending.Store(false)
		return models.Message{}, err
	}
	return msg, nil
}

func readTokens(ctx context.Context, r io.Reader, onToken func(string)) (string, error) {
	dec := stream.NewSSEDecoder()
	var reply strings.Builder

	handle := func(events []stream.Event) bool {
		for _, ev := range events {
			switch ev.Kind {
			case stream.Chunk:
				reply.WriteString(ev.Text)
				if onToken != nil {
					onToken(ev.Text)
				}
			case stream.Done:
				return true
			}
		}
		return false
	}

	buf := make([]byte, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := r.Read(buf)
		if n > 0 && handle(dec.Feed(buf[:n])) {
			return reply.String(), nil
		}
		if errors.Is(err, io.EOF) {
			handle(dec.Close())
			return reply.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

package flowrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/infrastructure/catgpt"
	"github.com/deepgram/catgpt/internal/metrics"
	"github.com/deepgram/catgpt/internal/stream"
)

var (
	ErrBusy        = errors.New("a run is already in progress")
	ErrInvalidFlow = errors.New("invalid flow")
)

// Runner starts a run on the backend
type Runner interface {
	Run(ctx context.Context, flow *models.FlowResponse) (*catgpt.RunStream, error)
}

// Service executes one flow at a time and fans snapshots out to watchers
type Service struct {
	api     Runner
	framing string
	running atomic.Bool

	mu       sync.RWMutex
	watchers []Publisher
	last     *FlowExecutionResult
}

func NewService(api Runner, framing string) *Service {
	return &Service{
		api:     api,
		framing: framing,
	}
}

// SetFraming overrides the stream framing for later runs
func (s *Service) SetFraming(framing string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framing = framing
}

// AddWatcher registers a publisher that sees every snapshot of every run
func (s *Service) AddWatcher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, p)
}

// Last returns the most recent snapshot, if any run has published one
func (s *Service) Last() (FlowExecutionResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return FlowExecutionResult{}, false
	}
	return *s.last, true
}

// Running reports whether a run is in flight
func (s *Service) Running() bool {
	return s.running.Load()
}

// Run posts the flow and consumes its stream, calling publish after every
// accepted event. The returned state is final unless err is non-nil.
func (s *Service) Run(ctx context.Context, flow *models.FlowResponse, publish Publisher) (FlowExecutionResult, error) {
	if err := flow.Validate(); err != nil {
		return FlowExecutionResult{}, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
	}

	if !s.running.CompareAndSwap(false, true) {
		return FlowExecutionResult{}, ErrBusy
	}
	defer s.running.Store(false)

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	initial := NewExecutionResult(flow)
	s.publish(initial, nil)

	run, err := s.api.Run(ctx, flow)
	if err != nil {
		log.Error().Err(err).Strs("agents", initial.Plan).Msg("Failed to start run")
		return initial, fmt.Errorf("failed to start run: %w", err)
	}
	defer run.Body.Close()

	s.mu.RLock()
	framing := s.framing
	s.mu.RUnlock()

	dec := decoderFor(framing, run.ContentType)
	log.Info().
		Strs("agents", initial.Plan).
		Str("content_type", run.ContentType).
		Str("framing", framing).
		Msg("Run started")

	result, err := Consume(ctx, run.Body, dec, initial, func(r FlowExecutionResult) {
		s.publish(r, publish)
	})
	if err != nil {
		log.Error().Err(err).Msg("Run stream ended early")
		return result, err
	}

	if auto, ok := dec.(*stream.AutoDecoder); ok {
		log.Debug().Str("framing", auto.Framing()).Msg("Detected run stream framing")
	}
	log.Info().Bool("all_completed", result.Completed()).Msg("Run finished")
	return result, nil
}

// decoderFor honours an explicit framing, then a text/plain content type
// (sentinel), and otherwise sniffs the stream.
func decoderFor(framing, contentType string) stream.Decoder {
	switch framing {
	case stream.FramingSentinel, stream.FramingSSE:
		return stream.NewDecoder(framing)
	}
	if strings.HasPrefix(strings.ToLower(contentType), "text/plain") {
		return stream.NewSentinelDecoder()
	}
	return stream.NewDecoder(stream.FramingAuto)
}

func (s *Service) publish(r FlowExecutionResult, publish Publisher) {
	s.mu.Lock()
	s.last = &r
	watchers := append([]Publisher(nil), s.watchers...)
	s.mu.Unlock()

	if publish != nil {
		publish(r)
	}
	for _, w := range watchers {
		w(r)
	}
}

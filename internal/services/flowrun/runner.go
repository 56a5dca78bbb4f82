package flowrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/deepgram/catgpt/internal/metrics"
	"github.com/deepgram/catgpt/internal/stream"
	"github.com/deepgram/catgpt/pkg/logger"
)

const readSize = 4096

// Publisher receives a snapshot after every accepted event
type Publisher func(FlowExecutionResult)

// Consume reads r until EOF, feeding every chunk to dec and applying the
// decoded events to initial. publish is called after each accepted event.
// At EOF the decoder is closed, which completes any agent still open.
// A read error or cancelled ctx returns the state reached so far.
func Consume(ctx context.Context, r io.Reader, dec stream.Decoder, initial FlowExecutionResult, publish Publisher) (FlowExecutionResult, error) {
	state := initial
	apply := func(events []stream.Event) {
		for _, ev := range events {
			next, accepted := Apply(state, ev)
			metrics.StreamEventsTotal.WithLabelValues(ev.Kind.String(), strconv.FormatBool(accepted)).Inc()
			if !accepted {
				logger.Debug(logger.RUN, "Skipped %s event for agent %q", ev.Kind, ev.Agent)
				continue
			}
			state = next
			if publish != nil {
				publish(state)
			}
		}
	}

	buf := make([]byte, readSize)
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			metrics.StreamBytesTotal.Add(float64(n))
			apply(dec.Feed(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return state, ctxErr
			}
			return state, fmt.Errorf("failed to read run stream: %w", err)
		}
	}

	apply(dec.Close())
	return state, nil
}

package stream

import (
	"bytes"
	"strings"

	"github.com/deepgram/catgpt/pkg/logger"
)

const (
	SentinelSeparator = "<newline>"
	resultPrefix      = "::result::"
	markerSuffix      = "::"
	endMarker         = "::end::"
)

var sentinelSeparator = []byte(SentinelSeparator)

// SentinelDecoder decodes the <newline> separated framing
type SentinelDecoder struct {
	buf    []byte
	closed bool
}

func NewSentinelDecoder() *SentinelDecoder {
	return &SentinelDecoder{}
}

func (d *SentinelDecoder) Feed(p []byte) []Event {
	if d.closed {
		return nil
	}
	d.buf = append(d.buf, p...)

	var events []Event
	for {
		i := bytes.Index(d.buf, sentinelSeparator)
		if i < 0 {
			break
		}
		events = append(events, parseSentinelFrame(string(d.buf[:i]))...)
		d.buf = d.buf[i+len(sentinelSeparator):]
	}

	// keep the carried fragment in its own small array
	if cap(d.buf) > 4096 && len(d.buf) < cap(d.buf)/4 {
		d.buf = append([]byte(nil), d.buf...)
	}
	return events
}

func (d *SentinelDecoder) Close() []Event {
	if d.closed {
		return nil
	}
	d.closed = true

	var events []Event
	if len(d.buf) > 0 {
		events = parseSentinelFrame(string(d.buf))
		d.buf = nil
	}
	return append(events, Event{Kind: Done})
}

func parseSentinelFrame(frame string) []Event {
	frame = strings.ToValidUTF8(frame, "�")

	switch {
	case frame == "":
		return nil
	case strings.TrimSpace(frame) == endMarker:
		return []Event{{Kind: End}}
	case strings.HasPrefix(frame, resultPrefix):
		rest := frame[len(resultPrefix):]
		i := strings.Index(rest, markerSuffix)
		if i <= 0 {
			logger.Warn(logger.STREAM, "Skipping malformed result marker: %q", frame)
			return nil
		}
		name := rest[:i]
		events := []Event{{Kind: Start, Agent: name}}
		if text := rest[i+len(markerSuffix):]; text != "" {
			events = append(events, Event{Kind: Chunk, Agent: name, Text: text})
		}
		return events
	default:
		return []Event{{Kind: Chunk, Text: frame}}
	}
}

package stream

import (
	"bytes"
	"strings"
)

// Framing names accepted by NewDecoder
const (
	FramingAuto     = "auto"
	FramingSentinel = "sentinel"
	FramingSSE      = "sse"
)

// sniffLen is how many leading non-space bytes the auto decoder needs
// before choosing a framing.
const sniffLen = 6

// NewDecoder returns a decoder for the named framing. Unknown names get the
// auto-detecting decoder.
func NewDecoder(framing string) Decoder {
	switch strings.ToLower(framing) {
	case FramingSentinel:
		return NewSentinelDecoder()
	case FramingSSE:
		return NewSSEDecoder()
	default:
		return &AutoDecoder{}
	}
}

// AutoDecoder picks the framing from the first bytes of the stream. The
// backend labels both framings text/event-stream, so the content type is no
// help.
type AutoDecoder struct {
	buf   []byte
	inner Decoder
}

// Framing reports the detected framing, "" until enough bytes arrived.
func (d *AutoDecoder) Framing() string {
	switch d.inner.(type) {
	case *SentinelDecoder:
		return FramingSentinel
	case *SSEDecoder:
		return FramingSSE
	default:
		return ""
	}
}

func (d *AutoDecoder) Feed(p []byte) []Event {
	if d.inner != nil {
		return d.inner.Feed(p)
	}
	d.buf = append(d.buf, p...)
	if len(bytes.TrimLeft(d.buf, " \t\r\n")) < sniffLen {
		return nil
	}
	return d.decide()
}

func (d *AutoDecoder) Close() []Event {
	if d.inner == nil {
		events := d.decide()
		return append(events, d.inner.Close()...)
	}
	return d.inner.Close()
}

func (d *AutoDecoder) decide() []Event {
	head := bytes.TrimLeft(d.buf, " \t\r\n")
	d.inner = NewSentinelDecoder()
	if looksLikeSSE(head) {
		d.inner = NewSSEDecoder()
	}
	buffered := d.buf
	d.buf = nil
	return d.inner.Feed(buffered)
}

func looksLikeSSE(head []byte) bool {
	if bytes.HasPrefix(head, []byte("::")) {
		return false
	}
	for _, prefix := range []string{"data:", "event:", "id:", "retry:", ":"} {
		if bytes.HasPrefix(head, []byte(prefix)) {
			return true
		}
	}
	return false
}

package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/deepgram/catgpt/pkg/logger"
)

const doneSentinel = "[DONE]"

var (
	sseSeparator = []byte("\n\n")
	crlf         = []byte("\r\n")
	lf           = []byte("\n")
)

// ssePayload is the JSON carried in a data field. Type may also come from
// the frame's event field. Text is read from text, content or delta.
type ssePayload struct {
	Type    string  `json:"type"`
	Agent   string  `json:"agent"`
	Name    string  `json:"name"`
	Text    *string `json:"text"`
	Content *string `json:"content"`
	Delta   *string `json:"delta"`
}

func (p ssePayload) agent() string {
	if p.Agent != "" {
		return p.Agent
	}
	return p.Name
}

func (p ssePayload) text() (string, bool) {
	for _, v := range []*string{p.Text, p.Content, p.Delta} {
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

// SSEDecoder decodes server-sent events. Frames end at a blank line; CRLF
// line endings are accepted.
type SSEDecoder struct {
	buf    []byte
	done   bool
	closed bool
}

func NewSSEDecoder() *SSEDecoder {
	return &SSEDecoder{}
}

func (d *SSEDecoder) Feed(p []byte) []Event {
	if d.closed {
		return nil
	}
	d.buf = append(d.buf, p...)
	if bytes.Contains(d.buf, crlf) {
		d.buf = bytes.ReplaceAll(d.buf, crlf, lf)
	}

	var events []Event
	for {
		i := bytes.Index(d.buf, sseSeparator)
		if i < 0 {
			break
		}
		events = append(events, d.parseFrame(string(d.buf[:i]))...)
		d.buf = d.buf[i+len(sseSeparator):]
	}
	return events
}

func (d *SSEDecoder) Close() []Event {
	if d.closed {
		return nil
	}
	d.closed = true

	var events []Event
	if len(bytes.TrimSpace(d.buf)) > 0 {
		events = d.parseFrame(strings.TrimRight(string(d.buf), "\r\n"))
	}
	d.buf = nil

	if !d.done {
		d.done = true
		events = append(events, Event{Kind: Done})
	}
	return events
}

func (d *SSEDecoder) parseFrame(frame string) []Event {
	if d.done {
		return nil
	}

	var (
		eventName string
		data      []string
	)
	for _, line := range strings.Split(frame, "\n") {
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
		case "event":
			eventName = value
		}
	}
	if len(data) == 0 {
		return nil
	}

	payload := strings.ToValidUTF8(strings.Join(data, "\n"), "�")
	if strings.TrimSpace(payload) == doneSentinel {
		d.done = true
		return []Event{{Kind: Done}}
	}

	var p ssePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		logger.Warn(logger.STREAM, "Skipping undecodable event: %v", err)
		return nil
	}
	if p.Type == "" {
		p.Type = eventName
	}
	text, hasText := p.text()

	switch strings.ToLower(p.Type) {
	case "result", "start":
		if p.agent() == "" {
			logger.Warn(logger.STREAM, "Skipping start event without agent name")
			return nil
		}
		events := []Event{{Kind: Start, Agent: p.agent()}}
		if text != "" {
			events = append(events, Event{Kind: Chunk, Agent: p.agent(), Text: text})
		}
		return events
	case "end":
		return []Event{{Kind: End, Agent: p.agent()}}
	case "done":
		d.done = true
		return []Event{{Kind: Done}}
	case "chunk", "delta", "message", "":
		if !hasText {
			logger.Warn(logger.STREAM, "Skipping chunk event without text")
			return nil
		}
		return []Event{{Kind: Chunk, Agent: p.agent(), Text: text}}
	default:
		logger.Warn(logger.STREAM, "Skipping unknown event type %q", p.Type)
		return nil
	}
}

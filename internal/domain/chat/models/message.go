package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a session's append-only log
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Content is either plain text, a flow of agents, or both (a reply that
// carries an explanation next to the planned flow).
type Content struct {
	Text string
	Flow *FlowResponse
}

// TextContent wraps plain text
func TextContent(text string) Content {
	return Content{Text: text}
}

// FlowContent wraps a flow
func FlowContent(flow *FlowResponse) Content {
	return Content{Flow: flow}
}

// IsFlow reports whether the content carries a flow
func (c Content) IsFlow() bool {
	return c.Flow != nil
}

// MarshalJSON encodes text as a JSON string, a flow as {"agents": [...]} and
// both together as {"message": "...", "flow": {...}}.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.Flow != nil && c.Text != "":
		return json.Marshal(struct {
			Message string        `json:"message"`
			Flow    *FlowResponse `json:"flow"`
		}{c.Text, c.Flow})
	case c.Flow != nil:
		return json.Marshal(c.Flow)
	default:
		return json.Marshal(c.Text)
	}
}

// UnmarshalJSON accepts every shape MarshalJSON produces
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Content{}
		return nil
	}

	if data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*c = TextContent(text)
		return nil
	}

	parsed, err := parseContentObject(data)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// parseContentObject decodes the object forms of content and of chat replies:
// {"content": ...}, {"role": ..., "content": ...}, {"agents": [...]} and
// {"message": ..., "flow": ...}.
func parseContentObject(data []byte) (Content, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Content{}, fmt.Errorf("content must be a string or an object: %w", err)
	}

	if _, ok := fields["agents"]; ok {
		var flow FlowResponse
		if err := json.Unmarshal(data, &flow); err != nil {
			return Content{}, fmt.Errorf("invalid flow: %w", err)
		}
		return FlowContent(&flow), nil
	}

	if rawFlow, ok := fields["flow"]; ok {
		var out Content
		if !isNull(rawFlow) {
			var flow FlowResponse
			if err := json.Unmarshal(rawFlow, &flow); err != nil {
				return Content{}, fmt.Errorf("invalid flow: %w", err)
			}
			out.Flow = &flow
		}
		if rawMessage, ok := fields["message"]; ok && !isNull(rawMessage) {
			var message Content
			if err := json.Unmarshal(rawMessage, &message); err != nil {
				return Content{}, fmt.Errorf("invalid message: %w", err)
			}
			out.Text = message.Text
			if out.Flow == nil {
				out.Flow = message.Flow
			}
		}
		return out, nil
	}

	if rawContent, ok := fields["content"]; ok {
		var inner Content
		if err := json.Unmarshal(rawContent, &inner); err != nil {
			return Content{}, err
		}
		return inner, nil
	}

	return Content{}, fmt.Errorf("unrecognised content object")
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// ParseReply decodes a /chat response body into assistant content
func ParseReply(body []byte) (Content, error) {
	var c Content
	if err := json.Unmarshal(body, &c); err != nil {
		return Content{}, err
	}
	if c.Text == "" && c.Flow == nil {
		return Content{}, fmt.Errorf("empty reply")
	}
	return c, nil
}

// Session is an independent append-only message log
type Session struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantFlow []string
		wantErr  bool
	}{
		{
			name:     "plain content",
			body:     `{"content":"meow"}`,
			wantText: "meow",
		},
		{
			name:     "role and content",
			body:     `{"role":"assistant","content":"purr"}`,
			wantText: "purr",
		},
		{
			name:     "flow response",
			body:     `{"agents":[{"name":"Lister","type":"filesystem","instructions":"ls","input_schema":"{}","output_schema":"{}"}]}`,
			wantFlow: []string{"Lister"},
		},
		{
			name:     "message and flow",
			body:     `{"message":"Here is the plan","flow":{"agents":[{"name":"A","type":"assistant"},{"name":"B","type":"assistant"}]}}`,
			wantText: "Here is the plan",
			wantFlow: []string{"A", "B"},
		},
		{
			name:     "message object and null flow",
			body:     `{"message":{"role":"assistant","content":"no plan needed"},"flow":null}`,
			wantText: "no plan needed",
		},
		{
			name:     "content holding a flow",
			body:     `{"role":"assistant","content":{"agents":[{"name":"A","type":"assistant"}]}}`,
			wantFlow: []string{"A"},
		},
		{
			name:    "unrecognised object",
			body:    `{"answer":"42"}`,
			wantErr: true,
		},
		{
			name:    "empty content",
			body:    `{"content":""}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
			if tt.wantFlow == nil {
				assert.Nil(t, got.Flow)
				return
			}
			require.NotNil(t, got.Flow)
			assert.Equal(t, tt.wantFlow, got.Flow.Names())
		})
	}
}

func TestMessageJSON(t *testing.T) {
	flow := &FlowResponse{Agents: []Agent{{Name: "A", Type: AgentTypeAssistant, Instructions: "say hi"}}}

	tests := []struct {
		name    string
		message Message
		want    string
	}{
		{
			name:    "user text",
			message: Message{Role: RoleUser, Content: TextContent("hello")},
			want:    `{"role":"user","content":"hello"}`,
		},
		{
			name:    "assistant flow",
			message: Message{Role: RoleAssistant, Content: FlowContent(flow)},
			want:    `{"role":"assistant","content":{"agents":[{"name":"A","type":"assistant","instructions":"say hi"}]}}`,
		},
		{
			name:    "assistant text and flow",
			message: Message{Role: RoleAssistant, Content: Content{Text: "plan", Flow: flow}},
			want:    `{"role":"assistant","content":{"message":"plan","flow":{"agents":[{"name":"A","type":"assistant","instructions":"say hi"}]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.message)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Message
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.message.Role, back.Role)
			assert.Equal(t, tt.message.Content.Text, back.Content.Text)
			assert.Equal(t, tt.message.Content.IsFlow(), back.Content.IsFlow())
		})
	}
}

func TestFlowValidate(t *testing.T) {
	tests := []struct {
		name    string
		flow    *FlowResponse
		wantErr bool
	}{
		{"valid", &FlowResponse{Agents: []Agent{{Name: "A", Type: "assistant"}, {Name: "B", Type: "filesystem"}}}, false},
		{"nil flow", nil, true},
		{"no agents", &FlowResponse{}, true},
		{"missing name", &FlowResponse{Agents: []Agent{{Type: "assistant"}}}, true},
		{"missing type", &FlowResponse{Agents: []Agent{{Name: "A"}}}, true},
		{"name with marker", &FlowResponse{Agents: []Agent{{Name: "a::b", Type: "assistant"}}}, true},
		{"duplicate names", &FlowResponse{Agents: []Agent{{Name: "A", Type: "assistant"}, {Name: "A", Type: "assistant"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flow.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchemaString(t *testing.T) {
	assert.Equal(t, "", SchemaString(nil))
	assert.Equal(t, "", SchemaString(json.RawMessage("null")))
	assert.Equal(t, `{"path": "string"}`, SchemaString(json.RawMessage(`"{\"path\": \"string\"}"`)))
	assert.Equal(t, "{\n  \"type\": \"object\"\n}", SchemaString(json.RawMessage(`{"type":"object"}`)))
}

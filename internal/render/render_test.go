package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatmodels "github.com/deepgram/catgpt/internal/domain/chat/models"
	expensemodels "github.com/deepgram/catgpt/internal/domain/expense/models"
	"github.com/deepgram/catgpt/internal/services/flowrun"
	"github.com/deepgram/catgpt/internal/stream"
)

func TestExpenses(t *testing.T) {
	tests := []struct {
		name     string
		expenses []expensemodels.Expense
		want     []string
	}{
		{
			name: "Empty",
			want: []string{EmptyExpenses},
		},
		{
			name: "Coffee",
			expenses: []expensemodels.Expense{
				{ID: 1, Desc: "Coffee", Amount: 3.5, Date: time.Now()},
			},
			want: []string{"Description", "Coffee", "$3.50", "now"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf).Expenses(tt.expenses)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "$3.50", Amount(3.5))
	assert.Equal(t, "$0.00", Amount(0))
	assert.Equal(t, "$1234.57", Amount(1234.567))
}

func TestMessage(t *testing.T) {
	flow := &chatmodels.FlowResponse{Agents: []chatmodels.Agent{{
		Name:         "Writer",
		Type:         chatmodels.AgentTypeAssistant,
		Instructions: "write",
		InputSchema:  json.RawMessage(`{"type":"string"}`),
	}}}

	var buf bytes.Buffer
	r := New(&buf)
	r.Message(chatmodels.Message{Role: chatmodels.RoleUser, Content: chatmodels.TextContent("hi")})
	r.Message(chatmodels.Message{Role: chatmodels.RoleAssistant, Content: chatmodels.Content{Text: "plan", Flow: flow}})

	out := buf.String()
	assert.Contains(t, out, "you> hi")
	assert.Contains(t, out, "catgpt> plan")
	assert.Contains(t, out, "1. Writer (assistant)")
	assert.Contains(t, out, "Instructions: write")
	assert.Contains(t, out, `"type": "string"`)
}

func TestRunStatus(t *testing.T) {
	flow := &chatmodels.FlowResponse{Agents: []chatmodels.Agent{
		{Name: "A", Type: chatmodels.AgentTypeAssistant},
		{Name: "B", Type: chatmodels.AgentTypeAssistant},
	}}
	state := flowrun.NewExecutionResult(flow)
	state, _ = flowrun.Apply(state, stream.Event{Kind: stream.Start, Agent: "A"})
	state, _ = flowrun.Apply(state, stream.Event{Kind: stream.Chunk, Text: "hello"})

	var buf bytes.Buffer
	New(&buf).RunStatus(state)

	out := buf.String()
	assert.Contains(t, out, "[running] A")
	assert.Contains(t, out, "    hello")
	assert.Contains(t, out, "[planned] B")
	assert.Equal(t, "A:running B:planned", RunLine(state))
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	plain := New(&buf)
	assert.Equal(t, "**bold**", plain.Markdown("**bold**"))

	styled, err := NewWithStyle(&buf, "notty", 60)
	require.NoError(t, err)
	out := styled.Markdown("# Title\n\n**bold** text")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "bold")
}

func TestSessions(t *testing.T) {
	sessions := []chatmodels.Session{
		{ID: "a", Messages: []chatmodels.Message{{Role: chatmodels.RoleUser, Content: chatmodels.TextContent("first chat")}}},
		{ID: "b"},
	}

	var buf bytes.Buffer
	New(&buf).Sessions(sessions, "b")

	out := buf.String()
	assert.Contains(t, out, "  1. first chat (1 message)")
	assert.Contains(t, out, "* 2. New chat (0 messages)")
}

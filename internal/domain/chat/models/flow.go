package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Agent types the backend knows how to run
const (
	AgentTypeAssistant   = "assistant"
	AgentTypeFilesystem  = "filesystem"
	AgentTypeComputerUse = "computeruse"
)

// Agent is a single step of a flow
type Agent struct {
	Name         string          `json:"name" validate:"required"`
	Type         string          `json:"type" validate:"required"`
	Instructions string          `json:"instructions"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	Result       *string         `json:"result,omitempty"`
}

// FlowResponse is an ordered list of agents; the order is the execution order
type FlowResponse struct {
	Agents []Agent `json:"agents" validate:"required,min=1,dive"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance; it caches struct info.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that the flow can be run: at least one agent, every agent
// named and typed, names unique and free of the "::" stream marker.
func (f *FlowResponse) Validate() error {
	if f == nil {
		return fmt.Errorf("flow is nil")
	}
	if err := Validator().Struct(f); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(f.Agents))
	for _, agent := range f.Agents {
		if strings.Contains(agent.Name, "::") {
			return fmt.Errorf("agent name %q must not contain \"::\"", agent.Name)
		}
		if _, dup := seen[agent.Name]; dup {
			return fmt.Errorf("duplicate agent name %q", agent.Name)
		}
		seen[agent.Name] = struct{}{}
	}
	return nil
}

// Names returns agent names in execution order
func (f *FlowResponse) Names() []string {
	names := make([]string, len(f.Agents))
	for i, agent := range f.Agents {
		names[i] = agent.Name
	}
	return names
}

// SchemaString renders a schema for display. String schemas are returned
// unquoted, objects are indented.
func SchemaString(raw json.RawMessage) string {
	if len(raw) == 0 || isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return strings.TrimSpace(string(raw))
	}
	return string(pretty)
}

package flowrun

import (
	"github.com/deepgram/catgpt/internal/domain/chat/models"
	"github.com/deepgram/catgpt/internal/stream"
)

// RunStatus is the execution state of one agent
type RunStatus string

const (
	Planned   RunStatus = "planned"
	Running   RunStatus = "running"
	Completed RunStatus = "completed"
)

// FlowExecutionResult is the run state of a flow. Status and Response only hold
// agents that received a start event; agents of the plan that never started
// are reported planned by StatusOf.
type FlowExecutionResult struct {
	Plan     []string             `json:"plan,omitempty"`
	Status   map[string]RunStatus `json:"status"`
	Response map[string]string    `json:"response"`
	Open     string               `json:"open,omitempty"`
}

// NewExecutionResult returns the empty state for a flow. flow may be nil.
func NewExecutionResult(flow *models.FlowResponse) FlowExecutionResult {
	r := FlowExecutionResult{
		Status:   map[string]RunStatus{},
		Response: map[string]string{},
	}
	if flow != nil {
		r.Plan = flow.Names()
	}
	return r
}

// StatusOf returns the agent's status, planned for agents of the plan that
// have not started and "" for unknown agents.
func (r FlowExecutionResult) StatusOf(name string) RunStatus {
	if s, ok := r.Status[name]; ok {
		return s
	}
	for _, planned := range r.Plan {
		if planned == name {
			return Planned
		}
	}
	return ""
}

// Completed reports whether every planned agent completed.
func (r FlowExecutionResult) Completed() bool {
	if len(r.Plan) == 0 {
		return false
	}
	for _, name := range r.Plan {
		if r.Status[name] != Completed {
			return false
		}
	}
	return true
}

func (r FlowExecutionResult) clone() FlowExecutionResult {
	out := FlowExecutionResult{
		Plan:     r.Plan,
		Status:   make(map[string]RunStatus, len(r.Status)+1),
		Response: make(map[string]string, len(r.Response)+1),
		Open:     r.Open,
	}
	for k, v := range r.Status {
		out.Status[k] = v
	}
	for k, v := range r.Response {
		out.Response[k] = v
	}
	return out
}

// Apply returns the state after ev and whether ev changed it. r is never
// modified.
func Apply(r FlowExecutionResult, ev stream.Event) (FlowExecutionResult, bool) {
	switch ev.Kind {
	case stream.Start:
		if ev.Agent == "" {
			return r, false
		}
		next := r.clone()
		if next.Open != "" && next.Open != ev.Agent {
			next.Status[next.Open] = Completed
		}
		next.Status[ev.Agent] = Running
		next.Response[ev.Agent] = ""
		next.Open = ev.Agent
		return next, true

	case stream.Chunk:
		if r.Open == "" || ev.Text == "" || (ev.Agent != "" && ev.Agent != r.Open) {
			return r, false
		}
		next := r.clone()
		next.Response[next.Open] += ev.Text
		return next, true

	case stream.End:
		if r.Open == "" || (ev.Agent != "" && ev.Agent != r.Open) {
			return r, false
		}
		next := r.clone()
		next.Status[next.Open] = Completed
		next.Open = ""
		return next, true

	case stream.Done:
		if r.Open == "" {
			return r, false
		}
		next := r.clone()
		next.Status[next.Open] = Completed
		next.Open = ""
		return next, true
	}
	return r, false
}

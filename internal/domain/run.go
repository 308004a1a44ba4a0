package domain

import (
	"encoding/json"
	"fmt"
)

// Run represents one asynchronous unit of assistant work attached to a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
	CreatedAt      int64           `json:"created_at,omitempty"`
}

// RequiredAction is present when the run waits for the client.
type RequiredAction struct {
	Type              RequiredActionType `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the tool calls the client must answer.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RunError) String() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToolCall is a request for the client to execute a function.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Args returns the arguments as raw JSON, substituting an empty object when absent.
func (c ToolCall) Args() json.RawMessage {
	if c.Function.Arguments == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(c.Function.Arguments)
}

// ToolOutput is the client's answer to one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// PendingToolCalls returns the tool calls of a submit_tool_outputs action, or nil.
func (r *Run) PendingToolCalls() []ToolCall {
	if r == nil || r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// NeedsToolOutputs reports whether the run waits for tool outputs.
func (r *Run) NeedsToolOutputs() bool {
	return r != nil &&
		r.Status == RunStatusRequiresAction &&
		r.RequiredAction != nil &&
		r.RequiredAction.Type == RequiredActionSubmitToolOutputs
}

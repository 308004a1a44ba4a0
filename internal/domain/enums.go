// Package domain defines the core models shared by the session controller and its backends.
package domain

// RunStatus represents the status of an assistant run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// IsActive reports whether the run is still being worked on by the remote service.
func (s RunStatus) IsActive() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusCancelling:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can occur.
// Unknown statuses are terminal.
func (s RunStatus) IsTerminal() bool {
	return !s.IsActive() && s != RunStatusRequiresAction
}

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType is the discriminant of a message content part.
type ContentType string

const (
	ContentTypeText      ContentType = "text"
	ContentTypeImageFile ContentType = "image_file"
	ContentTypeImageURL  ContentType = "image_url"
	ContentTypeRefusal   ContentType = "refusal"
)

// RequiredActionType identifies what a paused run needs from the client.
type RequiredActionType string

const (
	RequiredActionSubmitToolOutputs RequiredActionType = "submit_tool_outputs"
)

// ToolTypeFunction is the only tool call type the client executes.
const ToolTypeFunction = "function"

package domain

// CreateThreadResponse is returned by POST /v1/threads.
type CreateThreadResponse struct {
	ThreadID string `json:"thread_id"`
}

// SubmitToolOutputsRequest is the body of POST /v1/threads/:thread_id/runs/:run_id/submit_tool_outputs.
type SubmitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

// ListMessagesResponse is returned by GET /v1/threads/:thread_id/messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// GetCatsRequest is the body of POST /get_cats.
type GetCatsRequest struct {
	Breed string `json:"breed,omitempty"`
	Count int    `json:"count"`
}

// ErrorResponse represents an error response from the gateway.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeToolMismatch   = "tool_output_mismatch"
	ErrorCodeUpstream       = "upstream_error"
)

// Package assistant provides an abstraction over the remote assistant service.
package assistant

import (
	"context"

	"github.com/s0ngyang/catai/internal/domain"
)

// Client defines the thread, message and run operations the session controller relies on.
type Client interface {
	// CreateThread creates an empty conversation thread and returns its ID.
	CreateThread(ctx context.Context) (string, error)

	// AddMessage posts a user message to the thread and starts a run for it.
	AddMessage(ctx context.Context, threadID string, req domain.MessageRequest) (*domain.AddMessageResult, error)

	// GetRun retrieves the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error)

	// ListMessages returns every message of the thread.
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)

	// SubmitToolOutputs answers the pending tool calls of a run.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*domain.Run, error)
}

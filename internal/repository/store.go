// Package store persists threads, messages and runs for the mock assistant backend.
package store

import (
	"context"

	"github.com/s0ngyang/catai/internal/domain"
)

// RunRecord is a stored run plus the bookkeeping the backend needs to advance it.
type RunRecord struct {
	domain.Run

	// Prompt is the user text that started the run.
	Prompt string
	// ToolOutputs holds the outputs submitted by the client, if any.
	ToolOutputs []domain.ToolOutput
	UpdatedAt   int64
}

// Store defines the interface for data persistence.
type Store interface {
	// Thread operations
	CreateThread(ctx context.Context, thread *domain.Thread) error
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, threadID string) ([]domain.Message, error)

	// Run operations
	CreateRun(ctx context.Context, run *RunRecord) error
	GetRun(ctx context.Context, threadID, runID string) (*RunRecord, error)
	GetActiveRun(ctx context.Context, threadID string) (*RunRecord, error)
	UpdateRun(ctx context.Context, run *RunRecord) error

	// Lifecycle
	Close() error
}

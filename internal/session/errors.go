package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/tools"
)

var (
	// ErrBusy is returned when a turn is sent while another one is in flight.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")

	ErrUnknownTool        = tools.ErrUnknownTool
	ErrToolOutputMismatch = domain.ErrToolOutputMismatch
)

// TransportError reports a failed call to the assistant service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RunFailedError reports a run that settled in a status other than completed.
type RunFailedError struct {
	RunID     string
	Status    domain.RunStatus
	LastError *domain.RunError
}

func (e *RunFailedError) Error() string {
	if e.LastError != nil {
		return fmt.Sprintf("run %s %s: %s", e.RunID, e.Status, e.LastError)
	}
	return fmt.Sprintf("run %s %s", e.RunID, e.Status)
}

// outcome labels a settled turn for metrics.
func outcome(err error) string {
	var transportErr *TransportError
	var runErr *RunFailedError
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrToolOutputMismatch):
		return "tool_output_mismatch"
	case errors.As(err, &runErr):
		return string(runErr.Status)
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &transportErr):
		return "transport_error"
	}
	return "error"
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a thread or run does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a thread already has an active run.
	ErrConflict = errors.New("thread already has an active run")
	// ErrInvalidRequest is returned for malformed or out-of-state requests.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrToolOutputMismatch is returned when tool outputs do not exactly cover the pending tool calls.
	ErrToolOutputMismatch = errors.New("tool outputs do not match pending tool calls")
)

// MatchToolOutputs checks that outputs answer exactly the given calls, each once.
func MatchToolOutputs(calls []ToolCall, outputs []ToolOutput) error {
	pending := make(map[string]bool, len(calls))
	for _, c := range calls {
		pending[c.ID] = false
	}

	var unexpected, duplicate []string
	for _, o := range outputs {
		answered, ok := pending[o.ToolCallID]
		switch {
		case !ok:
			unexpected = append(unexpected, o.ToolCallID)
		case answered:
			duplicate = append(duplicate, o.ToolCallID)
		default:
			pending[o.ToolCallID] = true
		}
	}

	var missing []string
	for id, answered := range pending {
		if !answered {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 && len(duplicate) == 0 {
		return nil
	}

	sort.Strings(missing)
	var details []string
	if len(missing) > 0 {
		details = append(details, "missing "+strings.Join(missing, ","))
	}
	if len(unexpected) > 0 {
		details = append(details, "unexpected "+strings.Join(unexpected, ","))
	}
	if len(duplicate) > 0 {
		details = append(details, "duplicate "+strings.Join(duplicate, ","))
	}
	return fmt.Errorf("%w: %s", ErrToolOutputMismatch, strings.Join(details, "; "))
}

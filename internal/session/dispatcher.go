package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/observability"
	"github.com/s0ngyang/catai/internal/policy"
	"github.com/s0ngyang/catai/internal/tools"
)

// UnknownToolPolicy decides what happens to calls naming a tool the client does not know.
type UnknownToolPolicy string

const (
	// UnknownToolReport answers unknown calls with an error output so the run can go on.
	UnknownToolReport UnknownToolPolicy = "report"
	// UnknownToolSkip produces no output for unknown calls. The incomplete output set is
	// then rejected before submission.
	UnknownToolSkip UnknownToolPolicy = "skip"
)

// Dispatcher executes the tool calls of a run and submits their outputs.
type Dispatcher struct {
	client      assistant.Client
	registry    *tools.Registry
	policy      *policy.Engine
	unknown     UnknownToolPolicy
	toolTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Dispatch answers every pending call of run and submits the outputs. On acknowledgement
// the call ids are added to handled.
func (d *Dispatcher) Dispatch(ctx context.Context, threadID string, run *domain.Run, handled map[string]bool) error {
	if !run.NeedsToolOutputs() {
		return fmt.Errorf("run %s does not need tool outputs", run.ID)
	}
	calls := run.PendingToolCalls()

	outputs := make([]domain.ToolOutput, 0, len(calls))
	for _, call := range calls {
		if out, ok := d.execute(ctx, call); ok {
			outputs = append(outputs, out)
		}
	}
	if len(outputs) == 0 {
		return fmt.Errorf("%w: no outputs produced for run %s", ErrToolOutputMismatch, run.ID)
	}
	if err := domain.MatchToolOutputs(calls, outputs); err != nil {
		return err
	}

	if _, err := d.client.SubmitToolOutputs(ctx, threadID, run.ID, outputs); err != nil {
		return &TransportError{Op: "submit tool outputs", Err: err}
	}
	for _, call := range calls {
		handled[call.ID] = true
	}
	d.logger.Info("submitted tool outputs", "run_id", run.ID, "count", len(outputs))
	return nil
}

// execute runs one call. It reports false when the call gets no output at all.
func (d *Dispatcher) execute(ctx context.Context, call domain.ToolCall) (domain.ToolOutput, bool) {
	started := time.Now()
	name := call.Function.Name
	logger := d.logger.With("tool_call_id", call.ID, "tool_name", name)

	known := d.registry != nil && d.registry.Has(name)
	if call.Type != "" && call.Type != domain.ToolTypeFunction {
		known = false
	}
	if !known {
		d.metrics.ToolExecuted(name, "unknown", started)
		if d.unknown == UnknownToolSkip {
			logger.Warn("skipping unknown tool call")
			return domain.ToolOutput{}, false
		}
		logger.Warn("reporting unknown tool call")
		return errorOutput(call.ID, fmt.Errorf("%w: %s", ErrUnknownTool, name)), true
	}

	args := call.Args()
	if d.policy != nil {
		decision, err := d.policy.Evaluate(ctx, name, args)
		if err != nil {
			logger.Error("policy evaluation failed", "error", err)
			d.metrics.ToolExecuted(name, "error", started)
			return errorOutput(call.ID, err), true
		}
		if !decision.Allow {
			logger.Warn("tool call denied by policy", "reasons", decision.Reasons)
			d.metrics.ToolExecuted(name, "denied", started)
			return errorOutput(call.ID, fmt.Errorf("denied: %s", strings.Join(decision.Reasons, "; "))), true
		}
	}

	toolCtx := ctx
	if d.toolTimeout > 0 {
		var cancel context.CancelFunc
		toolCtx, cancel = context.WithTimeout(ctx, d.toolTimeout)
		defer cancel()
	}

	result, err := d.registry.Execute(toolCtx, name, args)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		logger.Error("tool execution failed", "error", err)
		d.metrics.ToolExecuted(name, status, started)
		return errorOutput(call.ID, err), true
	}

	d.metrics.ToolExecuted(name, "success", started)
	logger.Info("tool executed", "duration_ms", time.Since(started).Milliseconds())
	return domain.ToolOutput{ToolCallID: call.ID, Output: string(result)}, true
}

func errorOutput(callID string, err error) domain.ToolOutput {
	raw, _ := json.Marshal(map[string]string{"error": err.Error()})
	return domain.ToolOutput{ToolCallID: callID, Output: string(raw)}
}

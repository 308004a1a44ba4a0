package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/observability"
)

// DefaultPollInterval is the delay between two status queries of a run.
const DefaultPollInterval = 500 * time.Millisecond

// Poller drives one run until it completes or needs tool outputs.
type Poller struct {
	client   assistant.Client
	state    *State
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// PollUntilSettled queries the run every interval until it settles. It returns the run
// when it completed (after the local message list was refreshed) or when it needs tool
// outputs for calls not in handled. A requires_action whose calls are all in handled is
// stale and polling goes on.
func (p *Poller) PollUntilSettled(ctx context.Context, threadID, runID string, handled map[string]bool) (*domain.Run, error) {
	sched := newSchedule(p.interval)
	defer sched.stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-sched.C():
		}

		run, err := p.client.GetRun(ctx, threadID, runID)
		if err != nil {
			p.metrics.PollQuery("error")
			return nil, &TransportError{Op: "get run", Err: err}
		}
		p.metrics.PollQuery(string(run.Status))
		p.logger.Debug("polled run", "run_id", runID, "status", run.Status)

		switch {
		case run.Status.IsActive():
			sched.rearm()

		case run.Status == domain.RunStatusCompleted:
			if err := p.refresh(ctx, threadID); err != nil {
				return nil, err
			}
			return run, nil

		case run.Status == domain.RunStatusRequiresAction:
			if !run.NeedsToolOutputs() {
				action := ""
				if run.RequiredAction != nil {
					action = string(run.RequiredAction.Type)
				}
				return nil, &RunFailedError{
					RunID:     runID,
					Status:    run.Status,
					LastError: &domain.RunError{Code: "unsupported_action", Message: "unsupported required action " + action},
				}
			}
			if allHandled(run.PendingToolCalls(), handled) {
				p.logger.Debug("ignoring stale requires_action", "run_id", runID)
				sched.rearm()
				continue
			}
			return run, nil

		case run.Status.IsTerminal():
			return nil, &RunFailedError{RunID: runID, Status: run.Status, LastError: run.LastError}
		}
	}
}

// refresh replaces the local messages with the thread's authoritative list.
func (p *Poller) refresh(ctx context.Context, threadID string) error {
	messages, err := p.client.ListMessages(ctx, threadID)
	if err != nil {
		return &TransportError{Op: "list messages", Err: err}
	}
	p.state.replaceMessages(messages)
	return nil
}

func allHandled(calls []domain.ToolCall, handled map[string]bool) bool {
	if len(calls) == 0 {
		return false
	}
	for _, c := range calls {
		if !handled[c.ID] {
			return false
		}
	}
	return true
}

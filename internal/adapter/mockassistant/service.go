// Package mockassistant is a scripted assistant backend used for local runs and tests.
//
// A run advances one step each time it is retrieved: queued, in_progress, then either
// requires_action (when the prompt asks for cats and no outputs were submitted yet) or
// completed with a canned reply.
package mockassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s0ngyang/catai/internal/domain"
	store "github.com/s0ngyang/catai/internal/repository"
	"github.com/s0ngyang/catai/internal/tools"
)

// FailMarker in a prompt makes the run fail instead of completing.
const FailMarker = "#fail"

var (
	catWordPattern  = regexp.MustCompile(`(?i)\b(?:cats?|kittens?|kitty|kitties)\b`)
	catCountPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(?:\w+\s+)?(?:cats?|kittens?|kitties)\b`)
)

// Service is the scripted backend.
type Service struct {
	store store.Store
	now   func() time.Time

	// mu serializes run transitions so concurrent GetRun calls advance a run once.
	mu sync.Mutex
}

// New creates a scripted backend on top of s.
func New(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// CreateThread creates an empty thread.
func (s *Service) CreateThread(ctx context.Context) (string, error) {
	thread := &domain.Thread{
		ID:        "thread_" + uuid.New().String(),
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	return thread.ID, nil
}

// AddMessage stores the user message and queues a run for it.
func (s *Service) AddMessage(ctx context.Context, threadID string, req domain.MessageRequest) (*domain.AddMessageResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireThread(ctx, threadID); err != nil {
		return nil, err
	}
	active, err := s.store.GetActiveRun(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active run: %w", err)
	}
	if active != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrConflict, active.ID)
	}

	now := s.now().Unix()
	runID := "run_" + uuid.New().String()
	msg := &domain.Message{
		ID:        "msg_" + uuid.New().String(),
		ThreadID:  threadID,
		Role:      domain.RoleUser,
		Content:   []domain.ContentPart{domain.TextPart(req.Content)},
		CreatedAt: now,
	}
	if req.Nonce != "" {
		msg.Metadata = map[string]any{domain.MetadataClientNonce: req.Nonce}
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	run := &store.RunRecord{
		Run: domain.Run{
			ID:        runID,
			ThreadID:  threadID,
			Status:    domain.RunStatusQueued,
			CreatedAt: now,
		},
		Prompt: req.Content,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return &domain.AddMessageResult{RunID: runID, Message: *msg}, nil
}

// GetRun returns the run after advancing it by one step.
func (s *Service) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.store.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}

	changed, err := s.advance(ctx, run)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.store.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to update run: %w", err)
		}
	}

	out := run.Run
	return &out, nil
}

// ListMessages returns the messages of a thread in creation order.
func (s *Service) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	if err := s.requireThread(ctx, threadID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// SubmitToolOutputs accepts outputs only when they answer every pending call exactly once.
func (s *Service) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.store.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	if !run.NeedsToolOutputs() {
		return nil, fmt.Errorf("%w: run %s is %s", domain.ErrInvalidRequest, runID, run.Status)
	}
	if err := domain.MatchToolOutputs(run.PendingToolCalls(), outputs); err != nil {
		return nil, err
	}

	run.ToolOutputs = outputs
	run.RequiredAction = nil
	run.Status = domain.RunStatusInProgress
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to update run: %w", err)
	}

	out := run.Run
	return &out, nil
}

func (s *Service) requireThread(ctx context.Context, threadID string) error {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to get thread: %w", err)
	}
	if thread == nil {
		return fmt.Errorf("%w: thread %s", domain.ErrNotFound, threadID)
	}
	return nil
}

// advance applies one scripted transition and reports whether the run changed.
func (s *Service) advance(ctx context.Context, run *store.RunRecord) (bool, error) {
	switch run.Status {
	case domain.RunStatusQueued:
		run.Status = domain.RunStatusInProgress
		return true, nil

	case domain.RunStatusInProgress:
		if strings.Contains(run.Prompt, FailMarker) {
			run.Status = domain.RunStatusFailed
			run.LastError = &domain.RunError{Code: "server_error", Message: "scripted failure"}
			return true, nil
		}
		if count, ok := requestedCats(run.Prompt); ok && run.ToolOutputs == nil {
			args, _ := json.Marshal(tools.CatImageArgs{Count: count})
			run.Status = domain.RunStatusRequiresAction
			run.RequiredAction = &domain.RequiredAction{
				Type: domain.RequiredActionSubmitToolOutputs,
				SubmitToolOutputs: &domain.SubmitToolOutputs{ToolCalls: []domain.ToolCall{{
					ID:       "call_" + uuid.New().String(),
					Type:     domain.ToolTypeFunction,
					Function: domain.FunctionCall{Name: tools.CatImageToolName, Arguments: string(args)},
				}}},
			}
			return true, nil
		}

		reply := &domain.Message{
			ID:        "msg_" + uuid.New().String(),
			ThreadID:  run.ThreadID,
			RunID:     run.ID,
			Role:      domain.RoleAssistant,
			Content:   []domain.ContentPart{domain.TextPart(replyFor(run))},
			CreatedAt: s.now().Unix(),
		}
		if err := s.store.CreateMessage(ctx, reply); err != nil {
			return false, fmt.Errorf("failed to create reply: %w", err)
		}
		run.Status = domain.RunStatusCompleted
		return true, nil
	}
	return false, nil
}

// requestedCats reports how many cat pictures the prompt asks for.
func requestedCats(prompt string) (int, bool) {
	if m := catCountPattern.FindStringSubmatch(prompt); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 1, catWordPattern.MatchString(prompt)
}

func replyFor(run *store.RunRecord) string {
	if run.ToolOutputs == nil {
		return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(run.Prompt, 100))
	}

	var shown int
	for _, o := range run.ToolOutputs {
		var result tools.CatImageResult
		if err := json.Unmarshal([]byte(o.Output), &result); err == nil {
			shown += result.Count
		}
	}
	if shown == 0 {
		return "[MOCK] I could not find any cat pictures this time."
	}
	if shown == 1 {
		return "[MOCK] Here is a cat picture for you!"
	}
	return fmt.Sprintf("[MOCK] Here are %d cat pictures for you!", shown)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/logging"
)

// step is one scripted answer to GetRun.
type step struct {
	run *domain.Run
	err error
}

// fakeClient is a scripted assistant backend. GetRun pops steps in order and keeps
// returning the last one once the script is exhausted.
type fakeClient struct {
	mu sync.Mutex

	threadGate   chan struct{}
	threadErrs   []error
	threadCalls  int
	addGate      chan struct{}
	addErr       error
	addCalls     []domain.MessageRequest
	script       []step
	queries      int
	inFlight     int
	maxInFlight  int
	spans        [][2]time.Time
	messages     []domain.Message
	submitErr    error
	submissions  [][]domain.ToolOutput
	listMessages int
}

func (f *fakeClient) CreateThread(ctx context.Context) (string, error) {
	if f.threadGate != nil {
		<-f.threadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls++
	if len(f.threadErrs) > 0 {
		err := f.threadErrs[0]
		f.threadErrs = f.threadErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "thread_1", nil
}

func (f *fakeClient) AddMessage(ctx context.Context, threadID string, req domain.MessageRequest) (*domain.AddMessageResult, error) {
	if f.addGate != nil {
		select {
		case <-f.addGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, req)
	if f.addErr != nil {
		return nil, f.addErr
	}
	msg := domain.Message{
		ID:        "msg_user",
		ThreadID:  threadID,
		Role:      domain.RoleUser,
		Content:   []domain.ContentPart{domain.TextPart(req.Content)},
		CreatedAt: 100,
		Metadata:  map[string]any{domain.MetadataClientNonce: req.Nonce},
	}
	return &domain.AddMessageResult{RunID: "run_1", Message: msg}, nil
}

func (f *fakeClient) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	f.mu.Lock()
	f.queries++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	start := time.Now()
	var s step
	if len(f.script) > 0 {
		s = f.script[0]
		if len(f.script) > 1 {
			f.script = f.script[1:]
		}
	}
	f.mu.Unlock()

	// Give an overlapping query a chance to show up.
	time.Sleep(200 * time.Microsecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.spans = append(f.spans, [2]time.Time{start, time.Now()})

	if s.err != nil {
		return nil, s.err
	}
	if s.run == nil {
		return nil, errors.New("script exhausted")
	}
	run := *s.run
	run.ID = runID
	run.ThreadID = threadID
	return &run, nil
}

func (f *fakeClient) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listMessages++
	return append([]domain.Message(nil), f.messages...), nil
}

func (f *fakeClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submissions = append(f.submissions, outputs)
	return &domain.Run{ID: runID, ThreadID: threadID, Status: domain.RunStatusInProgress}, nil
}

func (f *fakeClient) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeClient) submitted() [][]domain.ToolOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.ToolOutput(nil), f.submissions...)
}

func status(s domain.RunStatus) step {
	return step{run: &domain.Run{Status: s}}
}

func requiresAction(calls ...domain.ToolCall) step {
	return step{run: &domain.Run{
		Status: domain.RunStatusRequiresAction,
		RequiredAction: &domain.RequiredAction{
			Type:              domain.RequiredActionSubmitToolOutputs,
			SubmitToolOutputs: &domain.SubmitToolOutputs{ToolCalls: calls},
		},
	}}
}

func toolCall(id, name, args string) domain.ToolCall {
	return domain.ToolCall{ID: id, Type: domain.ToolTypeFunction, Function: domain.FunctionCall{Name: name, Arguments: args}}
}

func newTestController(t *testing.T, client *fakeClient, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithLogger(logging.Discard()),
		WithPollInterval(time.Millisecond),
	}
	c := New(client, append(base, opts...)...)
	t.Cleanup(func() { c.Close() })
	return c
}

// fakeFetcher serves count copies of a fixed image.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeFetcher) FetchImages(ctx context.Context, count int, breed string) ([]domain.CatImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	images := make([]domain.CatImage, 0, count)
	for i := 0; i < count; i++ {
		images = append(images, domain.CatImage{ID: string(rune('a' + i)), URL: "https://cdn/cat" + string(rune('a'+i)) + ".jpg"})
	}
	return images, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Package session implements the run lifecycle of a chat session: thread creation,
// optimistic message sending, run polling and client-side tool dispatch.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/observability"
	"github.com/s0ngyang/catai/internal/policy"
	"github.com/s0ngyang/catai/internal/tools"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPollInterval sets the delay between status queries.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithRegistry sets the tools the session may execute.
func WithRegistry(r *tools.Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// WithPolicy sets the policy consulted before each tool execution.
func WithPolicy(e *policy.Engine) Option {
	return func(c *Controller) { c.policy = e }
}

// WithUnknownToolPolicy sets how calls to unknown tools are answered.
func WithUnknownToolPolicy(p UnknownToolPolicy) Option {
	return func(c *Controller) { c.unknown = p }
}

// WithToolTimeout bounds each tool execution.
func WithToolTimeout(d time.Duration) Option {
	return func(c *Controller) { c.toolTimeout = d }
}

// WithClock overrides the clock used for placeholders.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the thread of one chat session and sequences its turns.
type Controller struct {
	client assistant.Client
	state  *State

	logger       *slog.Logger
	metrics      *observability.Metrics
	pollInterval time.Duration
	registry     *tools.Registry
	policy       *policy.Engine
	unknown      UnknownToolPolicy
	toolTimeout  time.Duration
	now          func() time.Time

	channel    *Channel
	poller     *Poller
	dispatcher *Dispatcher

	threads singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	lastErr error
}

// New creates a session controller on top of client.
func New(client assistant.Client, opts ...Option) *Controller {
	c := &Controller{
		client:       client,
		state:        newState(),
		logger:       slog.Default(),
		pollInterval: DefaultPollInterval,
		unknown:      UnknownToolReport,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = tools.NewRegistry()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.channel = &Channel{client: client, state: c.state, now: c.now}
	c.poller = &Poller{
		client:   client,
		state:    c.state,
		interval: c.pollInterval,
		logger:   c.logger,
		metrics:  c.metrics,
	}
	c.dispatcher = &Dispatcher{
		client:      client,
		registry:    c.registry,
		policy:      c.policy,
		unknown:     c.unknown,
		toolTimeout: c.toolTimeout,
		logger:      c.logger,
		metrics:     c.metrics,
	}
	return c
}

// Registry returns the tools available to the session.
func (c *Controller) Registry() *tools.Registry {
	return c.registry
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() Snapshot {
	return c.state.Snapshot()
}

// Subscribe streams snapshots after each state change. See State.Subscribe.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	return c.state.Subscribe()
}

// SetImages replaces the displayed images. Tools use it as their image sink.
func (c *Controller) SetImages(urls []string) {
	c.state.SetImages(urls)
}

// EnsureThread creates the session thread unless it exists. Concurrent callers share a
// single creation bound to the session's lifetime; ctx only limits how long this caller
// waits for it. A failed creation may be retried by a later call.
func (c *Controller) EnsureThread(ctx context.Context) (string, error) {
	if id := c.state.threadID(); id != "" {
		return id, nil
	}

	ch := c.threads.DoChan("thread", func() (any, error) {
		if id := c.state.threadID(); id != "" {
			return id, nil
		}
		id, err := c.client.CreateThread(c.ctx)
		if err != nil {
			return "", &TransportError{Op: "create thread", Err: err}
		}
		c.state.setThreadID(id)
		c.logger.Info("thread created", "thread_id", id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// SendUserTurn sends text as a new user turn. Blank text is ignored. The placeholder is
// visible in the snapshot when SendUserTurn returns; the rest of the turn runs in the
// background and its result is reported by Wait and the snapshot's Error.
func (c *Controller) SendUserTurn(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if !c.state.acquire() {
		return ErrBusy
	}

	placeholder := c.channel.Stage(text)
	done := make(chan struct{})
	c.done = done
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		defer close(done)

		started := time.Now()
		err := c.runTurn(c.ctx, placeholder)

		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()

		errMsg := ""
		if err != nil && !errors.Is(err, context.Canceled) {
			errMsg = err.Error()
			c.logger.Error("turn failed", "error", err)
		}
		c.state.release(errMsg)
		c.metrics.TurnSettled(outcome(err), started)
	}()
	return nil
}

// Wait blocks until the latest turn settles and returns its error.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close stops any in-flight turn, waits for it and ends all subscriptions.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.state.close()
	return nil
}

func (c *Controller) runTurn(ctx context.Context, placeholder domain.Message) error {
	logger := c.logger.With("message_id", placeholder.ID)

	threadID, err := c.EnsureThread(ctx)
	if err != nil {
		return err
	}

	runID, err := c.channel.Submit(ctx, threadID, placeholder)
	if err != nil {
		return err
	}
	logger = logger.With("thread_id", threadID, "run_id", runID)
	logger.Info("run started")

	handled := make(map[string]bool)
	for {
		run, err := c.poller.PollUntilSettled(ctx, threadID, runID, handled)
		if err != nil {
			return err
		}
		if !run.NeedsToolOutputs() {
			logger.Info("run completed")
			return nil
		}
		if err := c.dispatcher.Dispatch(ctx, threadID, run, handled); err != nil {
			return err
		}
	}
}

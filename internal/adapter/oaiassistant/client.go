// Package oaiassistant implements the assistant client on top of the OpenAI Assistants API.
package oaiassistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/tools"
)

const listPageSize = 100

// Client talks to the Assistants API for a single configured assistant.
type Client struct {
	api         *openai.Client
	assistantID string
}

// NewClient creates a client. An empty baseURL keeps the SDK default endpoint.
func NewClient(apiKey, baseURL, assistantID string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		assistantID: assistantID,
	}
}

// CreateThread creates an empty thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", wrapError("create thread", err)
	}
	return thread.ID, nil
}

// AddMessage posts the user message and starts a run of the configured assistant.
func (c *Client) AddMessage(ctx context.Context, threadID string, req domain.MessageRequest) (*domain.AddMessageResult, error) {
	msgReq := openai.MessageRequest{
		Role:    string(domain.RoleUser),
		Content: req.Content,
	}
	if req.Nonce != "" {
		msgReq.Metadata = map[string]any{domain.MetadataClientNonce: req.Nonce}
	}

	msg, err := c.api.CreateMessage(ctx, threadID, msgReq)
	if err != nil {
		return nil, wrapError("create message", err)
	}

	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: c.assistantID})
	if err != nil {
		return nil, wrapError("create run", err)
	}

	return &domain.AddMessageResult{RunID: run.ID, Message: toMessage(msg)}, nil
}

// GetRun retrieves a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return nil, wrapError("retrieve run", err)
	}
	return toRun(run), nil
}

// ListMessages pages through the thread in ascending order.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	limit := listPageSize
	order := "asc"
	var after *string

	messages := []domain.Message{}
	for {
		page, err := c.api.ListMessage(ctx, threadID, &limit, &order, after, nil, nil)
		if err != nil {
			return nil, wrapError("list messages", err)
		}
		for _, m := range page.Messages {
			messages = append(messages, toMessage(m))
		}
		if !page.HasMore || page.LastID == nil || *page.LastID == "" {
			return messages, nil
		}
		after = page.LastID
	}
}

// SubmitToolOutputs answers the pending tool calls of a run.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*domain.Run, error) {
	req := openai.SubmitToolOutputsRequest{ToolOutputs: make([]openai.ToolOutput, 0, len(outputs))}
	for _, o := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{ToolCallID: o.ToolCallID, Output: o.Output})
	}

	run, err := c.api.SubmitToolOutputs(ctx, threadID, runID, req)
	if err != nil {
		return nil, wrapError("submit tool outputs", err)
	}
	return toRun(run), nil
}

// AssistantSpec describes an assistant to create.
type AssistantSpec struct {
	Name         string
	Model        string
	Instructions string
	Tools        []tools.Definition
}

// CreateAssistant registers a new assistant exposing the given tools and returns its ID.
func (c *Client) CreateAssistant(ctx context.Context, spec AssistantSpec) (string, error) {
	req := openai.AssistantRequest{Model: spec.Model}
	if spec.Name != "" {
		req.Name = &spec.Name
	}
	if spec.Instructions != "" {
		req.Instructions = &spec.Instructions
	}
	for _, def := range spec.Tools {
		req.Tools = append(req.Tools, openai.AssistantTool{
			Type: openai.AssistantToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	assistant, err := c.api.CreateAssistant(ctx, req)
	if err != nil {
		return "", wrapError("create assistant", err)
	}
	return assistant.ID, nil
}

func toRun(run openai.Run) *domain.Run {
	out := &domain.Run{
		ID:        run.ID,
		ThreadID:  run.ThreadID,
		Status:    domain.RunStatus(run.Status),
		CreatedAt: run.CreatedAt,
	}
	if run.RequiredAction != nil {
		out.RequiredAction = &domain.RequiredAction{Type: domain.RequiredActionType(run.RequiredAction.Type)}
		if sto := run.RequiredAction.SubmitToolOutputs; sto != nil {
			calls := make([]domain.ToolCall, 0, len(sto.ToolCalls))
			for _, tc := range sto.ToolCalls {
				calls = append(calls, domain.ToolCall{
					ID:   tc.ID,
					Type: string(tc.Type),
					Function: domain.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
			out.RequiredAction.SubmitToolOutputs = &domain.SubmitToolOutputs{ToolCalls: calls}
		}
	}
	if run.LastError != nil {
		out.LastError = &domain.RunError{Code: string(run.LastError.Code), Message: run.LastError.Message}
	}
	return out
}

func toMessage(msg openai.Message) domain.Message {
	out := domain.Message{
		ID:        msg.ID,
		ThreadID:  msg.ThreadID,
		Role:      domain.Role(msg.Role),
		CreatedAt: int64(msg.CreatedAt),
		Metadata:  msg.Metadata,
		Content:   make([]domain.ContentPart, 0, len(msg.Content)),
	}
	if msg.RunID != nil {
		out.RunID = *msg.RunID
	}
	for _, c := range msg.Content {
		part := domain.ContentPart{Type: domain.ContentType(c.Type)}
		switch {
		// The SDK has no refusal field; keep any text it decoded as the refusal message.
		case part.Type == domain.ContentTypeRefusal:
			if c.Text != nil {
				part.Refusal = c.Text.Value
			}
		case c.Text != nil:
			part.Text = &domain.TextContent{Value: c.Text.Value, Annotations: c.Text.Annotations}
		case c.ImageFile != nil:
			part.ImageFile = &domain.ImageFileContent{FileID: c.ImageFile.FileID}
		case c.ImageURL != nil:
			part.ImageURL = &domain.ImageURLContent{URL: c.ImageURL.URL, Detail: c.ImageURL.Detail}
		}
		out.Content = append(out.Content, part)
	}
	return out
}

// wrapError maps API status codes onto the shared sentinel errors.
func wrapError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusNotFound:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusConflict,
			apiErr.HTTPStatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "active run"):
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusBadRequest:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidRequest, apiErr.Message)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

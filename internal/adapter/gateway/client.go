// Package gateway implements the assistant client against a remote catai gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/s0ngyang/catai/internal/domain"
)

// Client is an HTTP client for the gateway's /v1 routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateThread calls POST /v1/threads.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp domain.CreateThreadResponse
	if err := c.do(ctx, http.MethodPost, "/v1/threads", struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.ThreadID, nil
}

// AddMessage calls POST /v1/threads/:thread_id/messages.
func (c *Client) AddMessage(ctx context.Context, threadID string, req domain.MessageRequest) (*domain.AddMessageResult, error) {
	var resp domain.AddMessageResult
	if err := c.do(ctx, http.MethodPost, "/v1/threads/"+url.PathEscape(threadID)+"/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRun calls GET /v1/threads/:thread_id/runs/:run_id.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var run domain.Run
	if err := c.do(ctx, http.MethodGet, runPath(threadID, runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessages calls GET /v1/threads/:thread_id/messages.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	var resp domain.ListMessagesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/threads/"+url.PathEscape(threadID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	return resp.Messages, nil
}

// SubmitToolOutputs calls POST /v1/threads/:thread_id/runs/:run_id/submit_tool_outputs.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*domain.Run, error) {
	var run domain.Run
	req := domain.SubmitToolOutputsRequest{ToolOutputs: outputs}
	if err := c.do(ctx, http.MethodPost, runPath(threadID, runID)+"/submit_tool_outputs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetCats calls POST /get_cats.
func (c *Client) GetCats(ctx context.Context, req domain.GetCatsRequest) ([]domain.CatImage, error) {
	var images []domain.CatImage
	if err := c.do(ctx, http.MethodPost, "/get_cats", req, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// FetchImages serves getCatImage through the gateway's image provider.
func (c *Client) FetchImages(ctx context.Context, count int, breed string) ([]domain.CatImage, error) {
	return c.GetCats(ctx, domain.GetCatsRequest{Count: count, Breed: breed})
}

func runPath(threadID, runID string) string {
	return "/v1/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns an ErrorResponse body into one of the shared sentinel errors.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	var errResp domain.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	switch errResp.Code {
	case domain.ErrorCodeNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, errResp.Error)
	case domain.ErrorCodeConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, errResp.Error)
	case domain.ErrorCodeToolMismatch:
		return fmt.Errorf("%w: %s", domain.ErrToolOutputMismatch, errResp.Error)
	case domain.ErrorCodeInvalidRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, errResp.Error)
	}
	return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, errResp.Error)
}

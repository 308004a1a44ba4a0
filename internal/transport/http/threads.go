package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/s0ngyang/catai/internal/domain"
)

// CreateThread creates an empty thread.
// POST /v1/threads
func (h *Handler) CreateThread(c echo.Context) error {
	threadID, err := h.assistant.CreateThread(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, domain.CreateThreadResponse{ThreadID: threadID})
}

// AddMessage posts a user message and starts a run.
// POST /v1/threads/:thread_id/messages
func (h *Handler) AddMessage(c echo.Context) error {
	var req domain.MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return badRequest(c, "content is required")
	}

	res, err := h.assistant.AddMessage(c.Request().Context(), c.Param("thread_id"), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListMessages returns the messages of a thread.
// GET /v1/threads/:thread_id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	messages, err := h.assistant.ListMessages(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return c.JSON(http.StatusOK, domain.ListMessagesResponse{Messages: messages})
}

// GetRun returns the current state of a run.
// GET /v1/threads/:thread_id/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.assistant.GetRun(c.Request().Context(), c.Param("thread_id"), c.Param("run_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// SubmitToolOutputs answers the pending tool calls of a run.
// POST /v1/threads/:thread_id/runs/:run_id/submit_tool_outputs
func (h *Handler) SubmitToolOutputs(c echo.Context) error {
	var req domain.SubmitToolOutputsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.ToolOutputs) == 0 {
		return badRequest(c, "tool_outputs is required")
	}

	run, err := h.assistant.SubmitToolOutputs(c.Request().Context(), c.Param("thread_id"), c.Param("run_id"), req.ToolOutputs)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

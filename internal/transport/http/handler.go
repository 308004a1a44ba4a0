// Package http provides the gateway HTTP server.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/domain"
	"github.com/s0ngyang/catai/internal/session"
	"github.com/s0ngyang/catai/internal/tools"
)

// SessionFactory creates a session controller for one /chat request.
type SessionFactory func() *session.Controller

// Handler handles gateway HTTP requests.
type Handler struct {
	assistant  assistant.Client
	cats       tools.ImageFetcher
	maxImages  int
	newSession SessionFactory
	logger     *slog.Logger
}

// NewHandler creates a new handler. newSession may be nil, which disables /chat.
func NewHandler(client assistant.Client, cats tools.ImageFetcher, maxImages int, newSession SessionFactory, logger *slog.Logger) *Handler {
	return &Handler{
		assistant:  client,
		cats:       cats,
		maxImages:  maxImages,
		newSession: newSession,
		logger:     logger,
	}
}

// RegisterRoutes registers gateway routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Assistant API
	e.POST("/v1/threads", h.CreateThread)
	e.POST("/v1/threads/:thread_id/messages", h.AddMessage)
	e.GET("/v1/threads/:thread_id/messages", h.ListMessages)
	e.GET("/v1/threads/:thread_id/runs/:run_id", h.GetRun)
	e.POST("/v1/threads/:thread_id/runs/:run_id/submit_tool_outputs", h.SubmitToolOutputs)

	// Direct helpers
	e.POST("/get_cats", h.GetCats)
	e.POST("/chat", h.Chat)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps backend errors to a status code and an ErrorResponse body.
func (h *Handler) errorResponse(c echo.Context, err error) error {
	status, code := http.StatusBadGateway, domain.ErrorCodeUpstream
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, domain.ErrorCodeNotFound
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, domain.ErrorCodeConflict
	case errors.Is(err, domain.ErrToolOutputMismatch):
		status, code = http.StatusBadRequest, domain.ErrorCodeToolMismatch
	case errors.Is(err, domain.ErrInvalidRequest):
		status, code = http.StatusBadRequest, domain.ErrorCodeInvalidRequest
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(status, domain.ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorResponse{Error: msg, Code: domain.ErrorCodeInvalidRequest})
}

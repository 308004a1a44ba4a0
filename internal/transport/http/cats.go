package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/s0ngyang/catai/internal/domain"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response string   `json:"response"`
	ThreadID string   `json:"thread_id"`
	Images   []string `json:"images"`
}

// GetCats fetches cat images straight from the image provider.
// POST /get_cats
func (h *Handler) GetCats(c echo.Context) error {
	req := domain.GetCatsRequest{Count: 1}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Count < 1 {
		return badRequest(c, "count must be at least 1")
	}
	if h.maxImages > 0 && req.Count > h.maxImages {
		return badRequest(c, fmt.Sprintf("count must not exceed %d", h.maxImages))
	}

	images, err := h.cats.FetchImages(c.Request().Context(), req.Count, req.Breed)
	if err != nil {
		return h.errorResponse(c, err)
	}
	if images == nil {
		images = []domain.CatImage{}
	}
	return c.JSON(http.StatusOK, images)
}

// Chat runs one full turn on a fresh thread and returns the assistant's reply.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	if h.newSession == nil {
		return c.JSON(http.StatusNotFound, domain.ErrorResponse{Error: "chat is disabled", Code: domain.ErrorCodeNotFound})
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "message is required")
	}

	ctrl := h.newSession()
	defer ctrl.Close()

	if err := ctrl.SendUserTurn(req.Message); err != nil {
		return h.errorResponse(c, err)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return h.errorResponse(c, err)
		}
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}

	snap := ctrl.Snapshot()
	return c.JSON(http.StatusOK, ChatResponse{
		Response: lastAssistantText(snap.Messages),
		ThreadID: snap.ThreadID,
		Images:   snap.Images,
	})
}

func lastAssistantText(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleAssistant {
			return messages[i].Text()
		}
	}
	return ""
}

package session

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/s0ngyang/catai/internal/adapter/assistant"
	"github.com/s0ngyang/catai/internal/domain"
)

// Channel sends user text with an optimistic local echo.
type Channel struct {
	client assistant.Client
	state  *State
	now    func() time.Time
}

// Stage appends the placeholder for text and returns it.
func (ch *Channel) Stage(text string) domain.Message {
	now := ch.now()
	msg := domain.Message{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		Role:      domain.RoleUser,
		Content:   []domain.ContentPart{domain.TextPart(text)},
		CreatedAt: now.Unix(),
		Metadata:  map[string]any{domain.MetadataClientNonce: uuid.New().String()},
		Pending:   true,
	}
	ch.state.appendMessage(msg)
	return msg
}

// Submit posts the placeholder's text and swaps the placeholder for the confirmed
// message. It returns the id of the run started for it. On failure the placeholder stays.
func (ch *Channel) Submit(ctx context.Context, threadID string, placeholder domain.Message) (string, error) {
	res, err := ch.client.AddMessage(ctx, threadID, domain.MessageRequest{
		Content: placeholder.Text(),
		Nonce:   placeholder.Nonce(),
	})
	if err != nil {
		return "", &TransportError{Op: "add message", Err: err}
	}

	ch.state.reconcile(placeholder.Nonce(), res.Message)
	return res.RunID, nil
}

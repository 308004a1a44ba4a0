package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0ngyang/catai/internal/domain"
)

func TestReconcileByNonce(t *testing.T) {
	s := newState()
	s.appendMessage(domain.Message{ID: "1", Pending: true, Metadata: map[string]any{domain.MetadataClientNonce: "a"}})
	s.appendMessage(domain.Message{ID: "2", Pending: true, Metadata: map[string]any{domain.MetadataClientNonce: "b"}})

	s.reconcile("a", domain.Message{ID: "msg_a"})

	msgs := s.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg_a", msgs[0].ID)
	assert.Equal(t, "2", msgs[1].ID)
}

func TestReconcileFallsBackToLastMessage(t *testing.T) {
	s := newState()
	s.appendMessage(domain.Message{ID: "old"})
	s.appendMessage(domain.Message{ID: "placeholder", Pending: true})

	s.reconcile("unknown", domain.Message{ID: "confirmed"})

	msgs := s.Snapshot().Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "old", msgs[0].ID)
	assert.Equal(t, "confirmed", msgs[1].ID)
}

func TestReconcileOnEmptyListAppends(t *testing.T) {
	s := newState()
	s.reconcile("", domain.Message{ID: "confirmed"})
	assert.Len(t, s.Snapshot().Messages, 1)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newState()
	s.appendMessage(domain.Message{ID: "1", Content: []domain.ContentPart{domain.TextPart("hi")}})
	s.SetImages([]string{"a"})

	snap := s.Snapshot()
	snap.Messages[0].Content[0].Text.Value = "changed"
	snap.Images[0] = "b"

	again := s.Snapshot()
	assert.Equal(t, "hi", again.Messages[0].Text())
	assert.Equal(t, []string{"a"}, again.Images)
}

func TestAcquireIsExclusive(t *testing.T) {
	s := newState()
	assert.True(t, s.acquire())
	assert.False(t, s.acquire())
	s.release("boom")
	assert.Equal(t, "boom", s.Snapshot().Error)
	assert.True(t, s.acquire())
	assert.Empty(t, s.Snapshot().Error)
}

func TestSubscriberSeesLatestOnly(t *testing.T) {
	s := newState()
	updates, cancel := s.Subscribe()

	s.SetImages([]string{"a"})
	s.SetImages([]string{"a", "b"})

	snap := <-updates
	assert.Equal(t, []string{"a", "b"}, snap.Images)

	cancel()
	_, open := <-updates
	assert.False(t, open)

	s.close()
	closed, _ := s.Subscribe()
	_, open = <-closed
	assert.False(t, open)
}

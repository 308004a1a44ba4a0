package ws

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0ngyang/catai/internal/logging"
	"github.com/s0ngyang/catai/internal/session"
)

type fakeSource struct {
	mu      sync.Mutex
	updates chan session.Snapshot
	sent    []string
	sendErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{updates: make(chan session.Snapshot, 4)}
}

func (f *fakeSource) Subscribe() (<-chan session.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeSource) SendUserTurn(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.sendErr
}

func (f *fakeSource) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func dial(t *testing.T, source Source) *websocket.Conn {
	t.Helper()
	e := echo.New()
	NewServer(source, logging.Discard()).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestSnapshotsAreForwarded(t *testing.T) {
	source := newFakeSource()
	conn := dial(t, source)

	source.updates <- session.Snapshot{ThreadID: "thread_1", Images: []string{"https://cdn.example/a.jpg"}}

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, TypeSnapshot, f.Type)
	require.NotNil(t, f.Snapshot)
	assert.Equal(t, "thread_1", f.Snapshot.ThreadID)
	assert.Equal(t, []string{"https://cdn.example/a.jpg"}, f.Snapshot.Images)
}

func TestSendFrameStartsTurn(t *testing.T) {
	source := newFakeSource()
	conn := dial(t, source)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeSend, Text: "show me a cat"}))

	assert.Eventually(t, func() bool {
		return len(source.sentTexts()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"show me a cat"}, source.sentTexts())
}

func TestSendErrorIsReported(t *testing.T) {
	source := newFakeSource()
	source.sendErr = errors.New("a turn is already in progress")
	conn := dial(t, source)

	require.NoError(t, conn.WriteJSON(Frame{Type: TypeSend, Text: "hi"}))

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, TypeError, f.Type)
	assert.Equal(t, "a turn is already in progress", f.Error)
}

func TestUnknownFrameType(t *testing.T) {
	conn := dial(t, newFakeSource())

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))

	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, TypeError, f.Type)
	assert.Contains(t, f.Error, "bogus")
}

func TestClosedSessionClosesSocket(t *testing.T) {
	source := newFakeSource()
	conn := dial(t, source)

	close(source.updates)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

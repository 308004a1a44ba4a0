// Package ws streams session snapshots to WebSocket watchers.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/s0ngyang/catai/internal/session"
)

// Frame types.
const (
	TypeSnapshot = "snapshot"
	TypeSend     = "send"
	TypeError    = "error"
)

const (
	writeTimeout   = 10 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 64 * 1024
)

// Frame is one message on the socket, in either direction.
type Frame struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Error    string            `json:"error,omitempty"`
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
}

// Source is the session being watched.
type Source interface {
	Subscribe() (<-chan session.Snapshot, func())
	SendUserTurn(text string) error
}

// Server upgrades watcher connections and feeds them snapshots.
type Server struct {
	source   Source
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(source Source, logger *slog.Logger) *Server {
	return &Server{
		source: source,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Watchers run on localhost.
				return true
			},
		},
	}
}

// RegisterRoutes mounts the socket on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", s.HandleWebSocket)
}

// HandleWebSocket upgrades the request and serves the connection until either side closes.
func (s *Server) HandleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return err
	}
	conn.SetReadLimit(maxMessageSize)

	updates, cancel := s.source.Subscribe()
	replies := make(chan Frame, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.readPump(conn, replies)
	}()
	s.writePump(conn, updates, replies, done)

	cancel()
	conn.Close()
	<-done
	return nil
}

// readPump handles inbound frames. Error replies go through the writer, which owns the socket.
func (s *Server) readPump(conn *websocket.Conn, replies chan<- Frame) {
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var in Frame
		if err := json.Unmarshal(data, &in); err != nil {
			reply(replies, Frame{Type: TypeError, Error: "invalid JSON message"})
			continue
		}
		switch in.Type {
		case TypeSend:
			if err := s.source.SendUserTurn(in.Text); err != nil {
				reply(replies, Frame{Type: TypeError, Error: err.Error()})
			}
		default:
			reply(replies, Frame{Type: TypeError, Error: "unknown message type: " + in.Type})
		}
	}
}

func reply(replies chan<- Frame, f Frame) {
	select {
	case replies <- f:
	default:
	}
}

func (s *Server) writePump(conn *websocket.Conn, updates <-chan session.Snapshot, replies <-chan Frame, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(Frame{Type: TypeSnapshot, Snapshot: &snap}); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}

		case f := <-replies:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(f); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

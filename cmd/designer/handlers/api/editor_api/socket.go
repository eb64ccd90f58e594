package editor_api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/fgcdesigner/internal/designer"
	"thirdcoast.systems/fgcdesigner/pkg/editor"
)

const (
	socketReadTimeout  = 60 * time.Second
	socketWriteTimeout = 10 * time.Second
	socketPingInterval = 54 * time.Second
	socketMaxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16 * 1024,
}

// PointerMessage is a client pointer event in plot pixel coordinates.
type PointerMessage struct {
	Type string `json:"type"` // down, move, up, axes
	editor.Event
	Axes *editor.Axes `json:"axes,omitempty"`
}

// StateMessage is sent after every event that changed the plot.
type StateMessage struct {
	Type    string         `json:"type"`
	Outcome editor.Outcome `json:"outcome,omitempty"`
	State   designer.View  `json:"state"`
}

type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	return s.conn.WriteJSON(v)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteTimeout))
}

// HandleEditorSocket streams pointer events from the plot into the session.
// Each reply carries the full plot state so a client can redraw while
// dragging without further requests.
func HandleEditorSocket(s *designer.Session) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			// Upgrade has already written an HTTP error.
			slog.Warn("websocket upgrade failed", "error", err)
			return nil
		}
		ws := &socket{conn: conn}
		defer conn.Close()

		conn.SetReadLimit(socketMaxMessage)
		_ = conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		})

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(socketPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := ws.ping(); err != nil {
						return
					}
				}
			}
		}()

		if err := ws.writeJSON(StateMessage{Type: "state", State: s.View()}); err != nil {
			return nil
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("editor socket closed", "error", err)
				}
				return nil
			}
			_ = conn.SetReadDeadline(time.Now().Add(socketReadTimeout))

			var msg PointerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = ws.writeJSON(map[string]string{"type": "error", "error": "invalid message"})
				continue
			}

			reply, ok := apply(s, msg)
			if !ok {
				continue
			}
			if err := ws.writeJSON(reply); err != nil {
				return nil
			}
		}
	}
}

// apply dispatches one pointer message. It reports false when nothing the
// client draws has changed.
func apply(s *designer.Session, msg PointerMessage) (StateMessage, bool) {
	reply := StateMessage{Type: "state"}
	switch msg.Type {
	case "down":
		s.PointerDown(msg.Event)
	case "move":
		if !s.PointerMove(msg.Event) {
			return reply, false
		}
	case "up":
		reply.Outcome = s.PointerUp(msg.Event)
	case "axes":
		if msg.Axes == nil {
			return reply, false
		}
		s.SetAxes(*msg.Axes)
	default:
		return reply, false
	}
	reply.State = s.View()
	return reply, true
}

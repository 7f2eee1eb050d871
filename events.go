package pubdraft

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/settings"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	streamBuffer   = 64
)

// streamEvent is one message sent to an event stream client.
type streamEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientMessage is what a client may send on its event stream.
type clientMessage struct {
	Type        string               `json:"type"`
	Environment settings.Environment `json:"environment"`
}

// eventStream forwards session events to one websocket connection.
// Emit never blocks: when the client falls behind, events are dropped.
type eventStream struct {
	conn *websocket.Conn
	send chan streamEvent
	done chan struct{}
	once sync.Once
	log  zerolog.Logger
}

func newEventStream(conn *websocket.Conn, log zerolog.Logger) *eventStream {
	return &eventStream{
		conn: conn,
		send: make(chan streamEvent, streamBuffer),
		done: make(chan struct{}),
		log:  log,
	}
}

func (s *eventStream) Emit(_ context.Context, event string, data any) {
	select {
	case s.send <- streamEvent{Event: event, Data: data}:
	case <-s.done:
	default:
		s.log.Warn().Str("event", event).Msg("event stream full, dropping event")
	}
}

func (s *eventStream) close() {
	s.once.Do(func() { close(s.done) })
}

// readLoop handles client messages until the connection fails.
func (s *eventStream) readLoop(onEnv func(settings.Environment)) {
	defer s.close()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("event stream closed")
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "environment" {
			onEnv(msg.Environment)
		}
	}
}

// writeLoop sends events and pings until the stream is closed.
func (s *eventStream) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}

// handleEvents streams the caller's status, document and settings events
// over a websocket. The stream subscribes when the connection opens and
// unsubscribes when it closes.
func (a *App) handleEvents(c echo.Context) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	conn, err := a.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		return nil
	}
	defer conn.Close()

	detach := a.Sessions.Attach(s.ID)
	defer detach()

	stream := newEventStream(conn, a.log.With().Str("session", s.ID).Logger())
	unsubscribe := s.Subscribe(stream.Emit)
	defer unsubscribe()

	go stream.readLoop(s.Settings.SetEnvironment)
	stream.writeLoop()
	return nil
}

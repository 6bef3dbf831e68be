package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	maxFrameSize = 64 << 10

	outboxSize = 64
)

// command is a client frame asking to join or leave streams, or to check liveness.
type command struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

type subscriber struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	allowed map[string]struct{}
	joined  map[string]struct{}

	outbox chan Message
	mu     sync.RWMutex
	done   bool
	once   sync.Once
}

func newSubscriber(hub *Hub, conn *websocket.Conn, userID string, allowed map[string]struct{}) *subscriber {
	return &subscriber{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		allowed: allowed,
		joined:  make(map[string]struct{}),
		outbox:  make(chan Message, outboxSize),
	}
}

func (s *subscriber) mayJoin(stream string) bool {
	if len(s.allowed) == 0 {
		return true
	}
	_, ok := s.allowed[stream]
	return ok
}

// offer queues message without blocking and reports false when the outbox is full.
func (s *subscriber) offer(message Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.done {
		return true
	}
	select {
	case s.outbox <- message:
		return true
	default:
		return false
	}
}

func (s *subscriber) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Debug("subscriber closed unexpectedly", zap.String("user_id", s.userID), zap.Error(err))
			}
			return
		}
		if len(frame) > 0 {
			s.handle(frame)
		}
	}
}

func (s *subscriber) handle(frame []byte) {
	var cmd command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		s.hub.log.Debug("ignoring malformed frame", zap.String("user_id", s.userID), zap.Error(err))
		return
	}

	switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
	case "subscribe":
		s.hub.join(s, cmd.Streams)
	case "unsubscribe":
		s.hub.leave(s, cmd.Streams)
	case "ping":
		s.hub.deliver(s, Message{Event: "pong"})
	default:
		s.hub.log.Debug("unknown action", zap.String("action", cmd.Action), zap.String("user_id", s.userID))
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case message, ok := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		s.hub.remove(s)

		s.mu.Lock()
		s.done = true
		close(s.outbox)
		s.mu.Unlock()

		_ = s.conn.Close()
	})
}

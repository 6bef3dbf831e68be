// Package realtime pushes alert lifecycle events to connected map clients over WebSockets.
package realtime

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/pkg/logger"
)

// Message is the JSON frame written to subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Hub tracks which subscribers listen on which stream and fans messages out to them.
type Hub struct {
	mu       sync.RWMutex
	streams  map[string]map[*subscriber]struct{}
	members  map[*subscriber]struct{}
	closed   bool
	upgrader websocket.Upgrader
	origins  originPolicy
	log      *zap.Logger
}

// NewHub constructs a hub. Same-origin and loopback origins are always accepted;
// allowedOrigins adds hosts such as the mobile app shell. "*" accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		streams: make(map[string]map[*subscriber]struct{}),
		members: make(map[*subscriber]struct{}),
		origins: newOriginPolicy(allowedOrigins),
		log:     logger.WithModule("realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.origins.allows,
	}
	return h
}

// Subscribers returns the number of connections listening on a stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[normalizeStream(stream)])
}

// Serve upgrades the request and blocks until the connection ends. allowed restricts which
// streams the subscriber may join later; nil permits any.
func (h *Hub) Serve(userID string, streams []string, allowed map[string]struct{}, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	sub := newSubscriber(h, conn, userID, allowed)
	if !h.register(sub) {
		sub.close()
		return
	}
	h.join(sub, streams)

	go sub.writePump()
	sub.readPump()
}

// BroadcastStream delivers message to every subscriber of stream.
func (h *Hub) BroadcastStream(stream string, message Message) {
	stream = normalizeStream(stream)
	if stream == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	message.Stream = stream
	for sub := range h.streams[stream] {
		h.deliver(sub, message)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.members))
	for sub := range h.members {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

func (h *Hub) register(sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.members[sub] = struct{}{}
	return true
}

func (h *Hub) join(sub *subscriber, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		if !sub.mayJoin(stream) {
			h.log.Warn("ignoring unauthorized stream", zap.String("stream", stream), zap.String("user_id", sub.userID))
			continue
		}
		if h.streams[stream] == nil {
			h.streams[stream] = make(map[*subscriber]struct{})
		}
		h.streams[stream][sub] = struct{}{}
		sub.joined[stream] = struct{}{}
	}
}

func (h *Hub) leave(sub *subscriber, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.detachLocked(sub, stream)
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range sub.joined {
		h.detachLocked(sub, stream)
	}
	delete(h.members, sub)
}

func (h *Hub) detachLocked(sub *subscriber, stream string) {
	if subs, ok := h.streams[stream]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.streams, stream)
		}
	}
	delete(sub.joined, stream)
}

// deliver never blocks; a subscriber whose buffer is full is disconnected.
func (h *Hub) deliver(sub *subscriber, message Message) {
	if !sub.offer(message) {
		h.log.Warn("disconnecting slow subscriber", zap.String("user_id", sub.userID))
		go sub.close()
	}
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

// ParseStreams normalises stream names, dropping blanks and duplicates.
func ParseStreams(streams ...string) []string {
	return uniqueStreams(streams)
}

func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	out := make([]string, 0, len(streams))
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, dup := seen[stream]; dup {
			continue
		}
		seen[stream] = struct{}{}
		out = append(out, stream)
	}
	return out
}

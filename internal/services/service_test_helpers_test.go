package services

import (
	"context"
	"errors"
	"sync"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/realtime"
)

type recordingNotifier struct {
	mu       sync.Mutex
	requests []fanout.Request
	result   fanout.Result
}

func (n *recordingNotifier) Notify(_ context.Context, req fanout.Request) fanout.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return n.result
}

func (n *recordingNotifier) last() fanout.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.requests) == 0 {
		return fanout.Request{}
	}
	return n.requests[len(n.requests)-1]
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []realtime.Message
}

func (b *recordingBroadcaster) BroadcastStream(stream string, message realtime.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	message.Stream = stream
	b.messages = append(b.messages, message)
}

func (b *recordingBroadcaster) events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, msg := range b.messages {
		out = append(out, msg.Event)
	}
	return out
}

type failingContacts struct{}

func (failingContacts) Recipients(context.Context, string) ([]fanout.Contact, error) {
	return nil, errors.New("contacts unavailable")
}

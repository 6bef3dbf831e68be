package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	records []Record
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *memoryStore) RecordAttempt(ctx context.Context, record Record) error {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, record)
	return nil
}

func (s *memoryStore) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func TestRecorderWritesQueuedRecords(t *testing.T) {
	store := &memoryStore{}
	recorder := NewRecorder(store, RecorderConfig{QueueSize: 8, Workers: 2})

	for _, name := range []string{"Ana", "Bo", "Cy"} {
		require.True(t, recorder.Enqueue(Record{AlertID: "a1", ContactName: name, Channel: ChannelSMS}))
	}
	require.NoError(t, recorder.Close(context.Background()))

	require.Len(t, store.all(), 3)
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &memoryStore{started: make(chan struct{}, 4), release: make(chan struct{})}
	recorder := NewRecorder(store, RecorderConfig{QueueSize: 1, Workers: 1})

	require.True(t, recorder.Enqueue(Record{ContactName: "first"}))
	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("worker did not pick up the first record")
	}

	require.True(t, recorder.Enqueue(Record{ContactName: "second"}))
	require.False(t, recorder.Enqueue(Record{ContactName: "third"}))

	close(store.release)
	require.NoError(t, recorder.Close(context.Background()))

	records := store.all()
	require.Len(t, records, 2)
	require.Equal(t, "first", records[0].ContactName)
	require.Equal(t, "second", records[1].ContactName)
}

func TestRecorderSwallowsWriteErrors(t *testing.T) {
	store := &memoryStore{err: errors.New("db down")}
	recorder := NewRecorder(store, RecorderConfig{})

	require.True(t, recorder.Enqueue(Record{ContactName: "Ana"}))
	require.NoError(t, recorder.Close(context.Background()))
	require.Empty(t, store.all())
}

func TestRecorderRejectsAfterClose(t *testing.T) {
	recorder := NewRecorder(&memoryStore{}, RecorderConfig{})
	require.NoError(t, recorder.Close(context.Background()))
	require.NoError(t, recorder.Close(context.Background()))

	require.False(t, recorder.Enqueue(Record{ContactName: "late"}))
}

func TestRecorderCloseHonoursDeadline(t *testing.T) {
	store := &memoryStore{started: make(chan struct{}, 1), release: make(chan struct{})}
	recorder := NewRecorder(store, RecorderConfig{QueueSize: 1, Workers: 1})
	require.True(t, recorder.Enqueue(Record{ContactName: "stuck"}))
	<-store.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, recorder.Close(ctx), context.DeadlineExceeded)

	close(store.release)
}

func TestOrchestratorWithRecorder(t *testing.T) {
	store := &memoryStore{}
	recorder := NewRecorder(store, RecorderConfig{})
	o := NewOrchestrator(&fakeEmail{}, &fakeSMS{}, recorder)

	result := o.Notify(context.Background(), fireRequest(
		Contact{Name: "Ana", Phone: "+639171234567", Email: "ana@example.com"},
		Contact{Name: "Bo", Phone: "+639179876543"},
	))
	require.NoError(t, recorder.Close(context.Background()))

	require.Equal(t, 3, result.EmailSent+result.SMSSent)
	require.Len(t, store.all(), 3)
}

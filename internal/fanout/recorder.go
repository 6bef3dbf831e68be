package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/pkg/logger"
	"github.com/charlesng35/sosrelay/pkg/metrics"
)

const (
	DefaultRecordQueueSize = 256
	DefaultRecordWorkers   = 2

	defaultWriteTimeout = 5 * time.Second
)

// RecordStore persists notification records.
type RecordStore interface {
	RecordAttempt(ctx context.Context, record Record) error
}

// Recorder persists records off the request path through a bounded queue.
// Enqueue never blocks; records that do not fit are dropped and counted.
type Recorder struct {
	store        RecordStore
	queue        chan Record
	writeTimeout time.Duration
	log          *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// RecorderConfig tunes the queue.
type RecorderConfig struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// NewRecorder starts the worker pool draining into store.
func NewRecorder(store RecordStore, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultRecordQueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultRecordWorkers
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	r := &Recorder{
		store:        store,
		queue:        make(chan Record, cfg.QueueSize),
		writeTimeout: cfg.WriteTimeout,
		log:          logger.WithModule("fanout.recorder"),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// Enqueue queues a record for persistence. It returns false when the record was dropped.
func (r *Recorder) Enqueue(record Record) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(record, "recorder closed")
		return false
	}

	select {
	case r.queue <- record:
		metrics.RecordQueueDepth.Inc()
		return true
	default:
		r.drop(record, "queue full")
		return false
	}
}

// Close stops intake and waits for queued records to be written or ctx to expire.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for record := range r.queue {
		metrics.RecordQueueDepth.Dec()
		r.write(record)
	}
}

func (r *Recorder) write(record Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			metrics.RecordWrites.WithLabelValues("error").Inc()
			r.log.Error("notification record write panicked", zap.String("alert_id", record.AlertID), zap.Any("panic", rec))
		}
	}()

	if err := r.store.RecordAttempt(ctx, record); err != nil {
		metrics.RecordWrites.WithLabelValues("error").Inc()
		r.log.Error("failed to write notification record",
			zap.String("alert_id", record.AlertID),
			zap.String("contact", record.ContactName),
			zap.String("channel", string(record.Channel)),
			zap.Error(err),
		)
		return
	}
	metrics.RecordWrites.WithLabelValues("written").Inc()
}

func (r *Recorder) drop(record Record, reason string) {
	metrics.RecordWrites.WithLabelValues("dropped").Inc()
	r.log.Warn("notification record dropped",
		zap.String("alert_id", record.AlertID),
		zap.String("contact", record.ContactName),
		zap.String("channel", string(record.Channel)),
		zap.String("reason", reason),
	)
}

package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/usergate/internal/redact"
)

// Errors returned by QueueSink.
var (
	ErrQueueClosed = errors.New("audit queue is closed")
	ErrQueueFull   = errors.New("audit queue is full")

	// ErrRecordDropped is returned for a response entry whose request entry
	// was dropped earlier.
	ErrRecordDropped = errors.New("audit record already dropped")
)

type queueItem struct {
	entry   Entry
	barrier chan struct{}
}

// QueueSink decouples request handling from a slow sink. Appends go into a
// bounded FIFO channel that a single goroutine drains into the wrapped sink,
// so entries reach it in exactly the order they were appended.
//
// Drops apply to whole records. Only request entries time out; the response
// entry of a dropped request is discarded too, and the response entry of a
// queued request waits for room.
type QueueSink struct {
	next    Sink
	items   chan queueItem
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	closed  bool
	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}
	dropped atomic.Int64

	orphanMu sync.Mutex
	orphans  map[string]struct{} // correlation ids of dropped request entries
}

// NewQueueSink starts the draining goroutine. size is the channel capacity;
// timeout bounds how long Append waits for room before dropping the entry.
func NewQueueSink(next Sink, size int, timeout time.Duration, logger *slog.Logger) *QueueSink {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &QueueSink{
		next:    next,
		items:   make(chan queueItem, size),
		timeout: timeout,
		logger:  logger.With(slog.String("component", "audit_queue")),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		orphans: make(map[string]struct{}),
	}
	go q.run()
	return q
}

// Append enqueues the entry. The caller's context is not consulted, so a
// canceled request still gets its response entry queued.
func (q *QueueSink) Append(_ context.Context, e Entry) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	item := queueItem{entry: e}
	if e.Phase == PhaseResponse {
		if q.forgetOrphan(e.CorrelationID) {
			q.dropped.Add(1)
			return fmt.Errorf("%w: correlation id %s", ErrRecordDropped, e.CorrelationID)
		}
		select {
		case q.items <- item:
			return nil
		case <-q.stop:
			return ErrQueueClosed
		}
	}

	select {
	case q.items <- item:
		return nil
	default:
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case q.items <- item:
		return nil
	case <-timer.C:
		q.dropped.Add(1)
		q.addOrphan(e.CorrelationID)
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.items))
	case <-q.stop:
		return ErrQueueClosed
	}
}

func (q *QueueSink) addOrphan(id string) {
	q.orphanMu.Lock()
	q.orphans[id] = struct{}{}
	q.orphanMu.Unlock()
}

func (q *QueueSink) forgetOrphan(id string) bool {
	q.orphanMu.Lock()
	defer q.orphanMu.Unlock()
	if _, ok := q.orphans[id]; !ok {
		return false
	}
	delete(q.orphans, id)
	return true
}

// Flush blocks until every entry appended before the call has been handed to
// the wrapped sink, or ctx is done.
func (q *QueueSink) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	select {
	case q.items <- queueItem{barrier: barrier}:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries and waits for the queue to drain, or for ctx
// to be done. It is safe to call more than once.
func (q *QueueSink) Close(ctx context.Context) error {
	// Response appends waiting for room hold the read lock. Give up on them
	// only once ctx is done.
	locked := make(chan struct{})
	go func() {
		q.mu.Lock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-ctx.Done():
		q.stopped.Do(func() { close(q.stop) })
		<-locked
	}

	if !q.closed {
		q.closed = true
		close(q.items)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		q.logger.Info("audit queue drained", slog.Int64("dropped", q.Dropped()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit queue did not drain: %w", ctx.Err())
	}
}

// Dropped returns the number of entries discarded because the queue stayed
// full, counting both halves of a dropped record.
func (q *QueueSink) Dropped() int64 {
	return q.dropped.Load()
}

func (q *QueueSink) run() {
	defer close(q.done)

	for item := range q.items {
		if item.barrier != nil {
			close(item.barrier)
			continue
		}
		if err := q.next.Append(context.Background(), item.entry); err != nil {
			q.logger.Error("failed to write audit entry",
				slog.String("error", redact.Error(err)),
				slog.String("correlation_id", item.entry.CorrelationID),
				slog.String("phase", string(item.entry.Phase)))
		}
	}
}

package engine

import (
	"sync"

	"github.com/roach88/envelope/internal/ir"
)

// spooled is the translated content of one spool file.
type spooled struct {
	path    string
	records []ir.Record
}

// recordQueue is a thread-safe FIFO of translated spool files awaiting the
// next flush.
//
// The queue is unbounded: a flush drains everything queued so far, so its
// size is bounded by what arrives in one batch interval.
type recordQueue struct {
	mu     sync.Mutex
	files  []spooled
	count  int
	closed bool
	signal chan struct{} // signals availability (buffered, size 1)
}

func newRecordQueue() *recordQueue {
	return &recordQueue{signal: make(chan struct{}, 1)}
}

// Enqueue adds a file's records. Returns false if the queue is closed.
func (q *recordQueue) Enqueue(path string, records []ir.Record) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.files = append(q.files, spooled{path: path, records: records})
	q.count += len(records)

	// Non-blocking: the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns everything queued, in arrival order.
func (q *recordQueue) Drain() []spooled {
	q.mu.Lock()
	defer q.mu.Unlock()

	files := q.files
	q.files = nil
	q.count = 0
	return files
}

// Wait returns a channel that signals when files may be available.
func (q *recordQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued records.
func (q *recordQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close stops further enqueues and wakes waiters.
func (q *recordQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

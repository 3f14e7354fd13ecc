// Package queue provides the in-memory FIFO transfer queue that feeds the
// worker pool.
package queue

import (
	"sync"

	"github.com/curtbushko/drive-to-gong/internal/manifest"
)

// TransferQueue is an unbounded FIFO of work items with join semantics: Join
// returns only after every enqueued item has been matched by a TaskDone call
// and the queue is empty. A requeue between Dequeue and TaskDone keeps the
// queue joined open, so bounded retries cannot cause premature termination.
type TransferQueue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []manifest.Item
	unfinished int
	closed     bool
}

// NewTransferQueue creates an empty transfer queue.
func NewTransferQueue() *TransferQueue {
	q := &TransferQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an item at the tail. The attempt counter travels with the
// item and is never touched by the queue. Enqueue on a closed queue is a
// no-op; the run is shutting down and the item is abandoned.
func (q *TransferQueue) Enqueue(item manifest.Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, item)
	q.unfinished++
	q.cond.Broadcast()
}

// Dequeue removes and returns the head item, blocking while the queue is
// empty. The second return value is false once the queue has been closed and
// no item is available.
func (q *TransferQueue) Dequeue() (manifest.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 {
		return manifest.Item{}, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// TaskDone signals that a previously dequeued item has finished processing.
func (q *TransferQueue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished <= 0 {
		panic("queue: TaskDone called more times than Enqueue")
	}

	q.unfinished--
	if q.unfinished == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every enqueued item has had a matching TaskDone and the
// queue is empty. This is the pipeline's natural termination condition.
func (q *TransferQueue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.cond.Wait()
	}
}

// Close marks the queue closed and wakes all blocked Dequeue callers.
// Items still queued are dropped; in-flight items finish normally.
func (q *TransferQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	// Releasing waiters requires matching the unfinished counter for items
	// that will never be processed once workers exit. Join is only used for
	// natural drain, so abandoned items must not hold it open.
	q.unfinished -= len(q.items)
	q.items = nil
	q.cond.Broadcast()
}

// Len returns the number of queued (not in-flight) items.
func (q *TransferQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

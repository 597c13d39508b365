package pipeline

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO that tracks outstanding work. Every value
// taken with Get must be acknowledged with TaskDone; Join blocks until all
// values put so far have been acknowledged.
type queue[T any] struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	allDone    *sync.Cond
	items      []T
	unfinished int
	closed     bool
}

func newQueue[T any]() *queue[T] {
	q := &queue[T]{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q
}

// Put appends v. It never blocks.
func (q *queue[T]) Put(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, v)
	q.unfinished++
	q.notEmpty.Signal()
}

// Get removes and returns the oldest value, blocking while the queue is
// empty. ok is false once the queue is closed and empty, or ctx is done.
func (q *queue[T]) Get(ctx context.Context) (v T, ok bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.notEmpty.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed && ctx.Err() == nil {
		q.notEmpty.Wait()
	}
	if len(q.items) == 0 || ctx.Err() != nil {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// TaskDone acknowledges one value returned by Get.
func (q *queue[T]) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished <= 0 {
		panic("pipeline: TaskDone called more times than Put")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.allDone.Broadcast()
	}
}

// Join blocks until every value put has been acknowledged or ctx is done.
func (q *queue[T]) Join(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.allDone.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 && ctx.Err() == nil {
		q.allDone.Wait()
	}
	if q.unfinished > 0 {
		return ctx.Err()
	}
	return nil
}

// Close wakes every blocked Get. Values still queued can be taken.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.notEmpty.Broadcast()
}

// Len returns the number of values waiting to be taken.
func (q *queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

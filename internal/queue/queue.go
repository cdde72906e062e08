package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	ErrQueueOverflow = errors.New("queue overflow")
	ErrClosed        = errors.New("queue closed")
	ErrUnknownPolicy = errors.New("unknown drop policy")
)

type DropPolicy int

const (
	DropOldest DropPolicy = iota
	DropNewest
)

func ParseDropPolicy(s string) (DropPolicy, error) {
	switch strings.ToLower(s) {
	case "oldest", "":
		return DropOldest, nil
	case "newest":
		return DropNewest, nil
	}
	return DropOldest, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p DropPolicy) String() string {
	if p == DropNewest {
		return "newest"
	}
	return "oldest"
}

// Bounded is a FIFO with a fixed capacity. Push never blocks: when the queue
// is full one item is discarded according to the policy and the drop counter
// is incremented.
type Bounded[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	policy   DropPolicy
	closed   bool
	ready    chan struct{}
	dropped  atomic.Int64
}

func NewBounded[T any](capacity int, policy DropPolicy) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		policy:   policy,
		ready:    make(chan struct{}, 1),
	}
}

// NewUnbounded returns a queue that never drops. Used where every item must
// eventually be processed.
func NewUnbounded[T any]() *Bounded[T] {
	return &Bounded[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push returns ErrQueueOverflow when an item was discarded to make room (or,
// under DropNewest, when v itself was discarded).
func (q *Bounded[T]) Push(v T) error {
	const fn = "Queue:Push"
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%s:%w", fn, ErrClosed)
	}

	var err error
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.dropped.Add(1)
		err = fmt.Errorf("%s:%w:policy=%s", fn, ErrQueueOverflow, q.policy)
		if q.policy == DropNewest {
			return err
		}
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
	}
	q.items = append(q.items, v)
	q.signal()
	return err
}

// Pop blocks until an item is available, ctx is done, or the queue is closed
// and empty.
func (q *Bounded[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		var zero T
		if closed {
			return zero, ErrClosed
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.ready:
		}
	}
}

// Close stops accepting new items. Items already queued can still be popped.
func (q *Bounded[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
}

func (q *Bounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Bounded[T]) Dropped() int64 {
	return q.dropped.Load()
}

// signal must be called with mu held.
func (q *Bounded[T]) signal() {
	if q.closed {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

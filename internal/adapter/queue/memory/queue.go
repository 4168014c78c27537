package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/docstruct/internal/port"
)

// Queue is an in-process FIFO. It is used for single-process runs and tests.
type Queue struct {
	mu     sync.Mutex
	items  [][]byte
	notify chan struct{}
}

func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

func (q *Queue) Post(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := append([]byte(nil), body...)

	q.mu.Lock()
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context, wait time.Duration) ([]byte, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if body := q.pop(); body != nil {
			return body, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return q.pop(), nil
		case <-q.notify:
		}
	}
}

func (q *Queue) pop() []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	body := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return body
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

var _ port.Queue = (*Queue)(nil)

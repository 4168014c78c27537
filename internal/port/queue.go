package port

import (
	"context"
	"time"
)

// Queue delivers message bodies at least once. Receive is destructive: a
// returned body is no longer in the queue. A nil body with a nil error means
// nothing arrived within wait.
type Queue interface {
	Receive(ctx context.Context, wait time.Duration) ([]byte, error)
	Post(ctx context.Context, body []byte) error
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bnema/docstruct/internal/port"
)

// Queue is a Redis list. Post appends with RPUSH, Receive pops with BLPOP so
// a delivered message is already gone from the list.
type Queue struct {
	client *redis.Client
	key    string
}

// NewQueue connects to the server at url (redis://[user:pass@]host:port/db)
// and checks it is reachable.
func NewQueue(ctx context.Context, url, key string) (*Queue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewQueueWithClient(client, key), nil
}

func NewQueueWithClient(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Post(ctx context.Context, body []byte) error {
	if err := q.client.RPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", q.key, err)
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context, wait time.Duration) ([]byte, error) {
	res, err := q.client.BLPop(ctx, wait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("blpop %s: %w", q.key, err)
	}
	return payload(res), nil
}

// payload extracts the value from a BLPOP reply, which is [key, value].
func payload(res []string) []byte {
	if len(res) < 2 {
		return nil
	}
	return []byte(res[1])
}

var _ port.Queue = (*Queue)(nil)

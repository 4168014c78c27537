package port

import "context"

// ObjectStore reads and writes whole objects. Get returns domain.ErrNotFound
// when the key does not exist.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

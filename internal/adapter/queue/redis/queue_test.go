package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload(t *testing.T) {
	assert.Equal(t, []byte("body"), payload([]string{"docstruct:jobs", "body"}))
	assert.Nil(t, payload([]string{"docstruct:jobs"}))
	assert.Nil(t, payload(nil))
}

func TestNewQueue_InvalidURL(t *testing.T) {
	_, err := NewQueue(context.Background(), "not-a-url://", "k")
	assert.Error(t, err)
}

// Runs against a live server when REDIS_URL is set.
func TestQueue_Live(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	q, err := NewQueue(ctx, url, "docstruct:test:"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = q.client.Del(context.Background(), q.key).Err()
		_ = q.Close()
	})

	body, err := q.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, body)

	require.NoError(t, q.Post(ctx, []byte(`{"Type":"Job"}`)))
	require.NoError(t, q.Post(ctx, []byte(`{"Type":"Notification"}`)))

	body, err = q.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"Type":"Job"}`, string(body))

	body, err = q.Receive(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, `{"Type":"Notification"}`, string(body))
}

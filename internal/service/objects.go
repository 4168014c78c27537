package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bnema/docstruct/internal/port"
)

const jsonContentType = "application/json"

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, store port.ObjectStore, bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := store.Put(ctx, bucket, key, data, jsonContentType); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// GetJSON loads key and unmarshals it into v.
func GetJSON(ctx context.Context, store port.ObjectStore, bucket, key string, v any) error {
	data, err := store.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/port"
)

var ErrInvalidKey = errors.New("invalid object key")

// Store keeps objects as plain files under <root>/<bucket>/<key>. It is meant
// for development and tests; the content type is not persisted.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// invalidKey matches ErrInvalidKey and is a domain.ValidationError, so a job
// naming such a key is dropped instead of retried.
func invalidKey(field, value string) error {
	return fmt.Errorf("%w: %w", ErrInvalidKey, domain.NewValidationError(field, fmt.Sprintf("%q is not usable", value)))
}

func (s *Store) path(bucket, key string) (string, error) {
	if bucket == "" || strings.Contains(bucket, "/") {
		return "", invalidKey("bucket", bucket)
	}
	if key == "" {
		return "", invalidKey("key", key)
	}
	base := filepath.Join(s.root, bucket)
	p := filepath.Join(base, filepath.FromSlash(key))
	if p == base || !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", invalidKey("key", key)
	}
	return p, nil
}

func (s *Store) Get(_ context.Context, bucket, key string) ([]byte, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, domain.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	tmpPath := p + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

var _ port.ObjectStore = (*Store)(nil)

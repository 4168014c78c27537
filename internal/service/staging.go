package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
)

// StagingFile is the execution context of one job: it pulls the job's input
// from the object store on demand, tracks local scratch files, accumulates
// the result descriptor and finalizes all of it exactly once in Close.
type StagingFile struct {
	deps     *Deps
	inputKey string
	prefix   string

	// OnStaged runs once, right after the input is first made available
	// locally. Image jobs use it to record the input's properties.
	OnStaged func(ctx context.Context, sf *StagingFile, localPath string) error

	mu        sync.Mutex
	localPath string
	cleanup   []string
	marked    map[string]struct{}
	result    *domain.ResultDescriptor
	closed    bool
}

func NewStagingFile(deps *Deps, inputKey, outputKeyPrefix string) *StagingFile {
	return &StagingFile{
		deps:     deps,
		inputKey: inputKey,
		prefix:   outputKeyPrefix,
		marked:   make(map[string]struct{}),
		result:   domain.NewResultDescriptor(inputKey, outputKeyPrefix),
	}
}

func (sf *StagingFile) InputKey() string        { return sf.inputKey }
func (sf *StagingFile) OutputKeyPrefix() string { return sf.prefix }

// LocalPathForKey maps a remote key under prefix to a path in the scratch
// directory. Slashes become "--" so every key lands directly in dataDir.
func LocalPathForKey(dataDir, prefix, key string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	key = strings.TrimPrefix(key, "/")
	joined := key
	if prefix != "" {
		joined = prefix + "/" + key
	}
	return filepath.Join(dataDir, strings.ReplaceAll(joined, "/", "--"))
}

// OutputPath is the scratch path for an output named name.
func (sf *StagingFile) OutputPath(name string) string {
	return LocalPathForKey(sf.deps.scratchDir(), sf.prefix, name)
}

// LocalPath returns the staged copy of the input, downloading it on the
// first call. Later calls return the same path without touching the store.
func (sf *StagingFile) LocalPath(ctx context.Context) (string, error) {
	sf.mu.Lock()
	if sf.localPath != "" {
		defer sf.mu.Unlock()
		return sf.localPath, nil
	}

	if sf.inputKey == "" {
		sf.mu.Unlock()
		return "", domain.NewValidationError(domain.ParamInputKey, "is required")
	}

	dir := sf.deps.scratchDir()
	p := LocalPathForKey(dir, "", sf.inputKey)
	// "." or ".." would resolve to the scratch directory or above it.
	if filepath.Dir(p) != filepath.Clean(dir) {
		sf.mu.Unlock()
		return "", domain.NewValidationError(domain.ParamInputKey, fmt.Sprintf("%q does not name a file", sf.inputKey))
	}
	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		if err := sf.download(ctx, p); err != nil {
			sf.mu.Unlock()
			return "", err
		}
		sf.deps.Logger.Debugf("downloaded %s to %s", logger.SanitizeForLog(sf.inputKey), p)
	} else if err != nil {
		sf.mu.Unlock()
		return "", fmt.Errorf("stat staged input: %w", err)
	}

	sf.markLocked(p)
	sf.localPath = p
	sf.mu.Unlock()

	if sf.OnStaged != nil {
		if err := sf.OnStaged(ctx, sf, p); err != nil {
			return "", err
		}
	}
	return p, nil
}

func (sf *StagingFile) download(ctx context.Context, dst string) error {
	data, err := sf.deps.Store.Get(ctx, sf.deps.Config.InputBucket, sf.inputKey)
	if err != nil {
		return fmt.Errorf("download %s: %w", sf.inputKey, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	tmpPath := dst + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write staged input: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write staged input: %w", err)
	}
	return nil
}

// MarkForCleanup schedules p for deletion when the job finishes.
func (sf *StagingFile) MarkForCleanup(p string) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.markLocked(p)
}

func (sf *StagingFile) markLocked(p string) {
	if _, ok := sf.marked[p]; ok {
		return
	}
	sf.marked[p] = struct{}{}
	sf.cleanup = append(sf.cleanup, p)
}

func (sf *StagingFile) SetInput(input map[string]any) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.result.Input = input
}

func (sf *StagingFile) AddOutput(out domain.Output) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	sf.result.Outputs = append(sf.result.Outputs, out)
}

// Result returns a copy of the descriptor as it currently stands.
func (sf *StagingFile) Result() domain.ResultDescriptor {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	r := *sf.result
	r.Outputs = append([]domain.Output(nil), sf.result.Outputs...)
	return r
}

// Upload stores the local file under <prefix>/<name> in the output bucket
// and returns the object key.
func (sf *StagingFile) Upload(ctx context.Context, localPath, name string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	key := domain.OutputKey(sf.prefix, name)
	contentType := mimetype.Detect(data).String()
	if err := sf.deps.Store.Put(ctx, sf.deps.Config.OutputBucket, key, data, contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	sf.deps.Logger.Debugf("uploaded %s (%s)", logger.SanitizeForLog(key), contentType)
	return key, nil
}

// Close finalizes the job: the descriptor takes its terminal state from
// runErr and is written to the output store, then every marked file is
// removed. Only the descriptor write can fail; cleanup runs regardless.
// Calls after the first are no-ops.
func (sf *StagingFile) Close(ctx context.Context, runErr error) error {
	sf.mu.Lock()
	if sf.closed {
		sf.mu.Unlock()
		return nil
	}
	sf.closed = true
	sf.result.Finish(runErr)
	result := *sf.result
	cleanup := sf.cleanup
	sf.mu.Unlock()

	// The descriptor is written even when the job was cancelled.
	writeCtx := context.WithoutCancel(ctx)
	key := domain.ResultKey(sf.prefix)
	writeErr := PutJSON(writeCtx, sf.deps.Store, sf.deps.Config.OutputBucket, key, result)
	if writeErr != nil {
		sf.deps.Logger.Errorf("failed to write %s: %v", logger.SanitizeForLog(key), writeErr)
	} else {
		sf.deps.Logger.Debugf("wrote %s state=%s", logger.SanitizeForLog(key), result.State)
		publishState(sf.deps.Events, sf.prefix, result.State, result.Error)
	}

	for _, p := range cleanup {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			sf.deps.Logger.Warnf("failed to remove %s: %v", p, err)
		}
	}

	return writeErr
}

// RunStaged runs fn inside sf and always finalizes it, including when fn
// panics. The returned error joins fn's error with any failure to write the
// result descriptor.
func RunStaged(ctx context.Context, sf *StagingFile, fn func(ctx context.Context, sf *StagingFile) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			sf.deps.Logger.Errorf("job for %s panicked: %v\n%s", logger.SanitizeForLog(sf.inputKey), r, debug.Stack())
			err = fmt.Errorf("job panicked: %v", r)
		}
		if closeErr := sf.Close(ctx, err); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()
	return fn(ctx, sf)
}

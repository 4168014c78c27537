package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bnema/docstruct/config"
	"github.com/bnema/docstruct/internal/adapter/storage/localfs"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/port"
)

const (
	testInputBucket  = "in"
	testOutputBucket = "out"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		InputBucket:  testInputBucket,
		OutputBucket: testOutputBucket,
		DataDir:      t.TempDir(),
		Workers:      1,
		ReceiveWait:  10 * time.Millisecond,
		MaxRetries:   domain.DefaultMaxRetries,
		PipelineID:   "arn:aws:elastictranscoder:eu-west-1:1:pipeline/local",
		Presets: map[string]string{
			"webm": "webm-av1",
			"mp4":  "mp4-h264",
			"mp3":  "mp3-320k",
			"ogg":  "ogg-opus",
		},
	}
}

func newTestDeps(t *testing.T, store port.ObjectStore) *Deps {
	t.Helper()
	return &Deps{
		Config:    testConfig(t),
		Logger:    logger.New("test"),
		Store:     store,
		Images:    newFakeImageTool(),
		Documents: fakeDocuments{},
		PDFs:      &fakeRasterizer{pages: 2},
	}
}

func newLocalStore(t *testing.T) *localfs.Store {
	t.Helper()
	store, err := localfs.NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func putInput(t *testing.T, store port.ObjectStore, key string, data []byte) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), testInputBucket, key, data, ""))
}

func readResult(t *testing.T, store port.ObjectStore, prefix string) domain.ResultDescriptor {
	t.Helper()
	var r domain.ResultDescriptor
	require.NoError(t, GetJSON(context.Background(), store, testOutputBucket, domain.ResultKey(prefix), &r))
	return r
}

// assertScratchEmpty fails when a file is left anywhere under DataDir.
// Per-worker directories may remain.
func assertScratchEmpty(t *testing.T, deps *Deps) {
	t.Helper()
	var files []string
	err := filepath.WalkDir(deps.Config.DataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, files, "scratch files left behind")
}

// fakeImageTool copies files around and remembers the size each output was
// asked for, so Identify can report it back.
type fakeImageTool struct {
	mu      sync.Mutex
	info    map[string]domain.ImageInfo
	failFor string
	delay   time.Duration
}

func newFakeImageTool() *fakeImageTool {
	return &fakeImageTool{info: make(map[string]domain.ImageInfo)}
}

func (f *fakeImageTool) write(src, dst string, info domain.ImageInfo) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return err
	}
	f.mu.Lock()
	f.info[dst] = info
	f.mu.Unlock()
	return nil
}

func (f *fakeImageTool) fail(dst string) error {
	if f.failFor != "" && strings.HasSuffix(dst, f.failFor) {
		return &domain.ToolExecutionError{Tool: "convert", ExitCode: 1, Output: "convert: no decode delegate"}
	}
	return nil
}

func (f *fakeImageTool) Resize(_ context.Context, src, dst string, width, height int) error {
	if err := f.fail(dst); err != nil {
		return err
	}
	time.Sleep(f.delay)
	info := domain.ImageInfo{Type: "JPEG", Width: width, Height: height}
	if width == 0 || height == 0 {
		info = f.lookup(src)
	}
	return f.write(src, dst, info)
}

func (f *fakeImageTool) Normalize(_ context.Context, src, dst string, width, height int) error {
	if err := f.fail(dst); err != nil {
		return err
	}
	return f.write(src, dst, domain.ImageInfo{Type: "JPEG", Width: width, Height: height})
}

func (f *fakeImageTool) Identify(_ context.Context, path string) (domain.ImageInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return domain.ImageInfo{}, err
	}
	return f.lookup(path), nil
}

// written lists every output path the tool has produced.
func (f *fakeImageTool) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.info))
	for p := range f.info {
		paths = append(paths, p)
	}
	return paths
}

func (f *fakeImageTool) lookup(path string) domain.ImageInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.info[path]; ok {
		return info
	}
	return domain.ImageInfo{Type: "PNG", Width: 800, Height: 600}
}

type fakeDocuments struct {
	err error
}

func (f fakeDocuments) ConvertToPDF(_ context.Context, _, dst string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, []byte("%PDF-1.4\n%fake\n"), 0600)
}

type fakeRasterizer struct {
	pages int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _, outputPrefix string) ([]domain.RasterPage, error) {
	pages := make([]domain.RasterPage, 0, f.pages)
	for n := 1; n <= f.pages; n++ {
		p := fmt.Sprintf("%s-%d.png", outputPrefix, n)
		if err := os.WriteFile(p, pngHeader, 0600); err != nil {
			return pages, err
		}
		pages = append(pages, domain.RasterPage{Number: n, Path: p})
	}
	return pages, nil
}

func (f *fakeRasterizer) PageCount(string) (int, error) {
	return f.pages, nil
}

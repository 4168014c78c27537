package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/docstruct/internal/adapter/queue/memory"
	"github.com/bnema/docstruct/internal/adapter/storage/localfs"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
)

const fakeProbe = `#!/bin/sh
echo '{"format":{"duration":"12.6"},"streams":[{"codec_type":"video","width":640,"height":360},{"codec_type":"audio"}]}'
`

const fakeEncoder = `#!/bin/sh
for last; do :; done
printf 'encoded' > "$last"
`

const failingEncoder = `#!/bin/sh
echo "Unknown encoder 'libaom-av1'" >&2
exit 1
`

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0755))
	return p
}

type fixture struct {
	tr    *Transcoder
	queue *memory.Queue
	store *localfs.Store
}

func newFixture(t *testing.T, encoder string) *fixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts stand in for ffmpeg")
	}
	bin := t.TempDir()
	store, err := localfs.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "in", "uploads/clip.mov", []byte("source"), "video/quicktime"))

	q := memory.NewQueue()
	tr := NewTranscoder(store, q, logger.New("transcoder"), Options{
		FFmpeg:       writeScript(t, bin, "ffmpeg", encoder),
		FFprobe:      writeScript(t, bin, "ffprobe", fakeProbe),
		InputBucket:  "in",
		OutputBucket: "out",
		WorkDir:      t.TempDir(),
	})
	t.Cleanup(func() { _ = tr.Close() })
	return &fixture{tr: tr, queue: q, store: store}
}

func (f *fixture) next(t *testing.T) *domain.TranscoderNotification {
	t.Helper()
	body, err := f.queue.Receive(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, body, "no notification posted")
	n, err := domain.DecodeNotification(body, 0)
	require.NoError(t, err)
	require.NotNil(t, n)
	return n
}

func videoRequest() domain.TranscodeRequest {
	return domain.TranscodeRequest{
		PipelineID:      "local",
		InputKey:        "uploads/clip.mov",
		OutputKeyPrefix: "jobs/42",
		Outputs: []domain.TranscodeOutput{
			{Key: "video.webm", PresetID: "webm-av1", ThumbnailPattern: "thumb_{resolution}_{count}.webm"},
			{Key: "video.mp4", PresetID: "mp4-h264", ThumbnailPattern: "thumb_{resolution}_{count}.mp4"},
		},
	}
}

func TestTranscoder_CompletesAndNotifies(t *testing.T) {
	f := newFixture(t, fakeEncoder)
	ctx := context.Background()

	jobID, err := f.tr.StartJob(ctx, videoRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	progressing := f.next(t)
	assert.Equal(t, domain.StateProgressing, progressing.State)
	assert.Equal(t, jobID, progressing.JobID)

	done := f.next(t)
	assert.Equal(t, domain.StateCompleted, done.State)
	assert.Equal(t, "jobs/42", done.OutputKeyPrefix)
	assert.Equal(t, "uploads/clip.mov", done.Input["key"])
	require.Len(t, done.Outputs, 2)
	assert.Equal(t, "Complete", done.Outputs[0].Status)
	assert.Equal(t, 640, done.Outputs[0].Width)
	assert.Equal(t, 360, done.Outputs[0].Height)
	assert.Equal(t, float64(13), done.Outputs[0].Duration)

	for _, key := range []string{
		"jobs/42/video.webm",
		"jobs/42/video.mp4",
		"jobs/42/thumb_640x360_00001.webm.jpg",
		"jobs/42/thumb_640x360_00001.mp4.jpg",
	} {
		data, err := f.store.Get(ctx, "out", key)
		require.NoError(t, err, key)
		assert.Equal(t, "encoded", string(data))
	}
}

func TestTranscoder_AudioHasNoThumbnail(t *testing.T) {
	f := newFixture(t, fakeEncoder)

	_, err := f.tr.StartJob(context.Background(), domain.TranscodeRequest{
		InputKey:        "uploads/clip.mov",
		OutputKeyPrefix: "jobs/a",
		Outputs:         []domain.TranscodeOutput{{Key: "audio.mp3", PresetID: "mp3-320k", ThumbnailPattern: "thumb_{count}"}},
	})
	require.NoError(t, err)

	f.next(t)
	done := f.next(t)
	require.Len(t, done.Outputs, 1)
	assert.Zero(t, done.Outputs[0].Width)

	_, err = f.store.Get(context.Background(), "out", "jobs/a/thumb_00001.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTranscoder_EncoderFailureReportsError(t *testing.T) {
	f := newFixture(t, failingEncoder)

	_, err := f.tr.StartJob(context.Background(), videoRequest())
	require.NoError(t, err)

	f.next(t)
	done := f.next(t)
	assert.Equal(t, domain.StateError, done.State)
	assert.Equal(t, errorCodeInternal, done.ErrorCode)
	assert.Contains(t, done.MessageDetails, "libaom-av1")
	require.Len(t, done.Outputs, 2)
	assert.Equal(t, "Error", done.Outputs[0].Status)
	assert.Equal(t, "Canceled", done.Outputs[1].Status)
}

func TestTranscoder_MissingInputReportsError(t *testing.T) {
	f := newFixture(t, fakeEncoder)

	req := videoRequest()
	req.InputKey = "uploads/missing.mov"
	_, err := f.tr.StartJob(context.Background(), req)
	require.NoError(t, err)

	f.next(t)
	done := f.next(t)
	assert.Equal(t, domain.StateError, done.State)
	assert.Contains(t, done.MessageDetails, "uploads/missing.mov")
}

func TestTranscoder_StartJobValidation(t *testing.T) {
	f := newFixture(t, fakeEncoder)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.TranscodeRequest
	}{
		{"no input", domain.TranscodeRequest{Outputs: videoRequest().Outputs}},
		{"no outputs", domain.TranscodeRequest{InputKey: "a"}},
		{"unknown preset", domain.TranscodeRequest{InputKey: "a", Outputs: []domain.TranscodeOutput{{Key: "x.avi", PresetID: "1351620000001-000010"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tr.StartJob(ctx, tt.req)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
	assert.Zero(t, f.queue.Len())
}

func TestTranscoder_StartJobAfterClose(t *testing.T) {
	f := newFixture(t, fakeEncoder)
	require.NoError(t, f.tr.Close())

	_, err := f.tr.StartJob(context.Background(), videoRequest())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestThumbnailName(t *testing.T) {
	assert.Equal(t, "thumb_1280x720_00001.webm.jpg", ThumbnailName("thumb_{resolution}_{count}.webm", 1280, 720, 1))
	assert.Equal(t, "poster.jpg", ThumbnailName("poster", 0, 0, 3))
}

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("/in.mov", "/out.mp3", DefaultProfiles()["mp3-320k"])
	assert.Equal(t, []string{"-i", "/in.mov", "-vn", "-c:a", "libmp3lame", "-b:a", "320k", "-y", "/out.mp3"}, args)
}

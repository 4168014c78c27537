package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/infrastructure/toolchain"
	"github.com/bnema/docstruct/internal/port"
)

// ErrClosed is returned by StartJob after Close.
var ErrClosed = errors.New("transcoder is closed")

const (
	notifyTimeout = 30 * time.Second

	// Reported in the notification when a job fails, like a transcoder's
	// internal service error.
	errorCodeInternal = 4000
)

type Options struct {
	FFmpeg       string
	FFprobe      string
	InputBucket  string
	OutputBucket string
	WorkDir      string
	// Concurrency bounds how many jobs encode at once. Defaults to 1.
	Concurrency int
	Profiles    map[string]Profile
}

// Transcoder runs transcode jobs in the background with ffmpeg. Each job
// reads its input from the object store, uploads the encoded outputs and
// posts a Notification message on the queue when it finishes.
type Transcoder struct {
	store port.ObjectStore
	queue port.Queue
	log   port.Logger
	opts  Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sem    chan struct{}
}

func NewTranscoder(store port.ObjectStore, queue port.Queue, log port.Logger, opts Options) *Transcoder {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Profiles == nil {
		opts.Profiles = DefaultProfiles()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Transcoder{
		store:  store,
		queue:  queue,
		log:    log,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, opts.Concurrency),
	}
}

// StartJob validates req and queues it for encoding. It returns as soon as
// the job is accepted.
func (t *Transcoder) StartJob(ctx context.Context, req domain.TranscodeRequest) (string, error) {
	if t.ctx.Err() != nil {
		return "", ErrClosed
	}
	if req.InputKey == "" {
		return "", domain.NewValidationError("InputKey", "is required")
	}
	if len(req.Outputs) == 0 {
		return "", domain.NewValidationError("Outputs", "must not be empty")
	}
	for _, out := range req.Outputs {
		if _, ok := t.opts.Profiles[out.PresetID]; !ok {
			return "", domain.NewValidationError("PresetId", fmt.Sprintf("unknown preset %q", out.PresetID))
		}
	}

	jobID := uuid.NewString()
	t.notify(t.newNotification(jobID, req, domain.StateProgressing))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(jobID, req)
	}()

	t.log.Debugf("transcode job %s accepted for %s", jobID, logger.SanitizeForLog(req.InputKey))
	return jobID, nil
}

// Close stops running jobs and waits for their goroutines to exit.
func (t *Transcoder) Close() error {
	t.cancel()
	t.wg.Wait()
	return nil
}

func (t *Transcoder) run(jobID string, req domain.TranscodeRequest) {
	select {
	case t.sem <- struct{}{}:
		defer func() { <-t.sem }()
	case <-t.ctx.Done():
		return
	}

	n := t.newNotification(jobID, req, domain.StateCompleted)
	outputs, err := t.transcode(t.ctx, jobID, req)
	n.Outputs = outputs
	if err != nil {
		if t.ctx.Err() != nil {
			t.log.Warnf("transcode job %s interrupted by shutdown", jobID)
			return
		}
		t.log.Errorf("transcode job %s failed: %v", jobID, err)
		n.State = domain.StateError
		n.ErrorCode = errorCodeInternal
		n.MessageDetails = err.Error()
	}
	t.notify(n)
}

func (t *Transcoder) transcode(ctx context.Context, jobID string, req domain.TranscodeRequest) ([]domain.NotificationOutput, error) {
	dir := filepath.Join(t.opts.WorkDir, "transcode-"+jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(dir)

	data, err := t.store.Get(ctx, t.opts.InputBucket, req.InputKey)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", req.InputKey, err)
	}
	inputPath := filepath.Join(dir, "input"+filepath.Ext(req.InputKey))
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write input: %w", err)
	}

	outputs := make([]domain.NotificationOutput, 0, len(req.Outputs))
	var failed error
	for i, out := range req.Outputs {
		result := domain.NotificationOutput{
			Key:              out.Key,
			PresetID:         out.PresetID,
			ThumbnailPattern: out.ThumbnailPattern,
		}
		if failed != nil {
			result.Status = "Canceled"
			outputs = append(outputs, result)
			continue
		}
		if err := t.encodeOutput(ctx, dir, i, inputPath, req.OutputKeyPrefix, out, &result); err != nil {
			result.Status = "Error"
			result.StatusDetail = err.Error()
			failed = fmt.Errorf("output %s: %w", out.Key, err)
		} else {
			result.Status = "Complete"
		}
		outputs = append(outputs, result)
	}
	return outputs, failed
}

func (t *Transcoder) encodeOutput(ctx context.Context, dir string, idx int, inputPath, prefix string, out domain.TranscodeOutput, result *domain.NotificationOutput) error {
	profile := t.opts.Profiles[out.PresetID]
	outputPath := filepath.Join(dir, fmt.Sprintf("output-%d%s", idx, filepath.Ext(out.Key)))

	if _, err := toolchain.Run(ctx, t.opts.FFmpeg, encodeArgs(inputPath, outputPath, profile)...); err != nil {
		return err
	}

	probe, err := t.probe(ctx, outputPath)
	if err != nil {
		return err
	}
	result.Duration = math.Round(probe.DurationSeconds())
	if !profile.AudioOnly {
		result.Width, result.Height = probe.Dimensions()
	}

	if err := t.upload(ctx, outputPath, domain.OutputKey(prefix, out.Key)); err != nil {
		return err
	}

	if out.ThumbnailPattern == "" || profile.AudioOnly {
		return nil
	}
	thumbPath := filepath.Join(dir, fmt.Sprintf("thumb-%d.jpg", idx))
	if _, err := toolchain.Run(ctx, t.opts.FFmpeg, thumbnailArgs(outputPath, thumbPath)...); err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	name := ThumbnailName(out.ThumbnailPattern, result.Width, result.Height, 1)
	return t.upload(ctx, thumbPath, domain.OutputKey(prefix, name))
}

func (t *Transcoder) probe(ctx context.Context, path string) (*domain.ProbeResult, error) {
	output, err := toolchain.Run(ctx, t.opts.FFprobe, probeArgs(path)...)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	var result domain.ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	result.RawJSON = string(output)
	return &result, nil
}

func (t *Transcoder) upload(ctx context.Context, localPath, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	if err := t.store.Put(ctx, t.opts.OutputBucket, key, data, mimetype.Detect(data).String()); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (t *Transcoder) newNotification(jobID string, req domain.TranscodeRequest, state domain.ResultState) domain.TranscoderNotification {
	return domain.TranscoderNotification{
		State:           state,
		JobID:           jobID,
		PipelineID:      req.PipelineID,
		OutputKeyPrefix: req.OutputKeyPrefix,
		Input:           map[string]any{"key": req.InputKey},
	}
}

func (t *Transcoder) notify(n domain.TranscoderNotification) {
	body, err := domain.NewNotificationEnvelope(n)
	if err != nil {
		t.log.Errorf("transcode job %s: %v", n.JobID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := t.queue.Post(ctx, body); err != nil {
		t.log.Errorf("transcode job %s: failed to post %s notification: %v", n.JobID, n.State, err)
	}
}

// ThumbnailName expands a thumbnail pattern's {resolution} and {count}
// placeholders and appends the image extension.
func ThumbnailName(pattern string, width, height, count int) string {
	name := strings.NewReplacer(
		"{resolution}", fmt.Sprintf("%dx%d", width, height),
		"{count}", fmt.Sprintf("%05d", count),
	).Replace(pattern)
	return name + ".jpg"
}

var _ port.MediaTranscoder = (*Transcoder)(nil)

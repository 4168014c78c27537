package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
)

type transcodeParams struct {
	InputKey        string
	OutputKeyPrefix string
	OutputFormats   []string
}

func (p transcodeParams) validate() error {
	if p.InputKey == "" {
		return domain.NewValidationError(domain.ParamInputKey, "is required")
	}
	if p.OutputKeyPrefix == "" {
		return domain.NewValidationError(domain.ParamOutputKeyPrefix, "is required")
	}
	if len(p.OutputFormats) == 0 {
		return domain.NewValidationError("OutputFormats", "must list at least one format")
	}
	return nil
}

var videoOutputKeys = map[string]string{
	domain.FormatWebM: "video.webm",
	domain.FormatMP4:  "video.mp4",
}

// TranscodeVideo submits a webm and/or mp4 transcode. Completion arrives
// later as a Notification message.
type TranscodeVideo struct{}

func (TranscodeVideo) Name() string { return domain.JobTranscodeVideo }

func (TranscodeVideo) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	return startTranscode(ctx, params, deps, domain.JobTranscodeVideo, func(format string) (domain.TranscodeOutput, bool) {
		key, ok := videoOutputKeys[format]
		if !ok {
			return domain.TranscodeOutput{}, false
		}
		return domain.TranscodeOutput{
			Key:              key,
			ThumbnailPattern: "thumb_{resolution}_{count}" + path.Ext(key),
		}, true
	})
}

// TranscodeAudio submits one audio.<format> output per requested format.
type TranscodeAudio struct{}

func (TranscodeAudio) Name() string { return domain.JobTranscodeAudio }

func (TranscodeAudio) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	return startTranscode(ctx, params, deps, domain.JobTranscodeAudio, func(format string) (domain.TranscodeOutput, bool) {
		return domain.TranscodeOutput{Key: "audio." + format}, true
	})
}

type outputForFormat func(format string) (domain.TranscodeOutput, bool)

func startTranscode(ctx context.Context, params domain.Params, deps *Deps, name string, outputFor outputForFormat) (string, error) {
	var p transcodeParams
	if err := params.Decode(&p); err != nil {
		return "", err
	}
	if err := p.validate(); err != nil {
		return "", err
	}

	deps.Logger.Debugf("%s started for %s", name, logger.SanitizeForLog(p.InputKey))

	req := domain.TranscodeRequest{
		PipelineID:      path.Base(deps.Config.PipelineID),
		InputKey:        p.InputKey,
		OutputKeyPrefix: p.OutputKeyPrefix,
	}
	for _, format := range p.OutputFormats {
		format = strings.ToLower(format)
		out, ok := outputFor(format)
		if !ok {
			deps.Logger.Warnf("%s: ignoring unsupported format %q", name, logger.SanitizeForLog(format))
			continue
		}
		preset, ok := deps.Config.PresetFor(format)
		if !ok {
			return "", domain.NewValidationError("OutputFormats", fmt.Sprintf("no preset configured for %q", format))
		}
		out.PresetID = preset
		req.Outputs = append(req.Outputs, out)
	}
	if len(req.Outputs) == 0 {
		return "", domain.NewValidationError("OutputFormats", "no supported format requested")
	}

	jobID, err := deps.Transcoder.StartJob(ctx, req)
	if err != nil {
		return "", fmt.Errorf("start transcode: %w", err)
	}
	deps.Logger.Debugf("transcoder job created: %s", jobID)
	return jobID, nil
}

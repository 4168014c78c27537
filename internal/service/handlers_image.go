package service

import (
	"context"
	"fmt"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
)

type imageParams struct {
	InputKey         string
	OutputKeyPrefix  string
	PreferredOutputs []domain.PreferredOutput
}

func (p imageParams) validate() error {
	if p.InputKey == "" {
		return domain.NewValidationError(domain.ParamInputKey, "is required")
	}
	if len(p.PreferredOutputs) == 0 {
		return domain.NewValidationError("PreferredOutputs", "must list at least one output")
	}
	for i, o := range p.PreferredOutputs {
		if o.Key == "" {
			return domain.NewValidationError("PreferredOutputs", fmt.Sprintf("entry %d has no key", i))
		}
		if o.Width < 0 || o.Height < 0 {
			return domain.NewValidationError("PreferredOutputs", fmt.Sprintf("entry %d has a negative size", i))
		}
	}
	return nil
}

// ResizeImage fits the input into each preferred box keeping its aspect
// ratio. A 0x0 entry stores an unmodified copy.
type ResizeImage struct{}

func (ResizeImage) Name() string { return domain.JobResizeImage }

func (ResizeImage) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	return runImageJob(ctx, params, deps, domain.JobResizeImage, func(ctx context.Context, src, dst string, o domain.PreferredOutput) error {
		return deps.Images.Resize(ctx, src, dst, o.Width, o.Height)
	})
}

// NormalizeImage fills each preferred box exactly, cropping around the
// center.
type NormalizeImage struct{}

func (NormalizeImage) Name() string { return domain.JobNormalizeImage }

func (NormalizeImage) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	return runImageJob(ctx, params, deps, domain.JobNormalizeImage, func(ctx context.Context, src, dst string, o domain.PreferredOutput) error {
		if o.Copy() {
			return domain.NewValidationError("PreferredOutputs", fmt.Sprintf("%s needs a non-zero box", o.Key))
		}
		return deps.Images.Normalize(ctx, src, dst, o.Width, o.Height)
	})
}

type imageTransform func(ctx context.Context, src, dst string, o domain.PreferredOutput) error

func runImageJob(ctx context.Context, params domain.Params, deps *Deps, name string, transform imageTransform) ([]domain.Output, error) {
	var p imageParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	if p.OutputKeyPrefix == "" {
		return nil, domain.NewValidationError(domain.ParamOutputKeyPrefix, "is required")
	}

	sf := NewStagingFile(deps, p.InputKey, p.OutputKeyPrefix)
	sf.OnStaged = func(ctx context.Context, sf *StagingFile, localPath string) error {
		info, err := deps.Images.Identify(ctx, localPath)
		if err != nil {
			return fmt.Errorf("inspect input: %w", err)
		}
		sf.SetInput(info.Map(sf.InputKey()))
		return nil
	}

	err := RunStaged(ctx, sf, func(ctx context.Context, sf *StagingFile) error {
		if err := p.validate(); err != nil {
			return err
		}

		deps.Logger.Debugf("%s job for %s started", name, logger.SanitizeForLog(p.InputKey))
		src, err := sf.LocalPath(ctx)
		if err != nil {
			return err
		}

		for _, o := range p.PreferredOutputs {
			dst := sf.OutputPath(o.Key)
			sf.MarkForCleanup(dst)

			if err := transform(ctx, src, dst, o); err != nil {
				return fmt.Errorf("%s %s: %w", name, o.Key, err)
			}
			key, err := sf.Upload(ctx, dst, o.Key)
			if err != nil {
				return err
			}
			info, err := deps.Images.Identify(ctx, dst)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", o.Key, err)
			}

			sf.AddOutput(domain.Output{Key: key, Type: info.Type, Width: info.Width, Height: info.Height})
		}

		deps.Logger.Debugf("%s job for %s completed", name, logger.SanitizeForLog(p.InputKey))
		return nil
	})
	return sf.Result().Outputs, err
}

package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
)

const defaultPDFKey = "output.pdf"

// Every page gets a regular and a small thumbnail.
var pageThumbnailSizes = []struct{ Width, Height int }{
	{1200, 1200},
	{160, 160},
}

type documentParams struct {
	InputKey        string
	OutputKeyPrefix string
	OutputKey       string
}

// ConvertToPDF converts an office document to PDF, uploads it and renders
// two thumbnails per page.
type ConvertToPDF struct{}

func (ConvertToPDF) Name() string { return domain.JobConvertToPDF }

func (ConvertToPDF) Run(ctx context.Context, params domain.Params, deps *Deps) (any, error) {
	var p documentParams
	if err := params.Decode(&p); err != nil {
		return nil, err
	}
	if p.OutputKeyPrefix == "" {
		return nil, domain.NewValidationError(domain.ParamOutputKeyPrefix, "is required")
	}
	if p.OutputKey == "" {
		p.OutputKey = defaultPDFKey
	}

	sf := NewStagingFile(deps, p.InputKey, p.OutputKeyPrefix)
	err := RunStaged(ctx, sf, func(ctx context.Context, sf *StagingFile) error {
		deps.Logger.Debugf("ConvertToPDF job for %s started", logger.SanitizeForLog(p.InputKey))

		src, err := sf.LocalPath(ctx)
		if err != nil {
			return err
		}

		pdfPath := sf.OutputPath(p.OutputKey)
		sf.MarkForCleanup(pdfPath)
		if err := deps.Documents.ConvertToPDF(ctx, src, pdfPath); err != nil {
			return fmt.Errorf("convert to pdf: %w", err)
		}

		key, err := sf.Upload(ctx, pdfPath, p.OutputKey)
		if err != nil {
			return err
		}
		sf.AddOutput(domain.Output{Key: key, Type: "PDF"})

		pages, err := deps.PDFs.Rasterize(ctx, pdfPath, strings.TrimSuffix(pdfPath, ".pdf"))
		for _, page := range pages {
			sf.MarkForCleanup(page.Path)
		}
		if err != nil {
			return fmt.Errorf("rasterize pdf: %w", err)
		}

		for _, page := range pages {
			for _, size := range pageThumbnailSizes {
				if err := uploadPageThumbnail(ctx, deps, sf, page, size.Width, size.Height); err != nil {
					return err
				}
			}
		}

		numPages, err := deps.PDFs.PageCount(pdfPath)
		if err != nil {
			deps.Logger.Warnf("page count for %s: %v", logger.SanitizeForLog(key), err)
			numPages = len(pages)
		}
		sf.SetInput(map[string]any{"NumPages": numPages})
		return nil
	})
	return sf.Result().Outputs, err
}

func uploadPageThumbnail(ctx context.Context, deps *Deps, sf *StagingFile, page domain.RasterPage, width, height int) error {
	name := fmt.Sprintf("thumb-%d.%dx%d.png", page.Number, width, height)
	dst := sf.OutputPath(name)
	sf.MarkForCleanup(dst)

	if err := deps.Images.Resize(ctx, page.Path, dst, width, height); err != nil {
		return fmt.Errorf("thumbnail %s: %w", name, err)
	}
	key, err := sf.Upload(ctx, dst, name)
	if err != nil {
		return err
	}
	info, err := deps.Images.Identify(ctx, dst)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", name, err)
	}

	sf.AddOutput(domain.Output{
		Key:        key,
		Type:       info.Type,
		Width:      info.Width,
		Height:     info.Height,
		PageNumber: page.Number,
	})
	return nil
}

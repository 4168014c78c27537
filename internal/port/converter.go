package port

import (
	"context"

	"github.com/bnema/docstruct/internal/domain"
)

// MediaTranscoder submits asynchronous transcode jobs. Completion is reported
// later as a Notification message on the job queue.
type MediaTranscoder interface {
	StartJob(ctx context.Context, req domain.TranscodeRequest) (jobID string, err error)
}

type ImageTool interface {
	// Resize fits src inside width x height keeping the aspect ratio. A zero
	// width or height copies src unchanged.
	Resize(ctx context.Context, src, dst string, width, height int) error
	// Normalize scales src to cover width x height and crops the center.
	Normalize(ctx context.Context, src, dst string, width, height int) error
	Identify(ctx context.Context, path string) (domain.ImageInfo, error)
}

type DocumentConverter interface {
	ConvertToPDF(ctx context.Context, src, dst string) error
}

type PDFRasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outputPrefix string) ([]domain.RasterPage, error)
	PageCount(pdfPath string) (int, error)
}

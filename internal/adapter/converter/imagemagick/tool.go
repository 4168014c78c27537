package imagemagick

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/toolchain"
	"github.com/bnema/docstruct/internal/port"
)

// Tool shells out to ImageMagick's convert and identify.
type Tool struct {
	convert  string
	identify string
}

func NewTool(convertBin, identifyBin string) *Tool {
	return &Tool{convert: convertBin, identify: identifyBin}
}

func (t *Tool) Resize(ctx context.Context, src, dst string, width, height int) error {
	_, err := toolchain.Run(ctx, t.convert, resizeArgs(src, dst, width, height)...)
	return err
}

func (t *Tool) Normalize(ctx context.Context, src, dst string, width, height int) error {
	if width <= 0 || height <= 0 {
		return domain.NewValidationError("size", fmt.Sprintf("%dx%d is not a box", width, height))
	}
	_, err := toolchain.Run(ctx, t.convert, normalizeArgs(src, dst, width, height)...)
	return err
}

func (t *Tool) Identify(ctx context.Context, path string) (domain.ImageInfo, error) {
	// [0] limits multi-frame inputs (gif, tiff, pdf) to the first frame.
	out, err := toolchain.Run(ctx, t.identify, "-format", "%m %w %h", path+"[0]")
	if err != nil {
		return domain.ImageInfo{}, err
	}
	return parseIdentify(string(out))
}

// A zero dimension re-encodes src at its own size.
func resizeArgs(src, dst string, width, height int) []string {
	if width == 0 || height == 0 {
		return []string{src, dst}
	}
	return []string{src, "-resize", fmt.Sprintf("%dx%d", width, height), dst}
}

// Fill the box (^) then crop what overflows around the center.
func normalizeArgs(src, dst string, width, height int) []string {
	size := fmt.Sprintf("%dx%d", width, height)
	return []string{
		src,
		"-resize", size + "^",
		"-gravity", "Center",
		"-extent", size,
		dst,
	}
}

func parseIdentify(out string) (domain.ImageInfo, error) {
	fields := strings.Fields(out)
	if len(fields) != 3 {
		return domain.ImageInfo{}, fmt.Errorf("unexpected identify output %q", out)
	}
	width, err := strconv.Atoi(fields[1])
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("identify width: %w", err)
	}
	height, err := strconv.Atoi(fields[2])
	if err != nil {
		return domain.ImageInfo{}, fmt.Errorf("identify height: %w", err)
	}
	return domain.ImageInfo{Type: fields[0], Width: width, Height: height}, nil
}

var _ port.ImageTool = (*Tool)(nil)

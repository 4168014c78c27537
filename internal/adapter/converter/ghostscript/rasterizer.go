package ghostscript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/toolchain"
	"github.com/bnema/docstruct/internal/port"
)

const resolution = 300

var pageSuffix = regexp.MustCompile(`^-(\d+)\.png$`)

// Rasterizer renders PDF pages to PNG with Ghostscript and reads page counts
// with pdfcpu.
type Rasterizer struct {
	gs string
}

func NewRasterizer(gsBin string) *Rasterizer {
	return &Rasterizer{gs: gsBin}
}

// Rasterize writes one <outputPrefix>-<n>.png per page, n starting at 1.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outputPrefix string) ([]domain.RasterPage, error) {
	args := []string{
		"-q",
		"-dSAFER",
		"-sDEVICE=png256",
		"-dNOPAUSE",
		"-dBATCH",
		fmt.Sprintf("-r%d", resolution),
		"-o", outputPrefix + "-%d.png",
		pdfPath,
	}
	_, runErr := toolchain.Run(ctx, r.gs, args...)

	// Pages written before a failure are still returned so they get cleaned up.
	pages, err := collectPages(outputPrefix)
	if runErr != nil {
		return pages, runErr
	}
	if err != nil {
		return pages, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("ghostscript rendered no pages for %s", pdfPath)
	}
	return pages, nil
}

func (r *Rasterizer) PageCount(pdfPath string) (int, error) {
	n, err := api.PageCountFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// collectPages finds <prefix>-<n>.png files ordered by page number.
func collectPages(prefix string) ([]domain.RasterPage, error) {
	dir, base := filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list rendered pages: %w", err)
	}

	var pages []domain.RasterPage
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base) {
			continue
		}
		m := pageSuffix.FindStringSubmatch(strings.TrimPrefix(name, base))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		pages = append(pages, domain.RasterPage{Number: n, Path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

var _ port.PDFRasterizer = (*Rasterizer)(nil)

package office

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/docstruct/internal/infrastructure/toolchain"
	"github.com/bnema/docstruct/internal/port"
)

// Converter turns office documents into PDF with a headless LibreOffice.
type Converter struct {
	bin string
}

func NewConverter(bin string) *Converter {
	return &Converter{bin: bin}
}

// ConvertToPDF writes the PDF rendition of src to dst. Each call gets its own
// LibreOffice profile directory so conversions can run side by side.
func (c *Converter) ConvertToPDF(ctx context.Context, src, dst string) error {
	work, err := os.MkdirTemp(filepath.Dir(dst), "soffice-")
	if err != nil {
		return fmt.Errorf("create conversion directory: %w", err)
	}
	defer os.RemoveAll(work)

	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(work, "profile")),
		"--headless",
		"--convert-to", "pdf",
		"--outdir", work,
		src,
	}
	if _, err := toolchain.Run(ctx, c.bin, args...); err != nil {
		return err
	}

	produced := filepath.Join(work, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".pdf")
	if _, err := os.Stat(produced); err != nil {
		return fmt.Errorf("%s produced no pdf for %s", filepath.Base(c.bin), filepath.Base(src))
	}
	return os.Rename(produced, dst)
}

var _ port.DocumentConverter = (*Converter)(nil)

package source

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/gen2brain/go-fitz"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
)

// Rasterizer names.
const (
	RasterPdftoppm = "pdftoppm"
	RasterFitz     = "fitz"
)

// DefaultDPI balances legibility for the vision model against upload size.
const DefaultDPI = 150

// Rasterizer renders every page of a PDF to a PNG image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string, pages int) ([]items.Page, error)
}

// NewRasterizer returns the named rasterizer.
func NewRasterizer(name string, dpi int) (Rasterizer, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	switch name {
	case "", RasterPdftoppm:
		return &Pdftoppm{Path: "pdftoppm", DPI: dpi}, nil
	case RasterFitz:
		return &Fitz{DPI: dpi}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", name)
	}
}

// Pdftoppm renders pages with poppler's pdftoppm, one process per page,
// NumCPU pages at a time.
type Pdftoppm struct {
	Path string
	DPI  int
}

// Rasterize renders pages 1..pages of pdfPath.
func (p *Pdftoppm) Rasterize(ctx context.Context, pdfPath string, pages int) ([]items.Page, error) {
	numbers := make([]int, pages)
	for i := range numbers {
		numbers[i] = i + 1
	}
	return batch.Run(ctx, numbers, runtime.NumCPU(), func(ctx context.Context, _ int, n int) (items.Page, error) {
		img, err := p.renderPage(ctx, pdfPath, n)
		if err != nil {
			return items.Page{}, fmt.Errorf("render page %d: %w", n, err)
		}
		return items.Page{Number: n, Image: img}, nil
	})
}

func (p *Pdftoppm) renderPage(ctx context.Context, pdfPath string, n int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "papercast-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// -singlefile writes <prefix>.png without a page suffix.
	prefix := filepath.Join(tmpDir, "page")
	page := strconv.Itoa(n)
	cmd := exec.CommandContext(ctx, p.Path,
		"-png",
		"-f", page,
		"-l", page,
		"-r", strconv.Itoa(p.DPI),
		"-singlefile",
		pdfPath,
		prefix,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, out)
	}
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

// Fitz renders pages in-process with MuPDF. The document handle is not safe
// for concurrent use, so pages are rendered sequentially.
type Fitz struct {
	DPI int
}

// Rasterize renders every page of pdfPath; pages is used only as a check.
func (f *Fitz) Rasterize(ctx context.Context, pdfPath string, pages int) ([]items.Page, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if pages > 0 && n != pages {
		return nil, fmt.Errorf("page count mismatch: mupdf sees %d, expected %d", n, pages)
	}
	out := make([]items.Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(f.DPI))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		out = append(out, items.Page{Number: i + 1, Image: buf.Bytes()})
	}
	return out, nil
}

// Package source acquires and validates input documents and renders their
// pages to images.
package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jackzampolin/papercast/internal/failure"
)

// Default input limits.
const (
	DefaultMaxBytes = 50 << 20
	DefaultMaxPages = 60
)

// Limits bounds what a run accepts.
type Limits struct {
	MaxBytes int64
	MaxPages int
}

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxPages <= 0 {
		l.MaxPages = DefaultMaxPages
	}
	return l
}

// Document is a validated input PDF.
type Document struct {
	Name  string
	Data  []byte
	Pages int
}

// Validate checks size, format and page count, in that order, so the
// cheapest check fails first. Errors carry the matching failure type.
func Validate(data []byte, name string, limits Limits) (*Document, error) {
	limits = limits.withDefaults()
	if int64(len(data)) > limits.MaxBytes {
		return nil, failure.New(failure.FileSizeExceeded, "%s is %d bytes, limit is %d", name, len(data), limits.MaxBytes)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, failure.New(failure.InvalidPDFFormat, "%s is not a PDF", name)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return nil, failure.Wrap(failure.InvalidPDFFormat, fmt.Errorf("%s: %w", name, err))
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidPDFFormat, fmt.Errorf("%s: page count: %w", name, err))
	}
	if pages == 0 {
		return nil, failure.New(failure.InvalidPDFFormat, "%s has no pages", name)
	}
	if pages > limits.MaxPages {
		return nil, failure.New(failure.FileNumberOfPagesExceeded, "%s has %d pages, limit is %d", name, pages, limits.MaxPages)
	}
	return &Document{Name: CleanName(name), Data: data, Pages: pages}, nil
}

// CleanName returns a filesystem-safe base name ending in .pdf.
func CleanName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, base)
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base += ".pdf"
	}
	return base
}

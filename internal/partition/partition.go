// Package partition turns a PDF into raw text elements tagged with their page.
// Elements seed the extraction stage as text context alongside page images.
package partition

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Partitioner names.
const (
	KindNone         = "none"
	KindLocal        = "local"
	KindUnstructured = "unstructured"
)

// Element types shared by both partitioners.
const (
	TypeTitle         = "Title"
	TypeNarrativeText = "NarrativeText"
	TypeListItem      = "ListItem"
	TypeTable         = "Table"
	TypeImage         = "Image"
	TypeCaption       = "FigureCaption"
	TypeHeader        = "Header"
	TypeFooter        = "Footer"
	TypePageNumber    = "PageNumber"
)

// Element is one raw unit of document text.
type Element struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
}

// Partitioner splits a document into raw elements.
type Partitioner interface {
	Partition(ctx context.Context, data []byte, name string) ([]Element, error)
}

// Config selects and configures a partitioner.
type Config struct {
	Kind   string
	URL    string
	APIKey string
}

// New returns the configured partitioner, or nil for KindNone.
func New(cfg Config) (Partitioner, error) {
	switch cfg.Kind {
	case "", KindNone:
		return nil, nil
	case KindLocal:
		return &Local{}, nil
	case KindUnstructured:
		if cfg.URL == "" {
			return nil, fmt.Errorf("unstructured partitioner requires a url")
		}
		return NewHTTP(cfg.URL, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown partitioner %q", cfg.Kind)
	}
}

// ByPage joins the text of each page's elements, one element per line.
// Headers, footers and page numbers are left out.
func ByPage(elements []Element) map[int]string {
	lines := make(map[int][]string)
	for _, e := range elements {
		switch e.Type {
		case TypeHeader, TypeFooter, TypePageNumber:
			continue
		}
		text := strings.TrimSpace(e.Text)
		if text == "" || e.PageNumber < 1 {
			continue
		}
		lines[e.PageNumber] = append(lines[e.PageNumber], text)
	}
	out := make(map[int]string, len(lines))
	for page, l := range lines {
		out[page] = strings.Join(l, "\n")
	}
	return out
}

// Pages returns the page numbers present in elements, ascending.
func Pages(elements []Element) []int {
	seen := make(map[int]bool)
	var pages []int
	for _, e := range elements {
		if e.PageNumber > 0 && !seen[e.PageNumber] {
			seen[e.PageNumber] = true
			pages = append(pages, e.PageNumber)
		}
	}
	sort.Ints(pages)
	return pages
}

package partition

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	rpdf "rsc.io/pdf"
)

// Local reads the PDF's text layer in-process. It has no layout model, so
// it only distinguishes lines that look like page numbers from paragraphs.
type Local struct{}

// Partition returns one NarrativeText element per paragraph of each page.
// Scanned documents without a text layer yield no elements.
func (l *Local) Partition(ctx context.Context, data []byte, name string) (elements []Element, err error) {
	// rsc.io/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			elements, err = nil, fmt.Errorf("read %s: %v", name, r)
		}
	}()

	r, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, para := range paragraphs(p.Content().Text) {
			typ := TypeNarrativeText
			if isPageNumber(para) {
				typ = TypePageNumber
			}
			elements = append(elements, Element{Type: typ, Text: para, PageNumber: i})
		}
	}
	return elements, nil
}

// paragraphs groups glyph runs into lines by baseline and lines into
// paragraphs wherever the vertical gap is larger than usual.
func paragraphs(text []rpdf.Text) []string {
	if len(text) == 0 {
		return nil
	}
	sort.SliceStable(text, func(a, b int) bool {
		if math.Abs(text[a].Y-text[b].Y) > 1 {
			return text[a].Y > text[b].Y
		}
		return text[a].X < text[b].X
	})

	type line struct {
		y, size float64
		b       strings.Builder
	}
	var lines []*line
	var cur *line
	var lastEnd float64
	for _, t := range text {
		if cur == nil || math.Abs(t.Y-cur.y) > 1 {
			cur = &line{y: t.Y, size: t.FontSize}
			lines = append(lines, cur)
		} else if t.X-lastEnd > t.FontSize*0.2 {
			cur.b.WriteByte(' ')
		}
		cur.b.WriteString(t.S)
		lastEnd = t.X + t.W
	}

	var out []string
	var para []string
	flush := func() {
		if s := strings.TrimSpace(strings.Join(para, " ")); s != "" {
			out = append(out, s)
		}
		para = nil
	}
	for i, ln := range lines {
		if i > 0 {
			gap := lines[i-1].y - ln.y
			if gap > 1.8*math.Max(ln.size, 1) {
				flush()
			}
		}
		para = append(para, strings.TrimSpace(ln.b.String()))
	}
	flush()
	return out
}

func isPageNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 4 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

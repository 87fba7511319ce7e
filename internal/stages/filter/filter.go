// Package filter applies the inclusion policy that decides which items are
// narrated.
package filter

import (
	"strings"

	"github.com/jackzampolin/papercast/internal/items"
)

// Stage is the stage name used in logs.
const Stage = "filter"

// Summarization methods.
const (
	MethodFull     = "full"
	MethodAbstract = "abstract"
)

// Spoken text of the end marker.
const (
	EndOfPaper         = "This is the end of the paper."
	EndOfPaperAppendix = "This is the end of the main paper. The appendices follow."
)

// ValidMethod reports whether m is a supported summarization method.
func ValidMethod(m string) bool {
	return m == MethodFull || m == MethodAbstract
}

// Options tunes the filter.
type Options struct {
	Method string
}

// Stats counts what the filter did.
type Stats struct {
	Dropped     int
	EndMarker   bool
	PreAbstract int
	DupHeadings int
}

// dropTypes are never narrated.
var dropTypes = map[items.Type]bool{
	items.TypePageNumber:           true,
	items.TypePageHeaderFooter:     true,
	items.TypeFootnote:             true,
	items.TypeEndnotesHeading:      true,
	items.TypeEndnotesItem:         true,
	items.TypeNonFigureImage:       true,
	items.TypeReferencesItem:       true,
	items.TypeReferencesHeading:    true,
	items.TypeAcknowledgementsHead: true,
	items.TypeAcknowledgementsText: true,
}

// Run applies the inclusion policy to doc in place.
func Run(doc *items.Doc, opts Options) Stats {
	var st Stats
	st.EndMarker = InsertEndMarker(doc)

	before := doc.Len()
	dropSections(doc)
	st.PreAbstract = dropBeforeAbstract(doc)
	st.DupHeadings = dropDuplicateHeadings(doc)
	doc.Filter(func(it *items.Item) bool {
		if it.Type == items.TypeEndMarker {
			return true
		}
		if it.Empty() || dropTypes[it.Type] {
			return false
		}
		if it.Text != nil && it.Text.Relevant != nil && !*it.Text.Relevant {
			return false
		}
		return true
	})
	if opts.Method == MethodAbstract {
		doc.Filter(func(it *items.Item) bool {
			switch it.Type {
			case items.TypeMainTitle, items.TypeAuthorInfo, items.TypeAbstractHeading, items.TypeAbstractContent:
				return true
			}
			return false
		})
	}
	st.Dropped = before - doc.Len()
	return st
}

// InsertEndMarker places one end marker right after the last references
// item. It reports whether a marker was inserted; documents without
// references get none. An existing marker is left alone.
func InsertEndMarker(doc *items.Doc) bool {
	last := -1
	for i := 0; i < doc.Len(); i++ {
		switch t := doc.At(i).Type; {
		case t == items.TypeEndMarker:
			return false
		case t.IsReferences():
			last = i
		}
	}
	if last < 0 {
		return false
	}

	text := EndOfPaper
	for i := last + 1; i < doc.Len(); i++ {
		if narratedAfterReferences(doc.At(i)) {
			text = EndOfPaperAppendix
			break
		}
	}
	doc.Insert(last+1, items.New(items.TypeEndMarker, text, doc.At(last).Page))
	return true
}

func narratedAfterReferences(it *items.Item) bool {
	if it.Empty() || dropTypes[it.Type] {
		return false
	}
	return true
}

// dropSections removes acknowledgements and references sections. A section
// opens on its heading and closes on the next heading of any kind or the end
// marker.
func dropSections(doc *items.Doc) {
	var inAcknowledgements, inReferences bool
	doc.Filter(func(it *items.Item) bool {
		switch {
		case it.Type == items.TypeAcknowledgementsHead:
			inAcknowledgements, inReferences = true, false
			return false
		case it.Type == items.TypeReferencesHeading:
			inAcknowledgements, inReferences = false, true
			return false
		case it.Type.IsHeading() || it.Type == items.TypeEndMarker:
			inAcknowledgements, inReferences = false, false
			return true
		}
		return !inAcknowledgements && !inReferences
	})
}

// dropBeforeAbstract removes everything ahead of the abstract except the
// title and author items. Documents without an abstract are untouched.
func dropBeforeAbstract(doc *items.Doc) int {
	start := -1
	for i := 0; i < doc.Len(); i++ {
		if t := doc.At(i).Type; t == items.TypeAbstractHeading || t == items.TypeAbstractContent {
			start = i
			break
		}
	}
	if start < 0 {
		return 0
	}
	i := 0
	return doc.Filter(func(it *items.Item) bool {
		pos := i
		i++
		if pos >= start {
			return true
		}
		return it.Type == items.TypeMainTitle || it.Type == items.TypeAuthorInfo
	})
}

// dropDuplicateHeadings removes section headings whose text repeats an
// earlier heading, which happens when running heads are extracted as
// headings.
func dropDuplicateHeadings(doc *items.Doc) int {
	seen := make(map[string]bool)
	return doc.Filter(func(it *items.Item) bool {
		if !it.Type.IsHeading() || it.Type == items.TypeMainTitle {
			return true
		}
		key := string(it.Type) + "|" + strings.Join(strings.Fields(strings.ToLower(it.Content)), " ")
		if seen[key] {
			return false
		}
		seen[key] = true
		return true
	})
}

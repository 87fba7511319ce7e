package items

import (
	"sort"
	"strings"
)

// Replacement records one attempted rewrite of an item's content.
// Rejected rewrites are kept for auditing with Accepted=false.
type Replacement struct {
	OriginalText    string `json:"original_text"`
	TransformedText string `json:"transformed_text"`
	Accepted        bool   `json:"accepted"`
}

// TextAttrs carries the flags and rewrite history of prose items.
type TextAttrs struct {
	HasCitations        bool `json:"has_citations,omitempty"`
	MathSymbolFrequency int  `json:"math_symbol_frequency,omitempty"` // 0-5
	HasHyphenatedWords  bool `json:"has_hyphenated_words,omitempty"`
	IsStartCutOff       bool `json:"is_start_cut_off,omitempty"`
	IsEndCutOff         bool `json:"is_end_cut_off,omitempty"`

	// Relevant is set by the relevance annotation. Nil means "not judged",
	// which the filter treats as relevant.
	Relevant *bool `json:"relevant,omitempty"`

	ReplacedCitations bool `json:"replaced_citations,omitempty"`
	OptimizedMath     bool `json:"optimized_math,omitempty"`

	CitationReplacement    *Replacement `json:"citation_replacement,omitempty"`
	MathReplacement        *Replacement `json:"math_replacement,omitempty"`
	HyphenationReplacement *Replacement `json:"hyphenation_replacement,omitempty"`
}

// SpecialAttrs carries the label and summarization state of figures, tables
// and code blocks.
type SpecialAttrs struct {
	Label        *Label `json:"label,omitempty"`
	RawContent   string `json:"raw_content,omitempty"`
	Summarized   bool   `json:"summarized,omitempty"`
	Repositioned bool   `json:"repositioned,omitempty"`
}

// Item is one semantic unit of the source document. The common header is
// always present; Text is non-nil only for prose types and Special only for
// figure/table/code types.
type Item struct {
	Type     Type   `json:"type"`
	Content  string `json:"content"`
	Page     int    `json:"page"`
	PageSpan []int  `json:"page_span,omitempty"`

	Text    *TextAttrs    `json:"text,omitempty"`
	Special *SpecialAttrs `json:"special,omitempty"`
}

// New creates an item carrying exactly the variant payload its type needs.
func New(t Type, content string, page int) *Item {
	it := &Item{Type: t, Content: content, Page: page, PageSpan: []int{page}}
	it.attach()
	return it
}

// Retype overwrites the item's type. Payloads the new type does not use are
// dropped; a payload it needs is created, seeded with the current content.
func (it *Item) Retype(t Type) {
	if it.Type == t {
		return
	}
	it.Type = t
	if !t.IsProse() {
		it.Text = nil
	}
	if !t.IsSpecial() {
		it.Special = nil
	}
	it.attach()
}

func (it *Item) attach() {
	if it.Type.IsProse() && it.Text == nil {
		it.Text = &TextAttrs{}
	}
	if it.Type.IsSpecial() && it.Special == nil {
		it.Special = &SpecialAttrs{RawContent: it.Content}
	}
}

// Label returns the special item's label, or nil.
func (it *Item) Label() *Label {
	if it.Special == nil {
		return nil
	}
	return it.Special.Label
}

// IsEndCutOff reports whether a prose item continues on the next page.
func (it *Item) IsEndCutOff() bool {
	return it.Text != nil && it.Text.IsEndCutOff
}

// IsStartCutOff reports whether a prose item continues from the previous page.
func (it *Item) IsStartCutOff() bool {
	return it.Text != nil && it.Text.IsStartCutOff
}

// Empty reports whether the item has no narratable content.
func (it *Item) Empty() bool {
	return strings.TrimSpace(it.Content) == ""
}

// MergeFrom appends other's content to it and unions the page spans.
func (it *Item) MergeFrom(other *Item) {
	a := strings.TrimSpace(it.Content)
	b := strings.TrimSpace(other.Content)
	switch {
	case a == "":
		it.Content = b
	case b != "":
		it.Content = a + " " + b
	}
	it.PageSpan = unionPages(it.PageSpan, other.PageSpan)
	if it.Special != nil && other.Special != nil && other.Special.RawContent != "" {
		it.Special.RawContent = strings.TrimSpace(it.Special.RawContent + "\n" + other.Special.RawContent)
	}
}

func unionPages(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	var out []int
	for _, p := range append(append([]int{}, a...), b...) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Clone returns a deep copy of the item.
func (it *Item) Clone() *Item {
	c := *it
	c.PageSpan = append([]int(nil), it.PageSpan...)
	if it.Text != nil {
		t := *it.Text
		if t.Relevant != nil {
			v := *t.Relevant
			t.Relevant = &v
		}
		t.CitationReplacement = cloneReplacement(t.CitationReplacement)
		t.MathReplacement = cloneReplacement(t.MathReplacement)
		t.HyphenationReplacement = cloneReplacement(t.HyphenationReplacement)
		c.Text = &t
	}
	if it.Special != nil {
		s := *it.Special
		if s.Label != nil {
			l := *s.Label
			s.Label = &l
		}
		c.Special = &s
	}
	return &c
}

func cloneReplacement(r *Replacement) *Replacement {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Package items defines the semantic units a paper is linearized into and the
// ordered arena the pipeline stages mutate.
package items

// Type is the closed vocabulary of item types.
type Type string

const (
	TypeMainTitle            Type = "main_title"
	TypeAuthorInfo           Type = "author_info"
	TypeAbstractHeading      Type = "abstract_heading"
	TypeAbstractContent      Type = "abstract_content"
	TypeHeading              Type = "heading"
	TypeText                 Type = "text"
	TypeMath                 Type = "math"
	TypeImage                Type = "image"
	TypeFigureImage          Type = "figure_image"
	TypeNonFigureImage       Type = "non_figure_image"
	TypeTable                Type = "table"
	TypeTableRows            Type = "table_rows"
	TypeCode                 Type = "code"
	TypeCodeOrAlgorithm      Type = "code_or_algorithm"
	TypeCaption              Type = "caption"
	TypeFootnote             Type = "footnote"
	TypePageHeaderFooter     Type = "page_header_footer"
	TypePageNumber           Type = "page_number"
	TypeAcknowledgementsHead Type = "acknowledgements_heading"
	TypeAcknowledgementsText Type = "acknowledgements_content"
	TypeReferencesHeading    Type = "references_heading"
	TypeReferencesItem       Type = "references_item"
	TypeEndnotesHeading      Type = "endnotes_heading"
	TypeEndnotesItem         Type = "endnotes_item"
	TypeAppendixHeading      Type = "appendix_heading"
	TypeOther                Type = "other"
	TypeEndMarker            Type = "end_marker"
)

// ExtractionTypes is the coarse vocabulary the page extractor may emit.
var ExtractionTypes = []Type{
	TypeMainTitle, TypeAuthorInfo, TypeAbstractHeading, TypeAbstractContent,
	TypeHeading, TypeText, TypeMath, TypeImage, TypeTable, TypeCode,
	TypeCaption, TypeFootnote, TypePageHeaderFooter, TypePageNumber,
	TypeAcknowledgementsHead, TypeReferencesHeading, TypeReferencesItem,
	TypeOther,
}

// ClassificationTypes is the refined vocabulary used when retyping items.
var ClassificationTypes = []Type{
	TypeMainTitle, TypeAuthorInfo, TypeAbstractHeading, TypeAbstractContent,
	TypeHeading, TypeText, TypeMath, TypeFigureImage, TypeNonFigureImage,
	TypeTableRows, TypeCodeOrAlgorithm, TypeCaption, TypeFootnote,
	TypePageHeaderFooter, TypePageNumber, TypeAcknowledgementsHead,
	TypeAcknowledgementsText, TypeReferencesHeading, TypeReferencesItem,
	TypeEndnotesHeading, TypeEndnotesItem, TypeAppendixHeading, TypeOther,
}

var allTypes = map[Type]struct{}{}

func init() {
	for _, t := range ExtractionTypes {
		allTypes[t] = struct{}{}
	}
	for _, t := range ClassificationTypes {
		allTypes[t] = struct{}{}
	}
	allTypes[TypeEndMarker] = struct{}{}
}

// Valid reports whether t belongs to the vocabulary.
func (t Type) Valid() bool {
	_, ok := allTypes[t]
	return ok
}

// IsHeading reports whether t starts a new section of any kind.
func (t Type) IsHeading() bool {
	switch t {
	case TypeMainTitle, TypeHeading, TypeAbstractHeading, TypeAcknowledgementsHead,
		TypeReferencesHeading, TypeEndnotesHeading, TypeAppendixHeading:
		return true
	}
	return false
}

// IsSpecial reports whether t is out-of-flow content that gets summarized
// and repositioned.
func (t Type) IsSpecial() bool {
	switch t {
	case TypeFigureImage, TypeTableRows, TypeCodeOrAlgorithm:
		return true
	}
	return false
}

// IsProse reports whether t is running text that normalization passes and
// mention searches operate on.
func (t Type) IsProse() bool {
	switch t {
	case TypeText, TypeAbstractContent, TypeMath, TypeCaption, TypeAcknowledgementsText,
		TypeFootnote, TypeEndnotesItem, TypeOther:
		return true
	}
	return false
}

// IsReferences reports whether t belongs to a bibliography block.
func (t Type) IsReferences() bool {
	return t == TypeReferencesHeading || t == TypeReferencesItem
}

// IsTOC reports whether segments of type t are navigation targets.
func (t Type) IsTOC() bool {
	switch t {
	case TypeMainTitle, TypeHeading, TypeAbstractHeading, TypeAppendixHeading, TypeEndMarker:
		return true
	}
	return false
}

// Strings converts a type list for use in JSON schema enums.
func Strings(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

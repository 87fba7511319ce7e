// Package reposition moves labeled figures, tables and code blocks next to
// the first passage that mentions them.
package reposition

import (
	"log/slog"

	"github.com/jackzampolin/papercast/internal/items"
)

// Stage is the stage name used in logs.
const Stage = "reposition"

// Stats counts what the repositioner did.
type Stats struct {
	Moved   int
	Unmoved int
	Skipped int
}

// Run repositions every labeled special item that has not been repositioned
// yet. Running it again is a no-op.
func Run(doc *items.Doc, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("stage", Stage)

	var st Stats
	for _, it := range doc.Items() {
		if !it.Type.IsSpecial() || it.Special.Repositioned {
			continue
		}
		if !it.Label().IsLabeled() {
			st.Skipped++
			continue
		}
		moved, err := Item(doc, it)
		if err != nil {
			return st, err
		}
		if moved {
			st.Moved++
		} else {
			st.Unmoved++
		}
		log.Debug("item repositioned", "label", it.Label().String(), "moved", moved, "index", doc.IndexOf(it))
	}
	log.Info("repositioning complete", "moved", st.Moved, "unmoved", st.Unmoved, "unlabeled", st.Skipped)
	return st, nil
}

// Item repositions one special item and marks it. It reports whether the
// item moved.
func Item(doc *items.Doc, it *items.Item) (bool, error) {
	from := doc.IndexOf(it)
	if from < 0 || it.Special == nil || it.Special.Repositioned {
		return false, nil
	}
	it.Special.Repositioned = true

	mention := FindMention(doc, it)
	if mention < 0 {
		return false, nil
	}
	to := FindAnchor(doc, it, mention)
	to = skipSameType(doc, it, to)
	if to == from || to == from+1 {
		return false, nil
	}
	if err := doc.Move(from, to); err != nil {
		return false, err
	}
	return true, nil
}

// FindMention returns the index of the first prose item that mentions the
// item's label, or -1.
func FindMention(doc *items.Doc, it *items.Item) int {
	l := it.Label()
	if !l.IsLabeled() {
		return -1
	}
	for i := 0; i < doc.Len(); i++ {
		c := doc.At(i)
		if c == it || !mentionSource(c.Type) {
			continue
		}
		if l.Mentions(c.Content) {
			return i
		}
	}
	return -1
}

// mentionSource reports whether items of type t are searched for mentions.
// Captions name their own figure and are not searched.
func mentionSource(t items.Type) bool {
	return t.IsProse() && t != items.TypeCaption
}

// FindAnchor returns the insertion index for an item mentioned at index
// mention. Scanning from the mention, the first heading anchors before
// itself and the first text item that is not cut off at its end anchors
// after itself. Without either the item goes to the end.
func FindAnchor(doc *items.Doc, it *items.Item, mention int) int {
	for i := mention; i < doc.Len(); i++ {
		c := doc.At(i)
		if c == it {
			continue
		}
		if i > mention && c.Type.IsHeading() {
			return i
		}
		if c.Type.IsProse() && !c.IsEndCutOff() {
			return i + 1
		}
	}
	return doc.Len()
}

// skipSameType advances to past special items of the same type that already
// sit at the anchor, so two figures are never interleaved.
func skipSameType(doc *items.Doc, it *items.Item, to int) int {
	for to < doc.Len() {
		c := doc.At(to)
		if c == it || c.Type != it.Type {
			break
		}
		to++
	}
	return to
}

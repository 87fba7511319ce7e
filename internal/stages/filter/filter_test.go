package filter

import (
	"testing"

	"github.com/jackzampolin/papercast/internal/items"
)

func doc(list ...*items.Item) *items.Doc {
	return items.NewDoc(list)
}

func types(d *items.Doc) []items.Type {
	out := make([]items.Type, d.Len())
	for i := range out {
		out[i] = d.At(i).Type
	}
	return out
}

func equalTypes(t *testing.T, got, want []items.Type) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("types = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("types = %v, want %v", got, want)
		}
	}
}

func TestInsertEndMarker(t *testing.T) {
	t.Run("after last references item", func(t *testing.T) {
		d := doc(
			items.New(items.TypeText, "Body.", 1),
			items.New(items.TypeReferencesHeading, "References", 9),
			items.New(items.TypeReferencesItem, "[1] A.", 9),
			items.New(items.TypeReferencesItem, "[2] B.", 10),
			items.New(items.TypePageNumber, "10", 10),
		)
		if !InsertEndMarker(d) {
			t.Fatal("InsertEndMarker() = false, want true")
		}
		if d.At(4).Type != items.TypeEndMarker {
			t.Fatalf("types = %v, want end_marker at 4", types(d))
		}
		if d.At(4).Content != EndOfPaper {
			t.Errorf("marker content = %q, want %q", d.At(4).Content, EndOfPaper)
		}
		if InsertEndMarker(d) {
			t.Error("second InsertEndMarker() = true, want a single marker")
		}
	})

	t.Run("appendix follows", func(t *testing.T) {
		d := doc(
			items.New(items.TypeReferencesItem, "[1] A.", 9),
			items.New(items.TypeAppendixHeading, "Appendix A", 10),
			items.New(items.TypeText, "Proofs.", 10),
		)
		InsertEndMarker(d)
		if d.At(1).Type != items.TypeEndMarker || d.At(1).Content != EndOfPaperAppendix {
			t.Errorf("marker = %+v, want appendix wording", d.At(1))
		}
	})

	t.Run("no references", func(t *testing.T) {
		d := doc(items.New(items.TypeText, "Body.", 1))
		if InsertEndMarker(d) {
			t.Error("InsertEndMarker() = true without references")
		}
		if d.Len() != 1 {
			t.Errorf("Len() = %d, want 1", d.Len())
		}
	})
}

func TestRun_DropsSectionsAndNoise(t *testing.T) {
	irrelevant := items.New(items.TypeText, "Copyright notice.", 1)
	f := false
	irrelevant.Text.Relevant = &f

	d := doc(
		items.New(items.TypePageHeaderFooter, "Journal of Things", 1),
		items.New(items.TypeMainTitle, "Title", 1),
		items.New(items.TypeAuthorInfo, "By A.", 1),
		items.New(items.TypeText, "Preprint banner.", 1),
		items.New(items.TypeAbstractHeading, "Abstract", 1),
		items.New(items.TypeAbstractContent, "We study.", 1),
		irrelevant,
		items.New(items.TypeHeading, "1 Introduction", 1),
		items.New(items.TypeText, "Intro.", 1),
		items.New(items.TypeFootnote, "1 Note.", 1),
		items.New(items.TypePageNumber, "1", 1),
		items.New(items.TypeHeading, "1 Introduction", 2),
		items.New(items.TypeText, "   ", 2),
		items.New(items.TypeAcknowledgementsHead, "Acknowledgements", 8),
		items.New(items.TypeText, "We thank.", 8),
		items.New(items.TypeReferencesHeading, "References", 8),
		items.New(items.TypeReferencesItem, "[1] A.", 8),
		items.New(items.TypeAppendixHeading, "Appendix", 10),
		items.New(items.TypeText, "Extra.", 10),
	)

	st := Run(d, Options{Method: MethodFull})

	equalTypes(t, types(d), []items.Type{
		items.TypeMainTitle,
		items.TypeAuthorInfo,
		items.TypeAbstractHeading,
		items.TypeAbstractContent,
		items.TypeHeading,
		items.TypeText,
		items.TypeEndMarker,
		items.TypeAppendixHeading,
		items.TypeText,
	})
	if !st.EndMarker || st.PreAbstract != 2 || st.DupHeadings != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if d.At(6).Content != EndOfPaperAppendix {
		t.Errorf("marker content = %q", d.At(6).Content)
	}
}

func TestRun_AbstractMethod(t *testing.T) {
	d := doc(
		items.New(items.TypeMainTitle, "Title", 1),
		items.New(items.TypeAuthorInfo, "By A.", 1),
		items.New(items.TypeAbstractHeading, "Abstract", 1),
		items.New(items.TypeAbstractContent, "We study.", 1),
		items.New(items.TypeHeading, "Intro", 1),
		items.New(items.TypeText, "Body.", 1),
	)
	Run(d, Options{Method: MethodAbstract})
	equalTypes(t, types(d), []items.Type{
		items.TypeMainTitle,
		items.TypeAuthorInfo,
		items.TypeAbstractHeading,
		items.TypeAbstractContent,
	})
}

func TestRun_NoAbstractKeepsLeadingItems(t *testing.T) {
	d := doc(
		items.New(items.TypeMainTitle, "Title", 1),
		items.New(items.TypeText, "Opening paragraph.", 1),
	)
	Run(d, Options{})
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestValidMethod(t *testing.T) {
	for _, m := range []string{MethodFull, MethodAbstract} {
		if !ValidMethod(m) {
			t.Errorf("ValidMethod(%q) = false", m)
		}
	}
	if ValidMethod("tldr") {
		t.Error("ValidMethod(tldr) = true")
	}
}

package authors

import (
	"context"
	"errors"
	"testing"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/testutil"
)

func TestLine(t *testing.T) {
	tests := []struct {
		name    string
		authors []Author
		want    string
	}{
		{"none", nil, ""},
		{
			"single",
			[]Author{{Name: "Ada Lovelace", Affiliation: "University of London"}},
			"By Ada Lovelace from University of London.",
		},
		{
			"grouped",
			[]Author{
				{Name: "A", Affiliation: "MIT"},
				{Name: "B", Affiliation: "Stanford"},
				{Name: "C", Affiliation: "mit"},
			},
			"By A and C from MIT; and B from Stanford.",
		},
		{
			"no affiliation",
			[]Author{{Name: "A"}, {Name: "B"}, {Name: "C"}},
			"By A, B, and C.",
		},
		{
			"over cap",
			[]Author{
				{Name: "A", Affiliation: "MIT"}, {Name: "B", Affiliation: "MIT"},
				{Name: "C", Affiliation: "CMU"}, {Name: "D", Affiliation: "CMU"},
				{Name: "E", Affiliation: "CMU"}, {Name: "F", Affiliation: "ETH"},
			},
			"This paper has 6 authors, including A and B from MIT.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.authors, DefaultCap); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_ReplacesAuthorItems(t *testing.T) {
	list := []*items.Item{
		items.New(items.TypeMainTitle, "Deep Nets", 1),
		items.New(items.TypeAuthorInfo, "A. Smith1, B. Jones2", 1),
		items.New(items.TypeAuthorInfo, "1 MIT 2 CMU", 1),
		items.New(items.TypeMainTitle, "Deep Nets", 2),
		items.New(items.TypeText, "Body.", 2),
	}
	pages := make([]items.Page, 8)
	for i := range pages {
		pages[i] = items.Page{Number: i + 1, Image: []byte{byte(i)}}
	}

	var images int
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		images = len(testutil.UserImages(req))
		return `{"title":"Deep Nets for Everyone","authors":[{"author_name":"Alice Smith","affiliation":"MIT"},{"author_name":"Bob Jones","affiliation":"CMU"}]}`, nil
	}, RegisterPrompts)

	res, out, err := Run(context.Background(), env.Env, pages, list, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if images != DefaultPages {
		t.Errorf("sent %d images, want %d", images, DefaultPages)
	}
	if res.Title != "Deep Nets for Everyone" {
		t.Errorf("Title = %q", res.Title)
	}
	if len(out) != 3 {
		t.Fatalf("Run() returned %d items, want 3", len(out))
	}
	if out[0].Content != "Deep Nets for Everyone" {
		t.Errorf("title content = %q", out[0].Content)
	}
	if out[1].Content != "By Alice Smith from MIT; and Bob Jones from CMU." {
		t.Errorf("author content = %q", out[1].Content)
	}
}

func TestApply_InsertsMissingItems(t *testing.T) {
	list := []*items.Item{items.New(items.TypeText, "Body.", 1)}
	out := Apply(list, &Result{Title: "T", Line: "By A."})
	if len(out) != 3 {
		t.Fatalf("Apply() returned %d items, want 3", len(out))
	}
	if out[0].Type != items.TypeMainTitle || out[1].Type != items.TypeAuthorInfo || out[2].Type != items.TypeText {
		t.Errorf("Apply() types = %s, %s, %s", out[0].Type, out[1].Type, out[2].Type)
	}
}

func TestRun_Failure(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return "", errors.New("down")
	}, RegisterPrompts)
	if _, _, err := Run(context.Background(), env.Env, nil, nil, Options{}); err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
}

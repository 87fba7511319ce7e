package summarize

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/testutil"
)

func TestRun_SummarizesAndLabels(t *testing.T) {
	fig := items.New(items.TypeFigureImage, "line chart", 2)
	tbl := items.New(items.TypeTableRows, "a | b\n1 | 2", 3)
	code := items.New(items.TypeCodeOrAlgorithm, "for x in y", 3)
	list := []*items.Item{
		items.New(items.TypeText, "body", 2),
		fig,
		items.New(items.TypeCaption, "Fig. 2(b): Accuracy over time.", 2),
		tbl,
		code,
	}
	pages := []items.Page{{Number: 2, Image: []byte("p2")}, {Number: 3, Image: []byte("p3")}}

	var systems []string
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		sys := testutil.SystemText(req)
		user := testutil.UserText(req)
		systems = append(systems, sys)
		switch {
		case strings.Contains(user, "line chart"):
			if !strings.Contains(user, "Fig. 2(b)") {
				return "", errors.New("caption context missing")
			}
			return `{"label_type":"Fig.","label_number":"2","panel_number":"(b)","summary":"A line chart. It shows accuracy rising. This supports the claim."}`, nil
		case strings.Contains(user, "a | b"):
			return `{"label_type":"Tab.","label_number":"1.","panel_number":"","summary":"The table compares a and b."}`, nil
		default:
			return `{"label_type":"","label_number":"","panel_number":"","summary":"The code loops over y."}`, nil
		}
	}, RegisterPrompts)
	env.BatchSize = 1

	out, err := Run(context.Background(), env.Env, pages, list)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != len(list) {
		t.Fatalf("Run() returned %d items, want %d", len(out), len(list))
	}

	if got := fig.Label().String(); got != "Figure 2b" {
		t.Errorf("figure label = %q, want Figure 2b", got)
	}
	if fig.Content != "A line chart. It shows accuracy rising. This supports the claim." {
		t.Errorf("figure content = %q", fig.Content)
	}
	if fig.Special.RawContent != "line chart" || !fig.Special.Summarized {
		t.Errorf("figure special = %+v", fig.Special)
	}
	if got := tbl.Label().Key(); got != "table 1" {
		t.Errorf("table label key = %q, want table 1", got)
	}
	if code.Label().LabelType != items.LabelAlgorithm || code.Label().IsLabeled() {
		t.Errorf("code label = %+v, want unlabeled Algorithm", code.Label())
	}

	wantPrompts := []string{"describe a figure", "summarize a table", "explain a code listing"}
	for i, want := range wantPrompts {
		if !strings.Contains(systems[i], want) {
			t.Errorf("call %d system prompt does not contain %q", i, want)
		}
	}
}

func TestRun_SkipsSummarized(t *testing.T) {
	fig := items.New(items.TypeFigureImage, "done already", 1)
	fig.Special.Summarized = true
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return "", errors.New("should not be called")
	}, RegisterPrompts)

	if _, err := Run(context.Background(), env.Env, nil, []*items.Item{fig}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if env.Mock.RequestCount() != 0 {
		t.Errorf("RequestCount() = %d, want 0", env.Mock.RequestCount())
	}
}

func TestRun_FailureIsFatal(t *testing.T) {
	tbl := items.New(items.TypeTableRows, "x", 4)
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return "", errors.New("down")
	}, RegisterPrompts)

	_, err := Run(context.Background(), env.Env, nil, []*items.Item{tbl})
	if err == nil || !strings.Contains(err.Error(), "page 4") {
		t.Fatalf("Run() error = %v, want failure naming page 4", err)
	}
}

func TestDedupe_UnionsPageSpans(t *testing.T) {
	a := items.New(items.TypeTableRows, "Results part one.", 5)
	a.Special.Label = &items.Label{LabelType: "Table", LabelNumber: "2"}
	b := items.New(items.TypeTableRows, "Results part two.", 6)
	b.Special.Label = &items.Label{LabelType: "TABLE", LabelNumber: "2"}
	fig := items.New(items.TypeFigureImage, "Same number, other type.", 6)
	fig.Special.Label = &items.Label{LabelType: "Figure", LabelNumber: "2"}
	u1 := items.New(items.TypeFigureImage, "logo-like", 1)
	u1.Special.Label = &items.Label{LabelType: "Figure", LabelNumber: items.Unlabeled}
	u2 := items.New(items.TypeFigureImage, "another", 2)
	u2.Special.Label = &items.Label{LabelType: "Figure", LabelNumber: items.Unlabeled}

	out := Dedupe([]*items.Item{a, u1, b, fig, u2})
	if len(out) != 4 {
		t.Fatalf("Dedupe() returned %d items, want 4", len(out))
	}
	if out[0] != a {
		t.Fatal("Dedupe() did not keep the first occurrence")
	}
	if !reflect.DeepEqual(a.PageSpan, []int{5, 6}) {
		t.Errorf("PageSpan = %v, want [5 6]", a.PageSpan)
	}
	if a.Content != "Results part one. Results part two." {
		t.Errorf("Content = %q", a.Content)
	}
}

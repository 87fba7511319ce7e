package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/providers"
	"github.com/jackzampolin/papercast/internal/testutil"
)

type pageItem struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func pages(n int) []items.Page {
	out := make([]items.Page, n)
	for i := range out {
		out[i] = items.Page{Number: i + 1, Image: []byte(fmt.Sprintf("page-%d", i+1))}
	}
	return out
}

func TestRun_PreservesPageOrder(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		img := string(testutil.UserImages(req)[0])
		return testutil.JSON(t, map[string]any{"items": []pageItem{
			{Type: "text", Content: img + " first"},
			{Type: "text", Content: img + " second"},
		}}), nil
	}, RegisterPrompts)

	list, err := Run(context.Background(), env.Env, pages(9))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(list) != 18 {
		t.Fatalf("Run() returned %d items, want 18", len(list))
	}
	for i, it := range list {
		page := i/2 + 1
		want := fmt.Sprintf("page-%d first", page)
		if i%2 == 1 {
			want = fmt.Sprintf("page-%d second", page)
		}
		if it.Content != want {
			t.Errorf("item %d content = %q, want %q", i, it.Content, want)
		}
		if it.Page != page {
			t.Errorf("item %d page = %d, want %d", i, it.Page, page)
		}
	}
}

func TestRun_MergesAdjacentMath(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return testutil.JSON(t, map[string]any{"items": []pageItem{
			{Type: "text", Content: "We define"},
			{Type: "math", Content: "a = b"},
			{Type: "math", Content: "c = d"},
			{Type: "text", Content: "where a is"},
			{Type: "math", Content: "e = f"},
		}}), nil
	}, RegisterPrompts)

	list, err := Run(context.Background(), env.Env, pages(1))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("Run() returned %d items, want 4", len(list))
	}
	merged := list[1]
	if merged.Content != "a = b c = d" {
		t.Errorf("merged content = %q", merged.Content)
	}
	if merged.Text.MathSymbolFrequency != MergedMathFrequency {
		t.Errorf("merged frequency = %d, want %d", merged.Text.MathSymbolFrequency, MergedMathFrequency)
	}
	if list[3].Text.MathSymbolFrequency != 0 {
		t.Errorf("lone math frequency = %d, want 0", list[3].Text.MathSymbolFrequency)
	}
}

func TestRun_SendsRawTextAndImage(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		if !strings.Contains(testutil.UserText(req), "recovered words") {
			return "", errors.New("raw text missing from prompt")
		}
		if len(testutil.UserImages(req)) != 1 {
			return "", errors.New("page image missing")
		}
		return `{"items":[]}`, nil
	}, RegisterPrompts)

	p := items.Page{Number: 3, Image: []byte("img"), RawText: "recovered words"}
	if _, err := Page(context.Background(), env.Env, p); err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	calls := env.Recorder.Calls()
	if len(calls) != 1 || calls[0].Stage != Stage || calls[0].Page != 3 {
		t.Fatalf("recorded calls = %+v", calls)
	}
}

func TestRun_PageFailureIsFatal(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		if string(testutil.UserImages(req)[0]) == "page-2" {
			return "", errors.New("backend down")
		}
		return `{"items":[{"type":"text","content":"ok"}]}`, nil
	}, RegisterPrompts)

	_, err := Run(context.Background(), env.Env, pages(3))
	if err == nil {
		t.Fatal("Run() error = nil, want page failure")
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("Run() error = %v, want it to name page 2", err)
	}
}

func TestPage_AttachesProsePayload(t *testing.T) {
	env := testutil.NewStageEnv(t, func(req *providers.ChatRequest) (string, error) {
		return `{"items":[{"type":"text","content":"a"}]}`, nil
	}, RegisterPrompts)
	list, err := Page(context.Background(), env.Env, items.Page{Number: 1})
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}
	if list[0].Type != items.TypeText || list[0].Text == nil {
		t.Fatalf("item = %+v, want text with attrs", list[0])
	}
}

// Package extract turns page images into the initial ordered item list.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "extract"

// MergedMathFrequency is the math symbol frequency given to merged display
// equations.
const MergedMathFrequency = 5

// DefaultMaxTokens bounds the reply for one page.
const DefaultMaxTokens = 8192

type reply struct {
	Items []struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	} `json:"items"`
}

// Run extracts every page and returns the items in page order. Any page
// failing after retries fails the whole run.
func Run(ctx context.Context, env *stages.Env, pages []items.Page) ([]*items.Item, error) {
	log := env.Log(Stage)
	perPage, err := batch.Run(ctx, pages, env.Batch(), func(ctx context.Context, _ int, p items.Page) ([]*items.Item, error) {
		list, err := Page(ctx, env, p)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", p.Number, err)
		}
		log.Debug("page extracted", "page", p.Number, "items", len(list))
		return list, nil
	})
	if err != nil {
		return nil, err
	}

	var out []*items.Item
	for _, list := range perPage {
		out = append(out, list...)
	}
	out = MergeMath(out)
	log.Info("extraction complete", "pages", len(pages), "items", len(out))
	return out, nil
}

// Page extracts the items of a single page.
func Page(ctx context.Context, env *stages.Env, p items.Page) ([]*items.Item, error) {
	var r reply
	err := env.Complete(ctx, stages.Call{
		Stage:     Stage,
		SystemKey: SystemPromptKey,
		UserKey:   UserPromptKey,
		Data: struct {
			Page    int
			RawText string
		}{p.Number, strings.TrimSpace(p.RawText)},
		Schema:    Schema,
		Images:    [][]byte{p.Image},
		Page:      p.Number,
		MaxTokens: DefaultMaxTokens,
	}, &r)
	if err != nil {
		return nil, err
	}

	list := make([]*items.Item, 0, len(r.Items))
	for _, ri := range r.Items {
		t := items.Type(ri.Type)
		if !t.Valid() {
			t = items.TypeOther
		}
		list = append(list, items.New(t, ri.Content, p.Number))
	}
	return list, nil
}

// MergeMath collapses runs of adjacent math items into one item.
func MergeMath(list []*items.Item) []*items.Item {
	out := list[:0]
	for _, it := range list {
		if n := len(out); n > 0 && it.Type == items.TypeMath && out[n-1].Type == items.TypeMath {
			prev := out[n-1]
			prev.MergeFrom(it)
			prev.Text.MathSymbolFrequency = MergedMathFrequency
			continue
		}
		out = append(out, it)
	}
	return out
}

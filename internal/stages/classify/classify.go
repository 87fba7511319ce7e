// Package classify retypes extracted items with the refined vocabulary,
// looking at each page image again.
package classify

import (
	"context"
	"fmt"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "classify"

// Content longer than this is truncated in the prompt.
const maxPromptContent = 600

// coarseDefaults retypes extraction-only types the model left unclassified.
var coarseDefaults = map[items.Type]items.Type{
	items.TypeImage: items.TypeFigureImage,
	items.TypeTable: items.TypeTableRows,
	items.TypeCode:  items.TypeCodeOrAlgorithm,
}

var refined = func() map[items.Type]bool {
	m := make(map[items.Type]bool, len(items.ClassificationTypes))
	for _, t := range items.ClassificationTypes {
		m[t] = true
	}
	return m
}()

type reply struct {
	Items []struct {
		Index int    `json:"index"`
		Type  string `json:"type"`
	} `json:"items"`
}

type promptItem struct {
	Index   int
	Type    items.Type
	Content string
}

// group is the slice of items that came from one page.
type group struct {
	page  items.Page
	items []*items.Item
}

// Run retypes every item in place. Each page is one call; earlier types are
// overwritten by the model's answer.
func Run(ctx context.Context, env *stages.Env, pages []items.Page, list []*items.Item) error {
	log := env.Log(Stage)
	groups := groupByPage(pages, list)

	changed, err := batch.Run(ctx, groups, env.Batch(), func(ctx context.Context, _ int, g group) (int, error) {
		n, err := classifyGroup(ctx, env, g)
		if err != nil {
			return 0, fmt.Errorf("page %d: %w", g.page.Number, err)
		}
		return n, nil
	})
	if err != nil {
		return err
	}

	total := 0
	for _, n := range changed {
		total += n
	}
	log.Info("classification complete", "pages", len(groups), "items", len(list), "retyped", total)
	return nil
}

func classifyGroup(ctx context.Context, env *stages.Env, g group) (int, error) {
	prompt := make([]promptItem, len(g.items))
	for i, it := range g.items {
		prompt[i] = promptItem{Index: i, Type: it.Type, Content: truncate(it.Content, maxPromptContent)}
	}

	var r reply
	err := env.Complete(ctx, stages.Call{
		Stage:     Stage,
		SystemKey: SystemPromptKey,
		UserKey:   UserPromptKey,
		Data: struct {
			Page  int
			Items []promptItem
		}{g.page.Number, prompt},
		Schema: Schema,
		Images: images(g.page),
		Page:   g.page.Number,
	}, &r)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, ri := range r.Items {
		if ri.Index < 0 || ri.Index >= len(g.items) {
			continue
		}
		t := items.Type(ri.Type)
		if !refined[t] {
			continue
		}
		it := g.items[ri.Index]
		if it.Type != t {
			it.Retype(t)
			changed++
		}
	}
	for _, it := range g.items {
		if t, ok := coarseDefaults[it.Type]; ok {
			it.Retype(t)
			changed++
		}
	}
	return changed, nil
}

// groupByPage splits list into per-page runs in document order. Pages
// without items are skipped.
func groupByPage(pages []items.Page, list []*items.Item) []group {
	byNumber := make(map[int]items.Page, len(pages))
	for _, p := range pages {
		byNumber[p.Number] = p
	}
	var out []group
	for _, it := range list {
		if n := len(out); n > 0 && out[n-1].page.Number == it.Page {
			out[n-1].items = append(out[n-1].items, it)
			continue
		}
		p, ok := byNumber[it.Page]
		if !ok {
			p = items.Page{Number: it.Page}
		}
		out = append(out, group{page: p, items: []*items.Item{it}})
	}
	return out
}

func images(p items.Page) [][]byte {
	if len(p.Image) == 0 {
		return nil
	}
	return [][]byte{p.Image}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Package summarize replaces the raw content of figures, tables and code
// blocks with a spoken summary and extracts their labels.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "summarize"

type reply struct {
	LabelType   string `json:"label_type"`
	LabelNumber string `json:"label_number"`
	PanelNumber string `json:"panel_number"`
	Summary     string `json:"summary"`
}

type task struct {
	item     *items.Item
	image    []byte
	captions []string
}

// Run summarizes every special item in place and returns the list with
// duplicate labels merged.
func Run(ctx context.Context, env *stages.Env, pages []items.Page, list []*items.Item) ([]*items.Item, error) {
	log := env.Log(Stage)

	images := make(map[int][]byte, len(pages))
	for _, p := range pages {
		images[p.Number] = p.Image
	}
	captions := make(map[int][]string)
	for _, it := range list {
		if it.Type == items.TypeCaption && !it.Empty() {
			captions[it.Page] = append(captions[it.Page], strings.TrimSpace(it.Content))
		}
	}

	var tasks []task
	for _, it := range list {
		if it.Type.IsSpecial() && !it.Special.Summarized {
			tasks = append(tasks, task{item: it, image: images[it.Page], captions: captions[it.Page]})
		}
	}

	err := batch.Each(ctx, tasks, env.Batch(), func(ctx context.Context, _ int, tk task) error {
		if err := summarizeItem(ctx, env, tk); err != nil {
			return fmt.Errorf("%s on page %d: %w", tk.item.Type, tk.item.Page, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := Dedupe(list)
	log.Info("summarization complete", "summarized", len(tasks), "merged", len(list)-len(out))
	return out, nil
}

func summarizeItem(ctx context.Context, env *stages.Env, tk task) error {
	it := tk.item
	raw := it.Special.RawContent
	if raw == "" {
		raw = it.Content
	}
	var imgs [][]byte
	if len(tk.image) > 0 {
		imgs = [][]byte{tk.image}
	}

	var r reply
	err := env.Complete(ctx, stages.Call{
		Stage:     Stage,
		SystemKey: systemKey(it.Type),
		UserKey:   UserPromptKey,
		Data: struct {
			Type     items.Type
			Page     int
			Captions []string
			Content  string
		}{it.Type, it.Page, tk.captions, raw},
		Schema:    Schema,
		Images:    imgs,
		Page:      it.Page,
		MaxTokens: 2048,
	}, &r)
	if err != nil {
		return err
	}

	label := &items.Label{LabelType: r.LabelType, LabelNumber: r.LabelNumber, PanelNumber: r.PanelNumber}
	if strings.TrimSpace(label.LabelType) == "" {
		label.LabelType = items.DefaultLabelType(it.Type)
	}
	label.Normalize()

	it.Special.RawContent = raw
	it.Special.Label = label
	it.Special.Summarized = true
	it.Content = strings.TrimSpace(r.Summary)
	return nil
}

// Dedupe merges labeled special items of the same type and label into the
// first occurrence. Unlabeled items are never merged.
func Dedupe(list []*items.Item) []*items.Item {
	first := make(map[string]*items.Item)
	out := make([]*items.Item, 0, len(list))
	for _, it := range list {
		label := it.Label()
		if !it.Type.IsSpecial() || !label.IsLabeled() {
			out = append(out, it)
			continue
		}
		key := string(it.Type) + "|" + label.Key()
		if kept, ok := first[key]; ok {
			kept.MergeFrom(it)
			continue
		}
		first[key] = it
		out = append(out, it)
	}
	return out
}

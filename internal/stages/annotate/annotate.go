// Package annotate computes the advisory flags later passes select on:
// citations, math density and relevance from the model, hyphenation and
// page cut-offs locally.
//
// Model failures here never fail the run. An item whose call fails keeps the
// conservative defaults: no citations, no math, relevant.
package annotate

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "annotate"

// hyphenated matches a word broken across a line, e.g. "exam- ple" or
// "exam-\nple".
var hyphenated = regexp.MustCompile(`\p{L}{2,}-\s+\p{Ll}{2,}`)

type reply struct {
	HasCitations        bool `json:"has_citations"`
	MathSymbolFrequency int  `json:"math_symbol_frequency"`
	IsRelevant          bool `json:"is_relevant"`
}

// Run annotates every prose item in place.
func Run(ctx context.Context, env *stages.Env, list []*items.Item) error {
	log := env.Log(Stage)

	DetectCutOffs(list)
	var prose []*items.Item
	for _, it := range list {
		if it.Text == nil {
			continue
		}
		it.Text.HasHyphenatedWords = HasHyphenatedWords(it.Content)
		if !it.Empty() {
			prose = append(prose, it)
		}
	}

	defaulted, err := batch.Run(ctx, prose, env.Batch(), func(ctx context.Context, _ int, it *items.Item) (bool, error) {
		if err := annotateItem(ctx, env, it); err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			log.Warn("annotation failed, using defaults", "page", it.Page, "type", it.Type, "error", err)
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return err
	}

	n := 0
	for _, d := range defaulted {
		if d {
			n++
		}
	}
	log.Info("annotation complete", "items", len(prose), "defaulted", n)
	return nil
}

func annotateItem(ctx context.Context, env *stages.Env, it *items.Item) error {
	var r reply
	err := env.Complete(ctx, stages.Call{
		Stage:     Stage,
		SystemKey: SystemPromptKey,
		UserKey:   UserPromptKey,
		Data: struct {
			Type    items.Type
			Page    int
			Content string
		}{it.Type, it.Page, it.Content},
		Schema:    Schema,
		Page:      it.Page,
		MaxTokens: 256,
	}, &r)
	if err != nil {
		return err
	}

	it.Text.HasCitations = r.HasCitations
	freq := min(max(r.MathSymbolFrequency, 0), 5)
	// Merged equations already carry the maximum.
	it.Text.MathSymbolFrequency = max(it.Text.MathSymbolFrequency, freq)
	relevant := r.IsRelevant
	it.Text.Relevant = &relevant
	return nil
}

// HasHyphenatedWords reports whether s contains a word split by a line-break
// hyphen.
func HasHyphenatedWords(s string) bool {
	return hyphenated.MatchString(s)
}

// DetectCutOffs flags paragraphs that run across a page boundary. The last
// body paragraph of a page is end-cut-off when it lacks terminal
// punctuation; the first body paragraph of the next page is start-cut-off
// when it opens in lowercase.
func DetectCutOffs(list []*items.Item) {
	var prev *items.Item
	for _, it := range list {
		if !isBody(it) {
			continue
		}
		if prev != nil && prev.Page != it.Page {
			if !endsSentence(prev.Content) {
				prev.Text.IsEndCutOff = true
				if startsLower(it.Content) {
					it.Text.IsStartCutOff = true
				}
			}
		}
		prev = it
	}
}

func isBody(it *items.Item) bool {
	return (it.Type == items.TypeText || it.Type == items.TypeAbstractContent) && it.Text != nil && !it.Empty()
}

func endsSentence(s string) bool {
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\'' || r == ')' || r == '”'
	})
	if s == "" {
		return true
	}
	switch s[len(s)-1] {
	case '.', '!', '?', ':':
		return true
	}
	return false
}

func startsLower(s string) bool {
	for _, r := range strings.TrimSpace(s) {
		return unicode.IsLower(r)
	}
	return false
}

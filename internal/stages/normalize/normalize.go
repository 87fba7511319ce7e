// Package normalize makes item text narration-friendly: citation removal,
// math verbalization and hyphenation repair through the model, then
// abbreviation expansion from a fixed table.
//
// A model rewrite replaces content only when its length stays inside the
// configured band. Rejected rewrites are still recorded on the item.
package normalize

import (
	"context"
	"strings"

	"github.com/jackzampolin/papercast/internal/batch"
	"github.com/jackzampolin/papercast/internal/completion"
	"github.com/jackzampolin/papercast/internal/items"
	"github.com/jackzampolin/papercast/internal/stages"
)

// Stage is the stage name used in logs and call records.
const Stage = "normalize"

// Options tunes the normalization passes.
type Options struct {
	Bands Bands
	// Abbreviations overrides the built-in table when non-nil.
	Abbreviations []Abbreviation
}

// PassStats counts the outcome of one rewriting pass.
type PassStats struct {
	Eligible int
	Accepted int
	Rejected int
	Failed   int
}

// Stats collects the outcome of every pass.
type Stats struct {
	Citations     PassStats
	Math          PassStats
	Hyphenation   PassStats
	Abbreviations int
}

type reply struct {
	Text string `json:"text"`
}

// pass describes one model rewrite.
type pass struct {
	name      string
	promptKey string
	examples  []completion.Example
	eligible  func(*items.Item) bool
	band      func(*items.Item) (lo, hi float64)
	record    func(*items.Item, *items.Replacement)
}

// Run applies every pass to list in place. Only cancellation fails the stage;
// failed or rejected rewrites keep the original text.
func Run(ctx context.Context, env *stages.Env, list []*items.Item, opts Options) (Stats, error) {
	log := env.Log(Stage)
	bands := opts.Bands.withDefaults()

	var st Stats
	var err error
	if st.Citations, err = runPass(ctx, env, list, citationPass(bands)); err != nil {
		return st, err
	}
	if st.Math, err = runPass(ctx, env, list, mathPass(bands)); err != nil {
		return st, err
	}
	if st.Hyphenation, err = runPass(ctx, env, list, hyphenationPass(bands)); err != nil {
		return st, err
	}

	table := opts.Abbreviations
	if table == nil {
		table = DefaultAbbreviations
	}
	st.Abbreviations = ExpandAll(list, table)

	log.Info("normalization complete",
		"citations", st.Citations.Accepted, "math", st.Math.Accepted,
		"hyphenation", st.Hyphenation.Accepted, "abbreviations", st.Abbreviations,
		"rejected", st.Citations.Rejected+st.Math.Rejected+st.Hyphenation.Rejected)
	return st, nil
}

func citationPass(b Bands) pass {
	return pass{
		name:      "citations",
		promptKey: CitationsPromptKey,
		examples:  citationExamples,
		eligible: func(it *items.Item) bool {
			return it.Text.HasCitations && !it.Text.ReplacedCitations
		},
		band: func(*items.Item) (float64, float64) { return b.CitationMin, b.CitationMax },
		record: func(it *items.Item, r *items.Replacement) {
			it.Text.CitationReplacement = r
			if r.Accepted {
				it.Text.ReplacedCitations = true
			}
		},
	}
}

func mathPass(b Bands) pass {
	return pass{
		name:      "math",
		promptKey: MathPromptKey,
		examples:  mathExamples,
		eligible: func(it *items.Item) bool {
			return it.Text.MathSymbolFrequency > 0 && !it.Text.OptimizedMath
		},
		band: func(it *items.Item) (float64, float64) {
			return b.MathMin, b.mathMax(it.Text.MathSymbolFrequency)
		},
		record: func(it *items.Item, r *items.Replacement) {
			it.Text.MathReplacement = r
			if r.Accepted {
				it.Text.OptimizedMath = true
			}
		},
	}
}

func hyphenationPass(b Bands) pass {
	return pass{
		name:      "hyphenation",
		promptKey: HyphenationPromptKey,
		eligible: func(it *items.Item) bool {
			return it.Text.HasHyphenatedWords && it.Text.HyphenationReplacement == nil
		},
		band: func(*items.Item) (float64, float64) { return b.HyphenationMin, b.HyphenationMax },
		record: func(it *items.Item, r *items.Replacement) {
			it.Text.HyphenationReplacement = r
			if r.Accepted {
				it.Text.HasHyphenatedWords = false
			}
		},
	}
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeRejected
	outcomeFailed
)

func runPass(ctx context.Context, env *stages.Env, list []*items.Item, p pass) (PassStats, error) {
	log := env.Log(Stage).With("pass", p.name)

	var eligible []*items.Item
	for _, it := range list {
		if it.Text != nil && !it.Empty() && p.eligible(it) {
			eligible = append(eligible, it)
		}
	}
	st := PassStats{Eligible: len(eligible)}
	if len(eligible) == 0 {
		return st, nil
	}

	outcomes, err := batch.Run(ctx, eligible, env.Batch(), func(ctx context.Context, _ int, it *items.Item) (outcome, error) {
		original := it.Content
		lo, hi := p.band(it)
		var r reply
		err := env.Complete(ctx, stages.Call{
			Stage:     Stage + "." + p.name,
			SystemKey: p.promptKey,
			UserKey:   UserPromptKey,
			Data:      struct{ Text string }{original},
			Schema:    Schema,
			Page:      it.Page,
			MaxTokens: maxTokensFor(original, hi),
			Examples:  p.examples,
		}, &r)
		if err != nil {
			if ctx.Err() != nil {
				return outcomeFailed, ctx.Err()
			}
			log.Warn("rewrite failed, keeping original", "page", it.Page, "error", err)
			return outcomeFailed, nil
		}

		rewritten := strings.TrimSpace(r.Text)
		rep := &items.Replacement{
			OriginalText:    original,
			TransformedText: rewritten,
			Accepted:        Within(original, rewritten, lo, hi),
		}
		p.record(it, rep)
		if !rep.Accepted {
			log.Warn("rewrite rejected by length band",
				"page", it.Page, "original", len([]rune(original)), "rewritten", len([]rune(rewritten)),
				"min", lo, "max", hi)
			return outcomeRejected, nil
		}
		it.Content = rewritten
		return outcomeAccepted, nil
	})
	if err != nil {
		return st, err
	}

	for _, o := range outcomes {
		switch o {
		case outcomeAccepted:
			st.Accepted++
		case outcomeRejected:
			st.Rejected++
		default:
			st.Failed++
		}
	}
	return st, nil
}

// maxTokensFor budgets a reply as long as the band's upper bound allows,
// at roughly two bytes per token so the JSON envelope fits too.
func maxTokensFor(s string, ratio float64) int {
	return max(512, int(float64(len(s))*ratio/2))
}

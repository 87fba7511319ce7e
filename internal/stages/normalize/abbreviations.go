package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jackzampolin/papercast/internal/items"
)

// AbbreviationKind says how an abbreviation is spoken.
type AbbreviationKind string

const (
	// Initials are read letter by letter; periods are inserted between the
	// letters so speech engines do not pronounce them as a word.
	Initials AbbreviationKind = "initials"
	// Expanded abbreviations are replaced by their full form.
	Expanded AbbreviationKind = "expanded"
)

// Abbreviation is one entry of the expansion table.
type Abbreviation struct {
	Abbreviation string
	Expansion    string
	// Replacement is the spoken form. Empty means it is derived from Kind.
	Replacement string
	Kind        AbbreviationKind
	// Final marks abbreviations that can close a sentence, such as "etc.".
	// Their trailing period is kept as a full stop when a sentence ends there.
	Final bool
}

// DefaultAbbreviations is the built-in table.
var DefaultAbbreviations = []Abbreviation{
	{Abbreviation: "e.g.", Expansion: "exempli gratia", Replacement: "for example", Kind: Expanded},
	{Abbreviation: "i.e.", Expansion: "id est", Replacement: "that is", Kind: Expanded},
	{Abbreviation: "et al.", Expansion: "et alia", Replacement: "and colleagues", Kind: Expanded, Final: true},
	{Abbreviation: "etc.", Expansion: "et cetera", Replacement: "et cetera", Kind: Expanded, Final: true},
	{Abbreviation: "cf.", Expansion: "confer", Replacement: "compare", Kind: Expanded},
	{Abbreviation: "w.r.t.", Expansion: "with respect to", Kind: Expanded},
	{Abbreviation: "vs.", Expansion: "versus", Kind: Expanded},
	{Abbreviation: "approx.", Expansion: "approximately", Kind: Expanded, Final: true},
	{Abbreviation: "resp.", Expansion: "respectively", Kind: Expanded, Final: true},
	{Abbreviation: "Eqs.", Expansion: "Equations", Kind: Expanded},
	{Abbreviation: "Eq.", Expansion: "Equation", Kind: Expanded},
	{Abbreviation: "Secs.", Expansion: "Sections", Kind: Expanded},
	{Abbreviation: "Sec.", Expansion: "Section", Kind: Expanded},
	{Abbreviation: "AI", Expansion: "artificial intelligence", Kind: Initials},
	{Abbreviation: "ML", Expansion: "machine learning", Kind: Initials},
	{Abbreviation: "LLM", Expansion: "large language model", Kind: Initials},
	{Abbreviation: "NLP", Expansion: "natural language processing", Kind: Initials},
	{Abbreviation: "CNN", Expansion: "convolutional neural network", Kind: Initials},
	{Abbreviation: "RNN", Expansion: "recurrent neural network", Kind: Initials},
	{Abbreviation: "GAN", Expansion: "generative adversarial network", Kind: Initials},
	{Abbreviation: "MLP", Expansion: "multilayer perceptron", Kind: Initials},
	{Abbreviation: "SVM", Expansion: "support vector machine", Kind: Initials},
	{Abbreviation: "SGD", Expansion: "stochastic gradient descent", Kind: Initials},
	{Abbreviation: "PCA", Expansion: "principal component analysis", Kind: Initials},
	{Abbreviation: "GPU", Expansion: "graphics processing unit", Kind: Initials},
	{Abbreviation: "CPU", Expansion: "central processing unit", Kind: Initials},
	{Abbreviation: "API", Expansion: "application programming interface", Kind: Initials},
	{Abbreviation: "RL", Expansion: "reinforcement learning", Kind: Initials},
	{Abbreviation: "KL", Expansion: "Kullback-Leibler", Kind: Initials},
	{Abbreviation: "MSE", Expansion: "mean squared error", Kind: Initials},
	{Abbreviation: "RMSE", Expansion: "root mean squared error", Kind: Initials},
	{Abbreviation: "ROC", Expansion: "receiver operating characteristic", Kind: Initials},
	{Abbreviation: "AUC", Expansion: "area under the curve", Kind: Initials},
	{Abbreviation: "GPT", Expansion: "generative pre-trained transformer", Kind: Initials},
	{Abbreviation: "URL", Expansion: "uniform resource locator", Kind: Initials},
}

// spoken returns the replacement text for the abbreviation.
func (a Abbreviation) spoken() string {
	if a.Replacement != "" {
		return a.Replacement
	}
	if a.Kind == Initials {
		var b strings.Builder
		for _, r := range a.Abbreviation {
			b.WriteRune(r)
			b.WriteByte('.')
		}
		return b.String()
	}
	return a.Expansion
}

type compiled struct {
	re     *regexp.Regexp
	spoken string
	// openEnd is set when the abbreviation ends in punctuation, so any
	// character may follow it.
	openEnd bool
	// final is set for abbreviations whose period may also end a sentence.
	final bool
}

func compile(table []Abbreviation) []compiled {
	out := make([]compiled, 0, len(table))
	for _, a := range table {
		if a.Abbreviation == "" {
			continue
		}
		pattern := regexp.QuoteMeta(a.Abbreviation)
		if a.Kind == Initials {
			pattern += `(s?)`
		} else {
			pattern += `()`
		}
		last, _ := utf8.DecodeLastRuneInString(a.Abbreviation)
		out = append(out, compiled{
			re:      regexp.MustCompile(pattern),
			spoken:  a.spoken(),
			openEnd: !isWordRune(last),
			final:   a.Final && last == '.',
		})
	}
	return out
}

// Expand replaces whole-word occurrences of every abbreviation in s. Plural
// initials keep their plural: "LLMs" becomes "L.L.M.s".
func Expand(s string, table []Abbreviation) (string, int) {
	return expandCompiled(s, compile(table))
}

func expandCompiled(s string, table []compiled) (string, int) {
	total := 0
	for _, c := range table {
		var b strings.Builder
		last := 0
		for _, m := range c.re.FindAllStringSubmatchIndex(s, -1) {
			start, end := m[0], m[1]
			if !boundaryBefore(s, start) || (!c.openEnd && !boundaryAfter(s, end)) {
				continue
			}
			suffix := s[m[2]:m[3]]
			// "LLM." ends a sentence; the dotted form already supplies the period.
			if suffix == "" && strings.HasSuffix(c.spoken, ".") && end < len(s) && s[end] == '.' {
				end++
			}
			b.WriteString(s[last:start])
			b.WriteString(c.spoken)
			b.WriteString(suffix)
			if c.final && !strings.HasSuffix(c.spoken, ".") && sentenceEnds(s, end) {
				b.WriteByte('.')
			}
			last = end
			total++
		}
		if last > 0 {
			b.WriteString(s[last:])
			s = b.String()
		}
	}
	return s, total
}

// ExpandAll expands abbreviations in every narrated item and returns the
// number of replacements.
func ExpandAll(list []*items.Item, table []Abbreviation) int {
	c := compile(table)
	total := 0
	for _, it := range list {
		if it.Type == items.TypeEndMarker || it.Empty() {
			continue
		}
		var n int
		it.Content, n = expandCompiled(it.Content, c)
		total += n
	}
	return total
}

// sentenceEnds reports whether a period just before i closes a sentence:
// the text ends there, or whitespace and a capital letter follow.
func sentenceEnds(s string, i int) bool {
	rest := strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	if rest == "" {
		return true
	}
	if len(rest) == len(s[i:]) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsUpper(r)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

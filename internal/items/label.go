package items

import (
	"regexp"
	"strconv"
	"strings"
)

// Unlabeled is the label number given to special items without an identifier.
const Unlabeled = "unlabeled"

// Canonical label types.
const (
	LabelFigure    = "Figure"
	LabelTable     = "Table"
	LabelAlgorithm = "Algorithm"
	LabelListing   = "Listing"
)

// Label identifies a figure, table or code block so it can be matched to its
// in-text mentions.
type Label struct {
	LabelType   string `json:"label_type"`
	LabelNumber string `json:"label_number"`
	PanelNumber string `json:"panel_number,omitempty"`
}

// labelAliases maps every accepted spelling (lowercase) to its canonical
// label type. Lookups are case-insensitive.
var labelAliases = map[string]string{
	"figure":    LabelFigure,
	"figures":   LabelFigure,
	"fig":       LabelFigure,
	"fig.":      LabelFigure,
	"figs.":     LabelFigure,
	"image":     LabelFigure,
	"chart":     LabelFigure,
	"plot":      LabelFigure,
	"table":     LabelTable,
	"tables":    LabelTable,
	"tab":       LabelTable,
	"tab.":      LabelTable,
	"tbl.":      LabelTable,
	"algorithm": LabelAlgorithm,
	"alg":       LabelAlgorithm,
	"alg.":      LabelAlgorithm,
	"algo":      LabelAlgorithm,
	"algo.":     LabelAlgorithm,
	"listing":   LabelListing,
	"code":      LabelListing,
	"lst.":      LabelListing,
}

// mentionAliases lists the spellings searched for in running text, per
// canonical label type. Longer aliases come first so "figure" wins over "fig".
var mentionAliases = map[string][]string{
	LabelFigure:    {"figures", "figure", "figs.", "fig.", "fig", "image"},
	LabelTable:     {"tables", "table", "tbl.", "tab.", "tab"},
	LabelAlgorithm: {"algorithm", "algo.", "algo", "alg.", "alg"},
	LabelListing:   {"listing", "lst.", "code"},
}

// CanonicalLabelType maps an alias such as "Fig." or "ALGO" to its canonical
// label type. Unknown values are returned title-cased.
func CanonicalLabelType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := labelAliases[key]; ok {
		return c
	}
	if c, ok := labelAliases[strings.TrimSuffix(key, ".")]; ok {
		return c
	}
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// DefaultLabelType returns the canonical label type for a special item type.
func DefaultLabelType(t Type) string {
	switch t {
	case TypeTableRows:
		return LabelTable
	case TypeCodeOrAlgorithm:
		return LabelAlgorithm
	default:
		return LabelFigure
	}
}

// Normalize canonicalizes the label in place.
func (l *Label) Normalize() {
	l.LabelType = CanonicalLabelType(l.LabelType)
	l.LabelNumber = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(l.LabelNumber), "."))
	if l.LabelNumber == "" || strings.EqualFold(l.LabelNumber, Unlabeled) {
		l.LabelNumber = Unlabeled
	}
	l.PanelNumber = strings.ToLower(strings.Trim(strings.TrimSpace(l.PanelNumber), "()"))
}

// IsLabeled reports whether the label carries a usable number.
func (l *Label) IsLabeled() bool {
	return l != nil && l.LabelNumber != "" && l.LabelNumber != Unlabeled
}

// Key is the normalized label string used for deduplication.
func (l *Label) Key() string {
	if l == nil {
		return ""
	}
	key := strings.ToLower(CanonicalLabelType(l.LabelType)) + " " + strings.ToLower(l.LabelNumber)
	if l.PanelNumber != "" {
		key += " " + strings.ToLower(l.PanelNumber)
	}
	return key
}

// String renders the label for narration, e.g. "Figure 3b".
func (l *Label) String() string {
	if l == nil {
		return ""
	}
	if !l.IsLabeled() {
		return l.LabelType
	}
	return l.LabelType + " " + l.LabelNumber + l.PanelNumber
}

// Reference lists after an alias, e.g. "3", "3(b)", "1 and 2", "1-3",
// "2.4, 2.5, and 6".
const (
	refToken = `[a-z]?[0-9]+(?:\.[0-9]+)?(?:\(?[a-z]\)?)?`
	refSep   = `(?:\s*[,;&\-–—]\s*(?:(?:and|or)\s+)?|\s+(?:and|or|to)\s+)`
	refEnd   = `(?:[^0-9a-z.]|\.(?:[^0-9]|$)|$)`
)

var (
	refTokenRe = regexp.MustCompile(`(?i)` + refToken)
	refRangeRe = regexp.MustCompile(`(?i)^\s*(?:[\-–—]|to)\s*$`)
	panelRe    = regexp.MustCompile(`(?i)^([a-z]?[0-9]+(?:\.[0-9]+)?)\(?[a-z]?\)?$`)
)

// MentionPattern compiles a case-insensitive regexp that matches in-text
// references to the label's type followed by a reference list, e.g.
// "Fig. 3", "FIGURE 3(b)", "Figures 1 and 3". The list is submatch 1; use
// Mentions to check whether it names this label.
func (l *Label) MentionPattern() *regexp.Regexp {
	if !l.IsLabeled() {
		return nil
	}
	aliases, ok := mentionAliases[CanonicalLabelType(l.LabelType)]
	if !ok {
		aliases = []string{strings.ToLower(l.LabelType)}
	}
	quoted := make([]string, len(aliases))
	for i, a := range aliases {
		quoted[i] = regexp.QuoteMeta(a)
	}
	pattern := `(?i)\b(?:` + strings.Join(quoted, "|") + `)\s*~?\s*(` +
		refToken + `(?:` + refSep + refToken + `)*)` + refEnd
	return regexp.MustCompile(pattern)
}

// Mentions reports whether text refers to the label, either directly or as
// part of a list or range such as "Figs. 1-3".
func (l *Label) Mentions(text string) bool {
	re := l.MentionPattern()
	if re == nil {
		return false
	}
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if refListHas(m[1], l.LabelNumber) {
			return true
		}
	}
	return false
}

// refListHas reports whether a reference list names number, expanding
// numeric ranges.
func refListHas(list, number string) bool {
	want := strings.ToLower(number)
	locs := refTokenRe.FindAllStringIndex(list, -1)
	prev := ""
	for i, loc := range locs {
		tok := refBase(list[loc[0]:loc[1]])
		if tok == want {
			return true
		}
		if i > 0 && refRangeRe.MatchString(list[locs[i-1][1]:loc[0]]) && inRange(prev, tok, want) {
			return true
		}
		prev = tok
	}
	return false
}

// refBase strips a panel suffix, so "3(b)" and "3b" both reduce to "3".
func refBase(tok string) string {
	tok = strings.ToLower(tok)
	if m := panelRe.FindStringSubmatch(tok); m != nil {
		return m[1]
	}
	return tok
}

func inRange(lo, hi, want string) bool {
	a, errA := strconv.Atoi(lo)
	b, errB := strconv.Atoi(hi)
	w, errW := strconv.Atoi(want)
	if errA != nil || errB != nil || errW != nil {
		return false
	}
	return a <= w && w <= b
}

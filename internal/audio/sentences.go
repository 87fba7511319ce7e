// Package audio splits narration text into synthesis-sized chunks and
// assembles encoded audio with ffmpeg.
package audio

import (
	"strings"
	"unicode"
)

// DefaultMaxChars is the speech backend's per-request input limit.
const DefaultMaxChars = 4096

// Abbreviations whose trailing period does not end a sentence. Paper-style
// reference abbreviations ("Fig.", "Eq.", "et al.") matter most here.
var nonTerminal = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"vs": {}, "etc": {}, "no": {}, "nos": {}, "vol": {}, "pp": {}, "p": {},
	"fig": {}, "figs": {}, "eq": {}, "eqs": {}, "sec": {}, "secs": {},
	"tab": {}, "tbl": {}, "alg": {}, "algo": {}, "lst": {}, "ch": {}, "ref": {},
	"al": {}, "cf": {}, "approx": {}, "resp": {}, "inc": {}, "ltd": {}, "dept": {},
	"e.g": {}, "i.e": {}, "w.r.t": {}, "a.m": {}, "p.m": {}, "u.s": {}, "u.k": {},
}

// Chunks splits text at sentence boundaries and packs consecutive sentences
// into chunks of at most maxChars runes. A single sentence longer than
// maxChars is cut at clause punctuation.
func Chunks(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	var out []string
	var cur strings.Builder
	curLen := 0
	for _, s := range Sentences(text, maxChars) {
		n := len([]rune(s))
		if curLen > 0 && curLen+1+n > maxChars {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(s)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

// Sentences splits text into sentences, none longer than maxChars runes.
func Sentences(text string, maxChars int) []string {
	text = collapseSpace(text)
	if text == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch != '.' && ch != '!' && ch != '?' {
			continue
		}
		if ch == '.' && periodContinues(text, i) {
			continue
		}
		if !sentenceEndsAt(text, i) {
			continue
		}
		if s := strings.TrimSpace(text[start : i+1]); s != "" {
			out = append(out, splitLong(s, maxChars)...)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, splitLong(s, maxChars)...)
	}
	return out
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// periodContinues reports whether the period at idx is part of an ellipsis,
// a decimal number, an initial or a known abbreviation.
func periodContinues(text string, idx int) bool {
	if (idx > 0 && text[idx-1] == '.') || (idx+1 < len(text) && text[idx+1] == '.') {
		return true
	}
	if idx > 0 && idx+1 < len(text) && isDigit(text[idx-1]) && isDigit(text[idx+1]) {
		return true
	}
	token := wordBefore(text, idx)
	if token == "" {
		return false
	}
	if len(token) == 1 && isAlpha(token[0]) {
		return true
	}
	_, ok := nonTerminal[strings.ToLower(token)]
	return ok
}

func wordBefore(text string, idx int) string {
	i := idx - 1
	for i >= 0 && !isWordBoundary(text[i]) {
		i--
	}
	return text[i+1 : idx]
}

// sentenceEndsAt reports whether the punctuation at idx is followed by
// closing marks, whitespace and something that looks like a new sentence.
func sentenceEndsAt(text string, idx int) bool {
	i := idx + 1
	for i < len(text) && isClosing(text[i]) {
		i++
	}
	if i >= len(text) {
		return true
	}
	if text[i] != ' ' {
		return false
	}
	for i < len(text) && text[i] == ' ' {
		i++
	}
	if i >= len(text) {
		return true
	}
	for i < len(text) && isOpening(text[i]) {
		i++
	}
	if i >= len(text) {
		return false
	}
	r := rune(text[i])
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}

// splitLong cuts s into pieces of at most maxChars runes, preferring clause
// punctuation in the back half of each window.
func splitLong(s string, maxChars int) []string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return []string{s}
	}
	var out []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= maxChars {
			if part := strings.TrimSpace(string(runes[start:])); part != "" {
				out = append(out, part)
			}
			break
		}
		cut := start + maxChars
		if b := lastClauseBreak(runes, start+maxChars/2, cut); b > start {
			cut = b + 1
		} else if b := lastSpace(runes, start+maxChars/2, cut); b > start {
			cut = b + 1
		}
		if part := strings.TrimSpace(string(runes[start:cut])); part != "" {
			out = append(out, part)
		}
		start = cut
	}
	return out
}

func lastClauseBreak(runes []rune, from, to int) int {
	for i := min(to, len(runes)) - 1; i >= from && i >= 0; i-- {
		switch runes[i] {
		case ',', ';', ':', '—':
			return i
		}
	}
	return -1
}

func lastSpace(runes []rune, from, to int) int {
	for i := min(to, len(runes)) - 1; i >= from && i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func isWordBoundary(ch byte) bool {
	return ch == ' ' || ch == '"' || ch == '\'' || ch == '(' || ch == ')' || ch == '[' || ch == ']'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isClosing(ch byte) bool {
	return ch == '"' || ch == '\'' || ch == ')' || ch == ']'
}

func isOpening(ch byte) bool {
	return ch == '"' || ch == '\'' || ch == '(' || ch == '['
}

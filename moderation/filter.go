// Package moderation censors forbidden words in message bodies before they
// are persisted and fanned out, so storage and broadcast always agree.
package moderation

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Filter matches forbidden patterns with an Aho-Corasick automaton built over
// a normalized alphabet, so "h4x0r"-style spellings of a banned word are
// still caught. The original spacing and punctuation are preserved in the
// censored output.
type Filter struct {
	machine     *goahocorasick.Machine
	replacement rune
}

func NewFilter(words []string, replacement rune) (*Filter, error) {
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		p := normalize([]rune(w))
		if len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Filter{machine: m, replacement: replacement}, nil
}

// Apply returns the censored text and the number of matched spans.
func (f *Filter) Apply(original string) (string, int) {
	origRunes := []rune(original)

	// Normalized view plus an index back into the original runes.
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	if len(norm) == 0 {
		return original, 0
	}

	spans := f.machine.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return original, 0
	}

	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = f.replacement
		}
	}
	return string(origRunes), len(spans)
}

// DetectLang returns the ISO 639-1 code of the detected language, or an
// empty string when detection is unreliable (short or mixed input).
func DetectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

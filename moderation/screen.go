// Package moderation screens inbound message content against a word
// blacklist. Screening is detection only: the relay delivers content
// verbatim and logs what it found, it never rewrites a message.
package moderation

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Report is the outcome of inspecting one message.
type Report struct {
	// Matches holds the normalized blacklist entries found in the content.
	Matches []string
	// Language is the ISO 639-1 code detected for the content, "" when
	// detection was inconclusive.
	Language string
}

// Screen matches content against the blacklist with an Aho-Corasick
// automaton built once at startup. Safe for concurrent use: the automaton
// is read-only after construction.
type Screen struct {
	matcher *goahocorasick.Machine
}

// NewScreen builds the automaton from a normalized version of the
// blacklist, so leet-speak variants of a word still match.
func NewScreen(blacklist []string) (*Screen, error) {
	patterns := make([][]rune, 0, len(blacklist))
	for _, word := range blacklist {
		if normalized := normalizeRunes([]rune(word)); len(normalized) > 0 {
			patterns = append(patterns, normalized)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Screen{matcher: m}, nil
}

// Inspect scans one message's content and reports every blacklist match
// together with the detected language. The content itself is untouched.
func (s *Screen) Inspect(content string) Report {
	report := Report{}

	normalized := normalizeRunes([]rune(content))
	if len(normalized) == 0 {
		return report
	}

	for _, span := range s.matcher.MultiPatternSearch(normalized, false) {
		report.Matches = append(report.Matches, string(span.Word))
	}
	if len(report.Matches) == 0 {
		return report
	}

	info := whatlanggo.Detect(content)
	report.Language = info.Lang.Iso6391()
	return report
}

// normalizeRunes lowers the text, folds common leet-speak substitutions
// back to letters and drops punctuation, spacing and symbols, so padding a
// word with dots or digits does not evade the blacklist.
func normalizeRunes(input []rune) []rune {
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

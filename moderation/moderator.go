// Package moderation masks censored words in chat messages before they are broadcast.
package moderation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator censors a fixed dictionary. The zero value lets everything through.
type Moderator struct {
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// NewModerator builds the Aho-Corasick automaton over the normalized dictionary.
// An empty dictionary yields a pass-through moderator.
func NewModerator(censoredWords []string, censoredChar rune) (*Moderator, error) {
	normalized := lo.FilterMap(censoredWords, func(word string, _ int) (string, bool) {
		p := string(normalizeRunes([]rune(word)))
		return p, p != ""
	})
	// The double array trie is built from sorted, unique keys.
	normalized = lo.Uniq(normalized)
	sort.Strings(normalized)
	if len(normalized) == 0 {
		return &Moderator{censoredChar: censoredChar}, nil
	}

	m := new(goahocorasick.Machine)
	patterns := lo.Map(normalized, func(p string, _ int) []rune { return []rune(p) })
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build censor automaton: %w", err)
	}
	return &Moderator{matcher: m, censoredChar: censoredChar}, nil
}

// LoadFile reads one censored word per line, ignoring blanks and # comments.
func LoadFile(path string, censoredChar rune) (*Moderator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words, err := ReadWords(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return NewModerator(words, censoredChar)
}

func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

func (m *Moderator) Enabled() bool {
	return m != nil && m.matcher != nil
}

// Censor replaces every character of a matched word, punctuation inside the
// match included, and keeps the rest of the text untouched.
func (m *Moderator) Censor(original string) string {
	if !m.Enabled() {
		return original
	}

	normalized, origIdx := normalize(original)
	if len(normalized) == 0 {
		return original
	}
	terms := m.matcher.MultiPatternSearch(normalized, false)
	if len(terms) == 0 {
		return original
	}

	origRunes := []rune(original)
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.censoredChar
		}
	}
	return string(origRunes)
}

// normalize returns the searchable runes and, for each, its index in input.
func normalize(input string) ([]rune, []int) {
	origRunes := []rune(input)
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
	return norm, origIdx
}

func normalizeRunes(input []rune) []rune {
	out, _ := normalize(string(input))
	return out
}

// simplifyRune maps common leet speak characters back to letters.
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

package vocab

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type textPart struct {
	text      string
	isSpecial bool
}

// Tokenize splits text into WordPiece tokens. Special tokens written
// literally in text (for example "[Space]") are kept whole and are matched
// case-sensitively before any normalisation.
func (v *Vocab) Tokenize(text string) []string {
	var out []string
	for _, part := range v.splitSpecials(text) {
		if part.isSpecial {
			out = append(out, part.text)
			continue
		}
		for _, word := range v.basicTokenize(part.text) {
			out = append(out, v.wordPiece(word)...)
		}
	}
	return out
}

func (v *Vocab) splitSpecials(text string) []textPart {
	if !strings.Contains(text, "[") {
		return []textPart{{text: text}}
	}
	var parts []textPart
	var buf strings.Builder
	for i := 0; i < len(text); {
		match := ""
		if text[i] == '[' {
			for _, sp := range v.neverSplit {
				if strings.HasPrefix(text[i:], sp) {
					match = sp
					break
				}
			}
		}
		if match == "" {
			buf.WriteByte(text[i])
			i++
			continue
		}
		if buf.Len() > 0 {
			parts = append(parts, textPart{text: buf.String()})
			buf.Reset()
		}
		parts = append(parts, textPart{text: match, isSpecial: true})
		i += len(match)
	}
	if buf.Len() > 0 {
		parts = append(parts, textPart{text: buf.String()})
	}
	return parts
}

// basicTokenize cleans text, isolates CJK ideographs and punctuation, and
// splits on whitespace.
func (v *Vocab) basicTokenize(text string) []string {
	text = cleanText(text)
	text = padCJK(text)

	var out []string
	for _, word := range strings.Fields(text) {
		if v.lowerCase {
			word = stripAccents(strings.ToLower(word))
		}
		out = append(out, splitPunct(word)...)
	}
	return out
}

func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isWhitespace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func padCJK(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isCJK(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripAccents(word string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, word)
	if err != nil {
		return word
	}
	return out
}

func splitPunct(word string) []string {
	var out []string
	start := -1
	for i, r := range word {
		if isPunct(r) {
			if start >= 0 {
				out = append(out, word[start:i])
				start = -1
			}
			out = append(out, string(r))
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, word[start:])
	}
	return out
}

// wordPiece splits a single word by greedy longest match. A word with no
// complete split, or longer than the word limit, becomes the unknown token.
func (v *Vocab) wordPiece(word string) []string {
	if v.cache != nil {
		if hit, ok := v.cache.Get(word); ok {
			return hit.([]string)
		}
	}

	rs := []rune(word)
	var pieces []string
	if len(rs) > v.maxWordChars {
		pieces = []string{v.special.Unknown}
	} else {
		for start := 0; start < len(rs); {
			end := len(rs)
			piece := ""
			for ; end > start; end-- {
				sub := string(rs[start:end])
				if start > 0 {
					sub = v.prefix + sub
				}
				if _, ok := v.ids[sub]; ok {
					piece = sub
					break
				}
			}
			if piece == "" {
				pieces = []string{v.special.Unknown}
				break
			}
			pieces = append(pieces, piece)
			start = end
		}
	}

	if v.cache != nil {
		v.cache.Add(word, pieces)
	}
	return pieces
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs)
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}

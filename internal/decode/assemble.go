package decode

import "strings"

// ContinuationMarker prefixes WordPiece tokens that continue a word.
const ContinuationMarker = "##"

// Detokenizer maps ids back to their subword tokens.
type Detokenizer interface {
	TokensFor(ids []int) []string
	SeparatorID() int
	// SpaceToken is the textual form of the space placeholder.
	SpaceToken() string
}

// Assemble turns every sequence of b into display text, in slot order.
//
// Each suffix is cut at its first separator; anything sampled afterwards is
// dropped. A suffix without a separator is used whole. Continuation markers
// are stripped and space placeholders become literal spaces.
func Assemble(b *Batch, d Detokenizer) []string {
	sep := d.SeparatorID()
	space := d.SpaceToken()

	out := make([]string, b.Size())
	for i, s := range b.seqs {
		ids := s.Tokens
		for j, id := range ids {
			if id == sep {
				ids = ids[:j]
				break
			}
		}
		text := strings.Join(d.TokensFor(ids), "")
		text = strings.ReplaceAll(text, ContinuationMarker, "")
		if space != "" {
			text = strings.ReplaceAll(text, space, " ")
		}
		out[i] = text
	}
	return out
}

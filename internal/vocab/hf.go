package vocab

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

type hfTokenizerJSON struct {
	Model struct {
		Type                    string         `json:"type"`
		Vocab                   map[string]int `json:"vocab"`
		UnkToken                string         `json:"unk_token"`
		ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
		MaxInputCharsPerWord    int            `json:"max_input_chars_per_word"`
	} `json:"model"`
	Normalizer *struct {
		Type      string `json:"type"`
		Lowercase *bool  `json:"lowercase"`
	} `json:"normalizer"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
	} `json:"added_tokens"`
}

// ParseTokenizerJSON builds a Vocab from a Hugging Face tokenizer.json whose
// model is WordPiece. Explicit options override what the file declares.
func ParseTokenizerJSON(data []byte, opts ...Option) (*Vocab, error) {
	var tj hfTokenizerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("vocab: parse tokenizer.json: %w", err)
	}
	if !strings.EqualFold(tj.Model.Type, "WordPiece") {
		return nil, fmt.Errorf("vocab: unsupported tokenizer model: %s", tj.Model.Type)
	}

	maxID := -1
	for _, id := range tj.Model.Vocab {
		maxID = max(maxID, id)
	}
	for _, at := range tj.AddedTokens {
		maxID = max(maxID, at.ID)
	}
	if maxID < 0 {
		return nil, fmt.Errorf("vocab: tokenizer.json has no tokens")
	}
	tokens := make([]string, maxID+1)
	for tok, id := range tj.Model.Vocab {
		if id < 0 {
			return nil, fmt.Errorf("vocab: negative id %d for %q", id, tok)
		}
		tokens[id] = tok
	}
	for _, at := range tj.AddedTokens {
		if at.ID >= 0 {
			tokens[at.ID] = at.Content
		}
	}

	o := defaultOptions()
	if tj.Model.ContinuingSubwordPrefix != "" {
		o.prefix = tj.Model.ContinuingSubwordPrefix
	}
	if tj.Model.MaxInputCharsPerWord > 0 {
		o.maxWordChars = tj.Model.MaxInputCharsPerWord
	}
	if tj.Model.UnkToken != "" {
		o.special.Unknown = tj.Model.UnkToken
	}
	if n := tj.Normalizer; n != nil && n.Lowercase != nil {
		o.lowerCase = *n.Lowercase
	}
	for _, opt := range opts {
		opt(&o)
	}
	return build(tokens, o)
}

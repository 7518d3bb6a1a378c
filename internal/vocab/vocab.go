// Package vocab implements the WordPiece vocabulary the title model was
// trained with: a BERT basic tokenizer (lower-casing, accent stripping, CJK
// and punctuation splitting) followed by greedy longest-match WordPiece,
// plus the special tokens the decoder relies on.
//
// A Vocab is immutable after construction and safe for concurrent use.
package vocab

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
)

// SpecialTokens names the textual form of every distinguished token.
type SpecialTokens struct {
	Content   string
	Title     string
	Unknown   string
	Separator string
	Start     string
	Space     string
}

// DefaultSpecialTokens returns the token names used by the title model vocabulary.
func DefaultSpecialTokens() SpecialTokens {
	return SpecialTokens{
		Content:   "[Content]",
		Title:     "[Title]",
		Unknown:   "[UNK]",
		Separator: "[SEP]",
		Start:     "[CLS]",
		Space:     "[Space]",
	}
}

func (s SpecialTokens) list() []string {
	return []string{s.Content, s.Title, s.Unknown, s.Separator, s.Start, s.Space}
}

// Specials holds the resolved ids of the special tokens.
type Specials struct {
	Content   int
	Title     int
	Unknown   int
	Separator int
	Start     int
	Space     int
}

const (
	defaultCacheSize    = 16384
	defaultMaxWordChars = 100
)

type options struct {
	lowerCase    bool
	cacheSize    int
	maxWordChars int
	special      SpecialTokens
	prefix       string
}

// Option configures a Vocab.
type Option func(*options)

// WithLowerCase toggles lower-casing and accent stripping. Enabled by default.
func WithLowerCase(on bool) Option {
	return func(o *options) { o.lowerCase = on }
}

// WithCacheSize sets the number of words whose WordPiece split is cached.
// Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithSpecialTokens overrides the special token names.
func WithSpecialTokens(s SpecialTokens) Option {
	return func(o *options) { o.special = s }
}

func defaultOptions() options {
	return options{
		lowerCase:    true,
		cacheSize:    defaultCacheSize,
		maxWordChars: defaultMaxWordChars,
		special:      DefaultSpecialTokens(),
		prefix:       "##",
	}
}

// Vocab is a WordPiece vocabulary.
type Vocab struct {
	tokens   []string
	ids      map[string]int
	special  SpecialTokens
	specials Specials
	// neverSplit holds special tokens matched verbatim in input text,
	// longest first.
	neverSplit []string

	lowerCase    bool
	maxWordChars int
	prefix       string
	cache        *lru.Cache
}

// New builds a vocabulary where tokens[i] has id i. Every special token must
// be present.
func New(tokens []string, opts ...Option) (*Vocab, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return build(tokens, o)
}

func build(tokens []string, o options) (*Vocab, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("vocab: empty vocabulary")
	}
	ids := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, dup := ids[tok]; !dup {
			ids[tok] = i
		}
	}

	v := &Vocab{
		tokens:       tokens,
		ids:          ids,
		special:      o.special,
		lowerCase:    o.lowerCase,
		maxWordChars: o.maxWordChars,
		prefix:       o.prefix,
	}

	resolve := func(name, tok string) (int, error) {
		id, ok := ids[tok]
		if !ok {
			return 0, fmt.Errorf("vocab: special token %s %q not found", name, tok)
		}
		return id, nil
	}
	var err error
	sp := &v.specials
	for _, f := range []struct {
		name string
		tok  string
		dst  *int
	}{
		{"content", o.special.Content, &sp.Content},
		{"title", o.special.Title, &sp.Title},
		{"unknown", o.special.Unknown, &sp.Unknown},
		{"separator", o.special.Separator, &sp.Separator},
		{"start", o.special.Start, &sp.Start},
		{"space", o.special.Space, &sp.Space},
	} {
		if *f.dst, err = resolve(f.name, f.tok); err != nil {
			return nil, err
		}
	}

	v.neverSplit = append(v.neverSplit, o.special.list()...)
	for _, extra := range []string{"[PAD]", "[MASK]"} {
		if _, ok := ids[extra]; ok {
			v.neverSplit = append(v.neverSplit, extra)
		}
	}
	sort.SliceStable(v.neverSplit, func(i, j int) bool {
		return len(v.neverSplit[i]) > len(v.neverSplit[j])
	})

	if o.cacheSize > 0 {
		cache, err := lru.New(o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("vocab: word cache: %w", err)
		}
		v.cache = cache
	}
	return v, nil
}

// Load reads a vocabulary from path. Files ending in .json are parsed as a
// Hugging Face tokenizer.json with a WordPiece model; anything else is read
// as a vocab.txt with one token per line.
func Load(path string, opts ...Option) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseTokenizerJSON(data, opts...)
	}
	return ParseVocabTxt(data, opts...)
}

// ParseVocabTxt parses a BERT vocab.txt: token i is on line i.
func ParseVocabTxt(data []byte, opts ...Option) (*Vocab, error) {
	var tokens []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		tokens = append(tokens, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("vocab: scan vocab.txt: %w", err)
	}
	return New(tokens, opts...)
}

// Size is the number of ids, which is the length of every score vector.
func (v *Vocab) Size() int { return len(v.tokens) }

func (v *Vocab) Specials() Specials { return v.specials }

func (v *Vocab) SpecialTokens() SpecialTokens { return v.special }

func (v *Vocab) SeparatorID() int { return v.specials.Separator }

func (v *Vocab) SpaceToken() string { return v.special.Space }

// ID returns the id of tok.
func (v *Vocab) ID(tok string) (int, bool) {
	id, ok := v.ids[tok]
	return id, ok
}

// IDsFor maps tokens to ids. Unknown tokens map to the unknown id.
func (v *Vocab) IDsFor(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		id, ok := v.ids[tok]
		if !ok {
			id = v.specials.Unknown
		}
		out[i] = id
	}
	return out
}

// TokensFor maps ids to tokens. Out of range ids map to the unknown token.
func (v *Vocab) TokensFor(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			out[i] = v.special.Unknown
			continue
		}
		out[i] = v.tokens[id]
	}
	return out
}

// Encode tokenizes text and maps the result to ids.
func (v *Vocab) Encode(text string) []int {
	return v.IDsFor(v.Tokenize(text))
}

// Package scorer provides the language models the decoder queries for
// next-token scores.
package scorer

import (
	"context"
	"fmt"
	"math/rand"
)

// Toy is a minimal deterministic language model used for testing and demos.
// It consists of a token embedding matrix, a segment embedding matrix, a
// projection back to vocabulary scores, and a bias vector. Weights are
// derived from a seed so identical inputs always score identically.
//
// Toy is safe for concurrent use.
type Toy struct {
	Vocab    int
	Hidden   int
	Segments int

	Emb    mat       // [Vocab x Hidden]
	SegEmb mat       // [Segments x Hidden]
	W      mat       // [Hidden x Vocab]
	Bias   []float32 // [Vocab]
}

// ToyOption configures a Toy.
type ToyOption func(*Toy)

// WithBias adds value to the score of id at every position.
func WithBias(id int, value float32) ToyOption {
	return func(m *Toy) {
		if id >= 0 && id < m.Vocab {
			m.Bias[id] += value
		}
	}
}

// NewToy constructs a model with the given vocabulary and hidden size.
// Segment ids index a table sized to the vocabulary, since segment markers
// are ordinary vocabulary tokens.
func NewToy(vocab, hidden int, seed int64, opts ...ToyOption) (*Toy, error) {
	if vocab <= 0 || hidden <= 0 {
		return nil, fmt.Errorf("toy: invalid dimensions vocab=%d hidden=%d", vocab, hidden)
	}
	m := &Toy{
		Vocab:    vocab,
		Hidden:   hidden,
		Segments: vocab,
		Emb:      newMat(vocab, hidden),
		SegEmb:   newMat(vocab, hidden),
		W:        newMat(hidden, vocab),
		Bias:     make([]float32, vocab),
	}
	m.Emb.fillRand(seed + 11)
	m.SegEmb.fillRand(seed + 17)
	m.W.fillRand(seed + 23)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Score implements the decoder's scorer contract: one score vector per row,
// taken at the last position of that row.
func (m *Toy) Score(ctx context.Context, ids, segments [][]int) ([][]float32, error) {
	if len(ids) != len(segments) {
		return nil, fmt.Errorf("toy: %d id rows but %d segment rows", len(ids), len(segments))
	}
	out := make([][]float32, len(ids))
	h := make([]float32, m.Hidden)
	for r := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(ids[r]) == 0 || len(ids[r]) != len(segments[r]) {
			return nil, fmt.Errorf("toy: row %d has %d ids and %d segments", r, len(ids[r]), len(segments[r]))
		}
		m.hidden(h, ids[r], segments[r])
		out[r] = m.Forward(h)
	}
	return out, nil
}

// hidden summarises a row as the last token's embedding plus its segment
// embedding plus half the mean embedding of the whole row.
func (m *Toy) hidden(h []float32, ids, segs []int) {
	last := len(ids) - 1
	copy(h, m.Emb.row(m.wrap(ids[last])))
	seg := m.SegEmb.row(m.wrap(segs[last]))
	for i := range h {
		h[i] += seg[i]
	}
	scale := 0.5 / float32(len(ids))
	for _, id := range ids {
		e := m.Emb.row(m.wrap(id))
		for i := range h {
			h[i] += scale * e[i]
		}
	}
}

// Forward projects a hidden vector back to vocabulary scores. A newly
// allocated slice is returned.
func (m *Toy) Forward(h []float32) []float32 {
	logits := make([]float32, m.Vocab)
	for i := 0; i < m.Hidden; i++ {
		hi := h[i]
		if hi == 0 {
			continue
		}
		w := m.W.row(i)
		for j := range logits {
			logits[j] += hi * w[j]
		}
	}
	for j := range logits {
		logits[j] += m.Bias[j]
	}
	return logits
}

// wrap reduces an out of range id modulo Vocab.
func (m *Toy) wrap(id int) int {
	id %= m.Vocab
	if id < 0 {
		id += m.Vocab
	}
	return id
}

// mat is a dense row-major float32 matrix.
type mat struct {
	R, C int
	Data []float32
}

func newMat(r, c int) mat {
	return mat{R: r, C: c, Data: make([]float32, r*c)}
}

func (m *mat) row(i int) []float32 {
	start := i * m.C
	return m.Data[start : start+m.C]
}

// fillRand fills m with values uniform in [-1, 1).
func (m *mat) fillRand(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = rng.Float32()*2 - 1
	}
}

package logits

import (
	"math/rand"
	"time"
)

// Sampler draws token ids from filtered score vectors.
//
// A Sampler owns its random source and is not safe for concurrent use; one
// decode run uses one Sampler.
type Sampler struct {
	rng  *rand.Rand
	prob []float64
}

// NewSampler returns a sampler drawing from rng.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // sampling, not crypto
	}
	return &Sampler{rng: rng}
}

// NewSeededSampler returns a sampler seeded with seed. A negative seed picks
// a time-based one.
func NewSeededSampler(seed int64) *Sampler {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return NewSampler(rand.New(rand.NewSource(seed))) //nolint:gosec // deterministic seed for reproducibility
}

// Sample normalises scores with a softmax and draws one index.
//
// Zero-probability entries are never returned. When exactly one entry is
// finite it is always returned. A vector with no finite entry falls back to
// the argmax, which is index 0 for an all -Inf vector.
func (s *Sampler) Sample(scores []float32) int {
	s.prob = Softmax(scores, s.prob)
	prob := s.prob

	last := -1
	for i, p := range prob {
		if p > 0 {
			last = i
		}
	}
	if last < 0 {
		return Argmax(scores)
	}

	r := s.rng.Float64()
	var c float64
	for i := 0; i <= last; i++ {
		c += prob[i]
		if r < c {
			return i
		}
	}
	return last
}

// Argmax returns the index of the largest score. Ties resolve to the lowest
// index. It panics on an empty slice.
func Argmax(scores []float32) int {
	if len(scores) == 0 {
		panic("argmax: empty slice")
	}
	bestI := 0
	bestV := scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > bestV {
			bestV = scores[i]
			bestI = i
		}
	}
	return bestI
}

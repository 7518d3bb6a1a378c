package logits

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isNegInf(v float32) bool {
	return math.IsInf(float64(v), -1)
}

func finiteIndices(scores []float32) []int {
	var out []int
	for i, v := range scores {
		if !isNegInf(v) {
			out = append(out, i)
		}
	}
	return out
}

func TestAdjustScoresPenalisesDistinctIDsOnce(t *testing.T) {
	t.Parallel()

	scores := []float32{2, 4, 8, 16, 32}
	AdjustScores(scores, []int{1, 1, 1, 3}, 2, 0)

	assert.True(t, isNegInf(scores[0]), "unk must be suppressed")
	assert.Equal(t, float32(2), scores[1], "three occurrences divide once")
	assert.Equal(t, float32(8), scores[2])
	assert.Equal(t, float32(8), scores[3])
	assert.Equal(t, float32(32), scores[4])
}

func TestAdjustScoresPenaltyOneOnlySuppressesUnk(t *testing.T) {
	t.Parallel()

	orig := []float32{0.5, -1.25, 3, 7, -9}
	scores := append([]float32(nil), orig...)
	AdjustScores(scores, []int{0, 1, 2, 3, 4, 2}, 1, 2)

	for i := range orig {
		if i == 2 {
			assert.True(t, isNegInf(scores[i]))
			continue
		}
		assert.Equal(t, orig[i], scores[i], "index %d", i)
	}
}

func TestAdjustScoresDividesNegativeScoresLiterally(t *testing.T) {
	t.Parallel()

	scores := []float32{-4, 4, 0}
	AdjustScores(scores, []int{0, 1}, 2, 2)

	// A negative score moves towards zero under division.
	assert.Equal(t, float32(-2), scores[0])
	assert.Equal(t, float32(2), scores[1])
}

func TestAdjustScoresIgnoresOutOfRangeIDs(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 3}
	AdjustScores(scores, []int{-1, 7, 1}, 2, 99)
	assert.Equal(t, []float32{1, 1, 3}, scores)
}

func TestFilterTopKScenario(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 3, 4, 5}
	FilterTopKTopP(scores, 3, 0)

	assert.Equal(t, []int{2, 3, 4}, finiteIndices(scores))
	assert.Equal(t, float32(3), scores[2])
	assert.Equal(t, float32(4), scores[3])
	assert.Equal(t, float32(5), scores[4])
}

func TestFilterTopKKeepsExactlyKLargest(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(40)
		orig := rng.Perm(n)
		scores := make([]float32, n)
		for i, v := range orig {
			scores[i] = float32(v) - float32(n)/2
		}
		k := 1 + rng.Intn(n)

		FilterTopKTopP(scores, k, 0)

		kept := finiteIndices(scores)
		require.Len(t, kept, k, "trial %d", trial)
		for _, idx := range kept {
			// Values are a permutation of 0..n-1, so the k largest are >= n-k.
			assert.GreaterOrEqual(t, orig[idx], n-k)
		}
	}
}

func TestFilterTopKLargerThanVocab(t *testing.T) {
	t.Parallel()

	scores := []float32{3, 1, 2}
	FilterTopKTopP(scores, 10, 0)
	assert.Equal(t, []float32{3, 1, 2}, scores)
}

func TestFilterTopKKeepsTiesAtThreshold(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 2, 0}
	FilterTopKTopP(scores, 2, 0)
	assert.Equal(t, []int{1, 2}, finiteIndices(scores))

	scores = []float32{3, 2, 2, 0}
	FilterTopKTopP(scores, 2, 0)
	assert.Equal(t, []int{0, 1, 2}, finiteIndices(scores))
}

func TestFilterTopP(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 3, 4, 5}
	FilterTopKTopP(scores, 0, 0.8)
	// probs sorted: .636 .234 ... ; cumulative crosses 0.8 at the second entry.
	assert.Equal(t, []int{3, 4}, finiteIndices(scores))
}

func TestFilterTopPAlwaysKeepsTopEntry(t *testing.T) {
	t.Parallel()

	scores := []float32{0, 10, 0, 0, 0}
	FilterTopKTopP(scores, 0, 0.5)
	assert.Equal(t, []int{1}, finiteIndices(scores))

	scores = []float32{0, 0, 30}
	FilterTopKTopP(scores, 0, 0.0001)
	assert.Equal(t, []int{2}, finiteIndices(scores))
}

func TestFilterTopPOneKeepsEverything(t *testing.T) {
	t.Parallel()

	scores := []float32{0.1, 0.2, 0.3}
	FilterTopKTopP(scores, 0, 1)
	assert.Len(t, finiteIndices(scores), 3)
}

func TestFilterTopKThenTopP(t *testing.T) {
	t.Parallel()

	scores := []float32{1, 2, 3, 4, 5}
	FilterTopKTopP(scores, 4, 0.9)
	kept := finiteIndices(scores)
	assert.NotContains(t, kept, 0)
	assert.Contains(t, kept, 4)
	assert.Len(t, scores, 5)
}

func TestFilterDisabledIsIdentity(t *testing.T) {
	t.Parallel()

	orig := []float32{1.5, -2, float32(math.Inf(-1)), 0, 1e-7}
	scores := append([]float32(nil), orig...)
	FilterTopKTopP(scores, 0, 0)
	for i := range orig {
		assert.Equal(t, math.Float32bits(orig[i]), math.Float32bits(scores[i]), "index %d", i)
	}

	FilterTopKTopP(scores, 0, -1)
	for i := range orig {
		assert.Equal(t, math.Float32bits(orig[i]), math.Float32bits(scores[i]), "index %d", i)
	}
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	probs := Softmax([]float32{0, float32(math.Log(3)), NegInf}, nil)
	assert.InDelta(t, 0.25, probs[0], 1e-6)
	assert.InDelta(t, 0.75, probs[1], 1e-6)
	assert.Zero(t, probs[2])

	all := Softmax([]float32{NegInf, NegInf}, nil)
	assert.Equal(t, []float64{0, 0}, all)
}

func TestSamplerDeterminism(t *testing.T) {
	t.Parallel()

	scores := []float32{0, 1, 2, 3, 4, 5}
	s1 := NewSeededSampler(42)
	s2 := NewSeededSampler(42)
	for i := 0; i < 20; i++ {
		require.Equal(t, s1.Sample(scores), s2.Sample(scores), "draw %d", i)
	}
}

func TestSamplerSingleFiniteEntry(t *testing.T) {
	t.Parallel()

	scores := []float32{NegInf, NegInf, -3, NegInf}
	s := NewSampler(rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		require.Equal(t, 2, s.Sample(scores))
	}
}

func TestSamplerNeverReturnsFilteredEntry(t *testing.T) {
	t.Parallel()

	scores := []float32{NegInf, 1, NegInf, 1.5, NegInf}
	s := NewSeededSampler(9)
	for i := 0; i < 1000; i++ {
		id := s.Sample(scores)
		require.False(t, isNegInf(scores[id]), "sampled filtered id %d", id)
	}
}

func TestSamplerFollowsDistribution(t *testing.T) {
	t.Parallel()

	scores := []float32{0, float32(math.Log(3))}
	s := NewSeededSampler(7)
	const draws = 20000
	ones := 0
	for i := 0; i < draws; i++ {
		if s.Sample(scores) == 1 {
			ones++
		}
	}
	assert.InDelta(t, 0.75, float64(ones)/draws, 0.02)
}

func TestSamplerDegenerateVector(t *testing.T) {
	t.Parallel()

	s := NewSeededSampler(1)
	assert.Equal(t, 0, s.Sample([]float32{NegInf, NegInf, NegInf}))
}

func TestArgmax(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, Argmax([]float32{-1, 5, 3, 7, 2}))
	assert.Equal(t, 1, Argmax([]float32{0, 4, 4}))
	assert.Panics(t, func() { Argmax(nil) })
}

package logits

import (
	"math"
	"slices"
	"sort"
)

// FilterTopKTopP truncates scores in place, top-k first and then top-p.
//
// topK == 0 skips the top-k stage; topP <= 0 skips the top-p stage. Removed
// entries are set to -Inf so the vector keeps its length.
func FilterTopKTopP(scores []float32, topK int, topP float32) {
	if len(scores) == 0 {
		return
	}
	if topK > 0 {
		filterTopK(scores, min(topK, len(scores)))
	}
	if topP > 0 {
		filterTopP(scores, topP)
	}
}

// filterTopK removes every entry strictly below the k-th largest value.
// Ties at the threshold are all kept.
func filterTopK(scores []float32, k int) {
	sorted := slices.Clone(scores)
	slices.SortFunc(sorted, func(a, b float32) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		default:
			return 0
		}
	})
	threshold := sorted[k-1]
	for i, v := range scores {
		if v < threshold {
			scores[i] = NegInf
		}
	}
}

// filterTopP keeps the smallest prefix of the score-sorted vector whose
// cumulative probability exceeds p. The mask is shifted one slot to the
// right, so the entry that crosses p survives and the top entry can never be
// removed.
func filterTopP(scores []float32, p float32) {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	probs := Softmax(scores, nil)
	limit := float64(p)

	var cum float64
	remove := false
	for _, idx := range order {
		if remove {
			scores[idx] = NegInf
			continue
		}
		cum += probs[idx]
		if cum > limit {
			remove = true
		}
	}
}

// Softmax writes the normalised probabilities of scores into dst (grown as
// needed) and returns it. -Inf entries get probability 0. If no entry is
// finite the returned slice is all zeros.
func Softmax(scores []float32, dst []float64) []float64 {
	if cap(dst) < len(scores) {
		dst = make([]float64, len(scores))
	}
	dst = dst[:len(scores)]

	maxv := math.Inf(-1)
	for _, v := range scores {
		if f := float64(v); f > maxv {
			maxv = f
		}
	}
	if math.IsInf(maxv, -1) || math.IsNaN(maxv) {
		clear(dst)
		return dst
	}

	var sum float64
	for i, v := range scores {
		f := float64(v)
		if math.IsInf(f, -1) || math.IsNaN(f) {
			dst[i] = 0
			continue
		}
		e := math.Exp(f - maxv)
		dst[i] = e
		sum += e
	}
	if sum == 0 {
		return dst
	}
	inv := 1 / sum
	for i := range dst {
		dst[i] *= inv
	}
	return dst
}

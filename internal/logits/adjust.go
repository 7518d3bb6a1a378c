// Package logits holds the per-vector math applied to next-token scores:
// repetition penalty, top-k/top-p truncation and weighted sampling.
//
// Every function here works on a single score vector in place. Callers own
// the vector for the duration of one decode step.
package logits

import "math"

// NegInf is the value written into filtered-out entries.
var NegInf = float32(math.Inf(-1))

// AdjustScores applies the repetition penalty and suppresses the unknown
// token.
//
// Each distinct id found in history has its score divided by penalty exactly
// once, however many times it occurs. The division is applied to the raw
// value whatever its sign, so a negative score moves towards zero. Ids outside
// the vector are ignored. scores[unkID] is always set to -Inf.
func AdjustScores(scores []float32, history []int, penalty float32, unkID int) {
	if penalty != 1 && len(history) > 0 {
		seen := make(map[int]struct{}, len(history))
		for _, id := range history {
			if id < 0 || id >= len(scores) {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			scores[id] /= penalty
		}
	}
	if unkID >= 0 && unkID < len(scores) {
		scores[unkID] = NegInf
	}
}

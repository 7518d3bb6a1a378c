package decode

import "slices"

// SequenceState is one candidate in a batch.
type SequenceState struct {
	Slot int
	// Tokens is the generated suffix, prompt excluded. Append-only.
	Tokens []int
	// Completed is set once the separator has been sampled and never cleared.
	Completed bool
	// CompletedAt is the step that completed the sequence, -1 while live.
	CompletedAt int
}

// Batch owns the per-slot decode state for one generation request.
//
// A Batch must only be mutated by a single Decoder.Run; it is not safe for
// concurrent use.
type Batch struct {
	prompt         []int
	promptSegments []int
	titleSegment   int
	seqs           []*SequenceState
	step           int
}

// NewBatch seeds size sequences with the same encoded prompt. Prompt tokens
// are tagged with contentSegment; generated tokens are tagged with
// titleSegment.
func NewBatch(prompt []int, contentSegment, titleSegment, size int) *Batch {
	segs := make([]int, len(prompt))
	for i := range segs {
		segs[i] = contentSegment
	}
	seqs := make([]*SequenceState, size)
	for i := range seqs {
		seqs[i] = &SequenceState{Slot: i, CompletedAt: -1}
	}
	return &Batch{
		prompt:         slices.Clone(prompt),
		promptSegments: segs,
		titleSegment:   titleSegment,
		seqs:           seqs,
	}
}

func (b *Batch) Size() int { return len(b.seqs) }

// Step is the number of completed decode steps.
func (b *Batch) Step() int { return b.step }

func (b *Batch) Prompt() []int { return b.prompt }

func (b *Batch) Sequence(slot int) *SequenceState { return b.seqs[slot] }

func (b *Batch) Sequences() []*SequenceState { return b.seqs }

// Live returns the slots that have not completed, in slot order.
func (b *Batch) Live() []int {
	live := make([]int, 0, len(b.seqs))
	for _, s := range b.seqs {
		if !s.Completed {
			live = append(live, s.Slot)
		}
	}
	return live
}

// AllCompleted reports whether every sequence has sampled the separator.
func (b *Batch) AllCompleted() bool {
	for _, s := range b.seqs {
		if !s.Completed {
			return false
		}
	}
	return true
}

// History returns the full scorer input for slot: the prompt followed by the
// generated suffix, and the matching segment markers.
func (b *Batch) History(slot int) (ids, segments []int) {
	s := b.seqs[slot]
	n := len(b.prompt) + len(s.Tokens)
	ids = make([]int, 0, n)
	ids = append(ids, b.prompt...)
	ids = append(ids, s.Tokens...)

	segments = make([]int, 0, n)
	segments = append(segments, b.promptSegments...)
	for range s.Tokens {
		segments = append(segments, b.titleSegment)
	}
	return ids, segments
}

func (b *Batch) append(slot, id int) {
	s := b.seqs[slot]
	s.Tokens = append(s.Tokens, id)
}

// complete marks slot as finished at the current step. It reports whether
// the slot changed state.
func (b *Batch) complete(slot int) bool {
	s := b.seqs[slot]
	if s.Completed {
		return false
	}
	s.Completed = true
	s.CompletedAt = b.step + 1
	return true
}

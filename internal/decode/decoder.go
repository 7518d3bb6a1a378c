// Package decode drives batched autoregressive sampling: it asks a Scorer for
// next-token scores, shapes them with the logits package, samples one token
// per candidate and tracks per-candidate completion until every candidate has
// emitted the separator or the step budget runs out.
package decode

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/headliner/internal/logits"
)

// Scorer produces next-token scores for a batch of histories.
//
// ids[i] and segments[i] have equal length. The returned slice must hold one
// vector per row, each as long as the vocabulary. The decoder takes ownership
// of the returned vectors and modifies them in place.
type Scorer interface {
	Score(ctx context.Context, ids, segments [][]int) ([][]float32, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, ids, segments [][]int) ([][]float32, error)

func (f ScorerFunc) Score(ctx context.Context, ids, segments [][]int) ([][]float32, error) {
	return f(ctx, ids, segments)
}

// Outcome is the terminal state of a decode run.
type Outcome int

const (
	// OutcomeAllComplete means every sequence sampled the separator.
	OutcomeAllComplete Outcome = iota + 1
	// OutcomeMaxLenReached means the step budget ran out first.
	OutcomeMaxLenReached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllComplete:
		return "all_complete"
	case OutcomeMaxLenReached:
		return "max_len_reached"
	default:
		return "running"
	}
}

// Step describes one finished decode step.
type Step struct {
	Number int
	// Slots lists the scored slots; Sampled[i] is the id drawn for Slots[i].
	Slots   []int
	Sampled []int
	// Completed lists slots that sampled the separator for the first time.
	Completed []int
}

// StepFunc observes finished steps. It runs on the decode goroutine.
type StepFunc func(Step)

// Result is the outcome of a successful run.
type Result struct {
	Outcome Outcome
	Steps   int
	Batch   *Batch
}

// Decoder runs the step loop for one request. It holds a sampler with its
// own random source, so a Decoder must not be shared between concurrent runs.
type Decoder struct {
	cfg     Config
	scorer  Scorer
	sampler *logits.Sampler
	unkID   int
	sepID   int
	onStep  StepFunc
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithSampler overrides the sampler built from Config.Seed.
func WithSampler(s *logits.Sampler) Option {
	return func(d *Decoder) {
		d.sampler = s
	}
}

// WithStepFunc registers an observer called after every step.
func WithStepFunc(fn StepFunc) Option {
	return func(d *Decoder) {
		d.onStep = fn
	}
}

// NewDecoder validates cfg and returns a decoder. unkID is never sampled;
// sepID completes a sequence.
func NewDecoder(scorer Scorer, cfg Config, unkID, sepID int, opts ...Option) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("decode: scorer is required")
	}
	d := &Decoder{
		cfg:    cfg,
		scorer: scorer,
		unkID:  unkID,
		sepID:  sepID,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sampler == nil {
		d.sampler = logits.NewSeededSampler(cfg.Seed)
	}
	return d, nil
}

// Config returns the validated configuration.
func (d *Decoder) Config() Config { return d.cfg }

// Run decodes until every sequence in b is complete or GenerateMaxLen steps
// have run. A scorer failure aborts the run with a *ScorerError and no
// partial result. ctx is checked once per step, before the scorer call.
func (d *Decoder) Run(ctx context.Context, b *Batch) (Result, error) {
	if b == nil || b.Size() == 0 {
		return Result{}, fmt.Errorf("decode: empty batch")
	}
	for b.step < d.cfg.GenerateMaxLen {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("decode step %d: %w", b.step, err)
		}

		slots := d.scoredSlots(b)
		ids := make([][]int, len(slots))
		segs := make([][]int, len(slots))
		for i, slot := range slots {
			ids[i], segs[i] = b.History(slot)
		}

		scores, err := d.scorer.Score(ctx, ids, segs)
		if err != nil {
			return Result{}, &ScorerError{Step: b.step, Err: err}
		}
		if err := d.checkScores(scores, len(slots)); err != nil {
			return Result{}, &ScorerError{Step: b.step, Err: err}
		}

		if err := d.shape(ctx, b, slots, scores); err != nil {
			return Result{}, fmt.Errorf("decode step %d: %w", b.step, err)
		}

		step := Step{Number: b.step + 1, Slots: slots, Sampled: make([]int, len(slots))}
		for i, slot := range slots {
			id := d.pick(scores[i])
			step.Sampled[i] = id
			b.append(slot, id)
			if id == d.sepID && b.complete(slot) {
				step.Completed = append(step.Completed, slot)
			}
		}
		b.step++

		if d.onStep != nil {
			d.onStep(step)
		}
		if b.AllCompleted() {
			return Result{Outcome: OutcomeAllComplete, Steps: b.step, Batch: b}, nil
		}
	}
	return Result{Outcome: OutcomeMaxLenReached, Steps: b.step, Batch: b}, nil
}

func (d *Decoder) scoredSlots(b *Batch) []int {
	if d.cfg.Policy == PolicyCompact {
		return b.Live()
	}
	slots := make([]int, b.Size())
	for i := range slots {
		slots[i] = i
	}
	return slots
}

func (d *Decoder) checkScores(scores [][]float32, rows int) error {
	if len(scores) != rows {
		return fmt.Errorf("expected %d score vectors, got %d", rows, len(scores))
	}
	width := len(scores[0])
	if width == 0 {
		return fmt.Errorf("empty score vector")
	}
	for i, row := range scores {
		if len(row) != width {
			return fmt.Errorf("score vector %d has length %d, want %d", i, len(row), width)
		}
	}
	if d.sepID >= width || d.unkID >= width {
		return fmt.Errorf("score vector length %d does not cover special ids (unk %d, sep %d)", width, d.unkID, d.sepID)
	}
	return nil
}

// shape applies the repetition penalty, unk suppression and top-k/top-p
// truncation to every scored vector. Rows are independent, so they are
// spread over up to Parallelism goroutines.
func (d *Decoder) shape(ctx context.Context, b *Batch, slots []int, scores [][]float32) error {
	one := func(i int) {
		logits.AdjustScores(scores[i], b.seqs[slots[i]].Tokens, d.cfg.RepetitionPenalty, d.unkID)
		logits.FilterTopKTopP(scores[i], d.cfg.TopK, d.cfg.TopP)
	}

	workers := d.cfg.Parallelism
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 1 || len(slots) <= 1 {
		for i := range slots {
			one(i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range slots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			one(i)
			return nil
		})
	}
	return g.Wait()
}

func (d *Decoder) pick(scores []float32) int {
	if d.cfg.Greedy {
		return logits.Argmax(scores)
	}
	return d.sampler.Sample(scores)
}

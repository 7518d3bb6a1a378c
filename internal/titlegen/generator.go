// Package titlegen turns article text into candidate titles: it tokenizes and
// frames the content, runs one decode batch, and assembles the results.
package titlegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/headliner/internal/decode"
	"github.com/samcharles93/headliner/internal/logger"
	"github.com/samcharles93/headliner/internal/vocab"
)

// zeroWidthSpace appears in scraped article text and never in the vocabulary.
const zeroWidthSpace = "\u200b"

// Result is a finished generation.
type Result struct {
	Titles  []string
	Outcome decode.Outcome
	Steps   int
	// PromptTokens counts content tokens fed to the model after truncation.
	PromptTokens int
	Truncated    bool
}

// Generator produces titles. It is safe for concurrent use when its scorer is.
type Generator struct {
	vocab   *vocab.Vocab
	scorer  decode.Scorer
	cfg     decode.Config
	log     logger.Logger
	metrics *Metrics
}

// Option configures a Generator.
type Option func(*Generator)

func WithLogger(l logger.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithMetrics records every run into m.
func WithMetrics(m *Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// New returns a Generator with cfg as the default decode configuration.
func New(v *vocab.Vocab, s decode.Scorer, cfg decode.Config, opts ...Option) (*Generator, error) {
	if v == nil {
		return nil, errors.New("titlegen: vocabulary is required")
	}
	if s == nil {
		return nil, errors.New("titlegen: scorer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{vocab: v, scorer: s, cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Default()
	}
	return g, nil
}

// Config returns the default decode configuration.
func (g *Generator) Config() decode.Config { return g.cfg }

// Generate returns numTitles candidate titles for content using the default
// configuration. numTitles <= 0 uses the configured batch size.
func (g *Generator) Generate(ctx context.Context, content string, numTitles int) ([]string, error) {
	cfg := g.cfg
	if numTitles > 0 {
		cfg.BatchSize = numTitles
	}
	res, err := g.GenerateWith(ctx, content, cfg)
	if err != nil {
		return nil, err
	}
	return res.Titles, nil
}

// GenerateWith runs one decode batch with cfg.
func (g *Generator) GenerateWith(ctx context.Context, content string, cfg decode.Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	log := g.log.With("request_id", requestID(ctx), "batch_size", cfg.BatchSize)

	prompt, kept, truncated := g.Prompt(content, cfg)
	if truncated {
		g.metrics.truncated()
		log.Debug("prompt truncated", "kept", kept, "budget", cfg.PromptBudget())
	}

	sp := g.vocab.Specials()
	dec, err := decode.NewDecoder(g.scorer, cfg, sp.Unknown, sp.Separator,
		decode.WithStepFunc(func(s decode.Step) {
			log.Debug("decode step", "step", s.Number, "scored", len(s.Slots), "completed", s.Completed)
		}))
	if err != nil {
		return Result{}, err
	}

	batch := decode.NewBatch(prompt, sp.Content, sp.Title, cfg.BatchSize)
	out, err := dec.Run(ctx, batch)
	elapsed := time.Since(start)
	if err != nil {
		g.metrics.failed(err)
		log.Warn("title generation failed", "error", err, "duration", elapsed)
		return Result{}, fmt.Errorf("titlegen: %w", err)
	}

	res := Result{
		Titles:       decode.Assemble(out.Batch, g.vocab),
		Outcome:      out.Outcome,
		Steps:        out.Steps,
		PromptTokens: kept,
		Truncated:    truncated,
	}
	g.metrics.observe(res, elapsed)
	log.Info("titles generated", "steps", res.Steps, "outcome", res.Outcome.String(), "prompt_tokens", kept, "duration", elapsed)
	return res, nil
}

// Prompt frames content as [CLS] content [SEP], keeping at most
// cfg.PromptBudget() content tokens. It reports how many content tokens were
// kept and whether any were dropped.
func (g *Generator) Prompt(content string, cfg decode.Config) (ids []int, kept int, truncated bool) {
	content = strings.ReplaceAll(content, zeroWidthSpace, "")
	tokens := g.vocab.Encode(content)
	if budget := cfg.PromptBudget(); len(tokens) > budget {
		tokens = tokens[:budget]
		truncated = true
	}
	sp := g.vocab.Specials()
	ids = make([]int, 0, len(tokens)+2)
	ids = append(ids, sp.Start)
	ids = append(ids, tokens...)
	ids = append(ids, sp.Separator)
	return ids, len(tokens), truncated
}

type requestIDKey struct{}

// WithRequestID tags ctx with an id that appears on every log line of the run.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

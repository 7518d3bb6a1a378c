package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/headliner/internal/decode"
	"github.com/samcharles93/headliner/internal/logger"
	"github.com/samcharles93/headliner/internal/scorer"
	"github.com/samcharles93/headliner/internal/titlegen"
	"github.com/samcharles93/headliner/internal/vocab"
)

// fileConfig is loaded once by the root Before hook.
var fileConfig Config

func loadVocab() (*vocab.Vocab, error) {
	path := strings.TrimSpace(vocabPath)
	if path == "" {
		return nil, fmt.Errorf("no vocabulary: pass --vocab or set %s", envVocab)
	}
	return vocab.Load(path)
}

func buildScorer(v *vocab.Vocab) (decode.Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(scorerKind)) {
	case "remote", "":
		return scorer.NewRemote(scorer.RemoteOptions{URL: scorerURL, Timeout: scorerTimeout})
	case "toy":
		var opts []scorer.ToyOption
		if toySepBias != 0 {
			opts = append(opts, scorer.WithBias(v.SeparatorID(), float32(toySepBias)))
		}
		return scorer.NewToy(v.Size(), int(toyHidden), toySeed, opts...)
	default:
		return nil, fmt.Errorf("unknown scorer %q (want remote or toy)", scorerKind)
	}
}

// buildGenerator applies config file defaults to cmd's engine and decode
// flags and wires a Generator from them.
func buildGenerator(ctx context.Context, cmd *cli.Command, opts ...titlegen.Option) (*titlegen.Generator, error) {
	if err := applyEngineConfig(cmd, fileConfig); err != nil {
		return nil, err
	}
	applyDecodeConfig(cmd, fileConfig)

	cfg, err := decodeConfig()
	if err != nil {
		return nil, err
	}
	v, err := loadVocab()
	if err != nil {
		return nil, err
	}
	s, err := buildScorer(v)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Debug("engine ready", "vocab", vocabPath, "vocab_size", v.Size(), "scorer", scorerKind, "batch_size", cfg.BatchSize)
	opts = append([]titlegen.Option{titlegen.WithLogger(log)}, opts...)
	return titlegen.New(v, s, cfg, opts...)
}

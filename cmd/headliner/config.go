package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the headliner configuration file
// (~/.config/headliner/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	Vocab string `yaml:"vocab"`

	Scorer struct {
		Kind    string `yaml:"kind"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"scorer"`

	// Decode defaults
	GenerateMaxLen    *int64   `yaml:"generate_max_len"`
	MaxLen            *int64   `yaml:"max_len"`
	TopK              *int64   `yaml:"top_k"`
	TopP              *float64 `yaml:"top_p"`
	RepetitionPenalty *float64 `yaml:"repetition_penalty"`
	Titles            *int64   `yaml:"titles"`
	Policy            string   `yaml:"policy"`
	Parallelism       *int64   `yaml:"parallelism"`
	Seed              *int64   `yaml:"seed"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	MaxTitles     *int64   `yaml:"max_titles"`
	MaxConcurrent *int64   `yaml:"max_concurrent"`
	RateLimit     *float64 `yaml:"rate_limit"`
}

func configPath(override string) string {
	if override != "" {
		return override
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "headliner", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config; a
// malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// anySet reports whether any of the named flags was given on the command line.
func anySet(c *cli.Command, names ...string) bool {
	for _, n := range names {
		if c.IsSet(n) {
			return true
		}
	}
	return false
}

// applyLoggingConfig applies file defaults for logging flags that were not
// explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyEngineConfig applies file defaults for vocabulary and scorer flags.
func applyEngineConfig(c *cli.Command, cfg Config) error {
	if cfg.Vocab != "" && !c.IsSet("vocab") {
		vocabPath = cfg.Vocab
	}
	if cfg.Scorer.Kind != "" && !c.IsSet("scorer") {
		scorerKind = cfg.Scorer.Kind
	}
	if cfg.Scorer.URL != "" && !c.IsSet("scorer-url") {
		scorerURL = cfg.Scorer.URL
	}
	if cfg.Scorer.Timeout != "" && !c.IsSet("scorer-timeout") {
		d, err := time.ParseDuration(cfg.Scorer.Timeout)
		if err != nil {
			return fmt.Errorf("config scorer.timeout: %w", err)
		}
		scorerTimeout = d
	}
	return nil
}

// applyDecodeConfig applies file defaults for decode flags.
func applyDecodeConfig(c *cli.Command, cfg Config) {
	if cfg.GenerateMaxLen != nil && !anySet(c, "generate-max-len", "generate_max_len") {
		generateMaxLen = *cfg.GenerateMaxLen
	}
	if cfg.MaxLen != nil && !anySet(c, "max-len", "max_len") {
		maxLen = *cfg.MaxLen
	}
	if cfg.TopK != nil && !anySet(c, "top-k", "top_k", "topk") {
		topK = *cfg.TopK
	}
	if cfg.TopP != nil && !anySet(c, "top-p", "top_p", "topp") {
		topP = *cfg.TopP
	}
	if cfg.RepetitionPenalty != nil && !anySet(c, "repetition-penalty", "repetition_penalty") {
		repetitionPenalty = *cfg.RepetitionPenalty
	}
	if cfg.Titles != nil && !anySet(c, "titles", "n", "batch-size", "batch_size") {
		numTitles = *cfg.Titles
	}
	if cfg.Policy != "" && !c.IsSet("policy") {
		batchPolicy = cfg.Policy
	}
	if cfg.Parallelism != nil && !c.IsSet("parallelism") {
		parallelism = *cfg.Parallelism
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
}

// applyServeConfig applies file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, opts *serveOptions) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		opts.addr = cfg.ServerAddress
	}
	if cfg.MaxTitles != nil && !c.IsSet("max-titles") {
		opts.maxTitles = *cfg.MaxTitles
	}
	if cfg.MaxConcurrent != nil && !c.IsSet("max-concurrent") {
		opts.maxConcurrent = *cfg.MaxConcurrent
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		opts.rateLimit = *cfg.RateLimit
	}
}

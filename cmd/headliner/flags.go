package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/headliner/internal/decode"
)

const envVocab = "HEADLINER_VOCAB"

var (
	vocabPath     string
	scorerKind    string
	scorerURL     string
	scorerTimeout time.Duration
	toyHidden     int64
	toySeed       int64
	toySepBias    float64

	generateMaxLen    int64
	maxLen            int64
	topK              int64
	topP              float64
	repetitionPenalty float64
	numTitles         int64
	batchPolicy       string
	parallelism       int64
	seed              int64
	greedy            bool

	configFile string
	logLevel   string
	logFormat  string
	debug      bool
)

func engineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vocab",
			Aliases:     []string{"v"},
			Usage:       "path to vocab.txt or tokenizer.json",
			Sources:     cli.EnvVars(envVocab),
			Destination: &vocabPath,
		},
		&cli.StringFlag{
			Name:        "scorer",
			Usage:       "scorer backend (remote, toy)",
			Value:       "remote",
			Destination: &scorerKind,
		},
		&cli.StringFlag{
			Name:        "scorer-url",
			Usage:       "model server scoring endpoint for --scorer=remote",
			Value:       "http://127.0.0.1:8500/v1/score",
			Destination: &scorerURL,
		},
		&cli.DurationFlag{
			Name:        "scorer-timeout",
			Usage:       "timeout for one scoring call",
			Value:       60 * time.Second,
			Destination: &scorerTimeout,
		},
		&cli.Int64Flag{
			Name:        "toy-hidden",
			Usage:       "hidden size of the toy scorer",
			Value:       32,
			Destination: &toyHidden,
		},
		&cli.Int64Flag{
			Name:        "toy-seed",
			Usage:       "weight seed of the toy scorer",
			Value:       1,
			Destination: &toySeed,
		},
		&cli.FloatFlag{
			Name:        "toy-sep-bias",
			Usage:       "score added to the separator by the toy scorer",
			Destination: &toySepBias,
		},
	}
}

func decodeFlags() []cli.Flag {
	def := decode.DefaultConfig()
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "generate-max-len",
			Aliases:     []string{"generate_max_len"},
			Usage:       "maximum tokens generated per title",
			Value:       int64(def.GenerateMaxLen),
			Destination: &generateMaxLen,
		},
		&cli.Int64Flag{
			Name:        "max-len",
			Aliases:     []string{"max_len"},
			Usage:       "prompt plus generation token budget",
			Value:       int64(def.MaxLen),
			Destination: &maxLen,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Aliases:     []string{"top_k", "topk"},
			Usage:       "keep the k highest scoring tokens (0 disables)",
			Value:       int64(def.TopK),
			Destination: &topK,
		},
		&cli.FloatFlag{
			Name:        "top-p",
			Aliases:     []string{"top_p", "topp"},
			Usage:       "nucleus sampling threshold (0 disables)",
			Value:       float64(def.TopP),
			Destination: &topP,
		},
		&cli.FloatFlag{
			Name:        "repetition-penalty",
			Aliases:     []string{"repetition_penalty"},
			Usage:       "divide scores of already generated tokens (1 disables)",
			Value:       float64(def.RepetitionPenalty),
			Destination: &repetitionPenalty,
		},
		&cli.Int64Flag{
			Name:        "titles",
			Aliases:     []string{"n", "batch-size", "batch_size"},
			Usage:       "number of candidate titles per text",
			Value:       int64(def.BatchSize),
			Destination: &numTitles,
		},
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "batch policy (uniform, compact)",
			Value:       def.Policy.String(),
			Destination: &batchPolicy,
		},
		&cli.Int64Flag{
			Name:        "parallelism",
			Usage:       "goroutines filtering scores per step (0 = GOMAXPROCS)",
			Destination: &parallelism,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "sampler seed (-1 = time based)",
			Value:       def.Seed,
			Destination: &seed,
		},
		&cli.BoolFlag{
			Name:        "greedy",
			Usage:       "take the highest score instead of sampling",
			Destination: &greedy,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/headliner/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// decodeConfig assembles the decode configuration from flag values.
func decodeConfig() (decode.Config, error) {
	policy, err := decode.ParseBatchPolicy(batchPolicy)
	if err != nil {
		return decode.Config{}, err
	}
	cfg := decode.Config{
		GenerateMaxLen:    int(generateMaxLen),
		RepetitionPenalty: float32(repetitionPenalty),
		TopK:              int(topK),
		TopP:              float32(topP),
		BatchSize:         int(numTitles),
		MaxLen:            int(maxLen),
		Policy:            policy,
		Parallelism:       int(parallelism),
		Seed:              seed,
		Greedy:            greedy,
	}
	return cfg, cfg.Validate()
}

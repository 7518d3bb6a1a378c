package decode

import (
	"fmt"
	"math"
	"strings"
)

// BatchPolicy selects which sequences are fed to the scorer each step.
type BatchPolicy int

const (
	// PolicyUniform scores every slot on every step, completed or not, so the
	// scorer always sees a batch of the same height. Tokens sampled for
	// completed slots are discarded during assembly.
	PolicyUniform BatchPolicy = iota
	// PolicyCompact scores only the slots that are still live.
	PolicyCompact
)

func (p BatchPolicy) String() string {
	switch p {
	case PolicyUniform:
		return "uniform"
	case PolicyCompact:
		return "compact"
	default:
		return fmt.Sprintf("BatchPolicy(%d)", int(p))
	}
}

// ParseBatchPolicy maps "uniform" or "compact" to a policy. The empty string
// selects PolicyUniform.
func ParseBatchPolicy(s string) (BatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "uniform":
		return PolicyUniform, nil
	case "compact":
		return PolicyCompact, nil
	default:
		return 0, &ConfigError{Field: "policy", Msg: fmt.Sprintf("unknown batch policy %q", s)}
	}
}

// Config holds the parameters of one decode run.
type Config struct {
	// GenerateMaxLen bounds the number of decode steps.
	GenerateMaxLen int
	// RepetitionPenalty divides the score of tokens already generated. 1 disables it.
	RepetitionPenalty float32
	// TopK keeps the k highest scores. 0 disables it.
	TopK int
	// TopP keeps the nucleus whose cumulative probability exceeds p. <= 0 disables it.
	TopP float32
	// BatchSize is the number of candidates sampled together.
	BatchSize int
	// MaxLen is the total prompt plus generation budget used to truncate prompts.
	MaxLen int

	Policy BatchPolicy
	// Parallelism bounds the goroutines filtering score vectors within a
	// step. 0 means GOMAXPROCS, 1 runs inline.
	Parallelism int
	// Seed for the sampler. Negative picks a time-based seed.
	Seed int64
	// Greedy replaces sampling with argmax. Useful when debugging a scorer.
	Greedy bool
}

// DefaultConfig returns the defaults the title model was tuned with.
func DefaultConfig() Config {
	return Config{
		GenerateMaxLen:    32,
		RepetitionPenalty: 1.2,
		TopK:              5,
		TopP:              0.95,
		BatchSize:         3,
		MaxLen:            512,
		Policy:            PolicyUniform,
		Parallelism:       0,
		Seed:              -1,
	}
}

// PromptBudget is the number of content tokens kept from a prompt: MaxLen
// minus the generation budget and the three framing tokens.
func (c Config) PromptBudget() int {
	return c.MaxLen - 3 - c.GenerateMaxLen
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.GenerateMaxLen <= 0:
		return &ConfigError{Field: "generate_max_len", Msg: "must be positive"}
	case c.BatchSize <= 0:
		return &ConfigError{Field: "batch_size", Msg: "must be positive"}
	case c.MaxLen <= 0:
		return &ConfigError{Field: "max_len", Msg: "must be positive"}
	case c.PromptBudget() < 0:
		return &ConfigError{Field: "max_len", Msg: fmt.Sprintf("must be at least generate_max_len+3 (%d)", c.GenerateMaxLen+3)}
	case c.TopK < 0:
		return &ConfigError{Field: "top_k", Msg: "must not be negative"}
	case math.IsNaN(float64(c.TopP)) || c.TopP < 0 || c.TopP > 1:
		return &ConfigError{Field: "top_p", Msg: "must be within [0, 1]"}
	case math.IsNaN(float64(c.RepetitionPenalty)) || math.IsInf(float64(c.RepetitionPenalty), 0) || c.RepetitionPenalty <= 0:
		return &ConfigError{Field: "repetition_penalty", Msg: "must be a positive number"}
	case c.Parallelism < 0:
		return &ConfigError{Field: "parallelism", Msg: "must not be negative"}
	case c.Policy != PolicyUniform && c.Policy != PolicyCompact:
		return &ConfigError{Field: "policy", Msg: fmt.Sprintf("unknown batch policy %d", int(c.Policy))}
	}
	return nil
}

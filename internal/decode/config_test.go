package decode

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
	if got := cfg.PromptBudget(); got != 512-3-32 {
		t.Fatalf("prompt budget: got %d want %d", got, 512-3-32)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero steps", func(c *Config) { c.GenerateMaxLen = 0 }, "generate_max_len"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"zero max len", func(c *Config) { c.MaxLen = 0 }, "max_len"},
		{"max len below budget", func(c *Config) { c.MaxLen = 10; c.GenerateMaxLen = 8 }, "max_len"},
		{"negative top k", func(c *Config) { c.TopK = -1 }, "top_k"},
		{"top p above one", func(c *Config) { c.TopP = 1.01 }, "top_p"},
		{"negative top p", func(c *Config) { c.TopP = -0.5 }, "top_p"},
		{"nan top p", func(c *Config) { c.TopP = float32(math.NaN()) }, "top_p"},
		{"zero penalty", func(c *Config) { c.RepetitionPenalty = 0 }, "repetition_penalty"},
		{"negative parallelism", func(c *Config) { c.Parallelism = -2 }, "parallelism"},
		{"unknown policy", func(c *Config) { c.Policy = BatchPolicy(7) }, "policy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mut(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) || ce.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestConfigBoundaryValuesAccepted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.TopK = 0
	cfg.TopP = 0
	cfg.RepetitionPenalty = 1
	cfg.MaxLen = cfg.GenerateMaxLen + 3
	if err := cfg.Validate(); err != nil {
		t.Fatalf("boundary config rejected: %v", err)
	}
	cfg.TopP = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("top_p=1 rejected: %v", err)
	}
}

func TestParseBatchPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]BatchPolicy{"": PolicyUniform, "uniform": PolicyUniform, " Compact ": PolicyCompact} {
		got, err := ParseBatchPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseBatchPolicy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseBatchPolicy("shrink"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected invalid config error, got %v", err)
	}
	if PolicyCompact.String() != "compact" || PolicyUniform.String() != "uniform" {
		t.Errorf("unexpected policy names %q %q", PolicyUniform, PolicyCompact)
	}
}

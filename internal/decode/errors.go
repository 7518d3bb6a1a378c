package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid decode config")
	// ErrScorer is matched by every *ScorerError.
	ErrScorer = errors.New("scorer failed")
)

// ConfigError reports a decode parameter rejected before the loop starts.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// ScorerError wraps a scorer failure, or a malformed scorer response, at a
// given step. It is fatal for the run.
type ScorerError struct {
	Step int
	Err  error
}

func (e *ScorerError) Error() string {
	return fmt.Sprintf("%s at step %d: %v", ErrScorer, e.Step, e.Err)
}

func (e *ScorerError) Unwrap() []error {
	return []error{ErrScorer, e.Err}
}

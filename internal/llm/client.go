package llm

import (
	"context"
	"errors"
)

// ErrUnavailable covers every way the generation service can fail to produce
// text: transport errors, timeouts, non-2xx statuses and empty completions.
var ErrUnavailable = errors.New("generation service unavailable")

// ModelConfig holds per-call sampling parameters. A nil Temperature means
// DefaultTemperature; an explicit 0 is sent as 0.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// DefaultTemperature is used when no temperature is configured.
const DefaultTemperature = 0.4

func (c ModelConfig) temperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// Client sends one prompt and returns the raw completion text.
type Client interface {
	Generate(ctx context.Context, prompt string, cfg ModelConfig) (string, error)
}

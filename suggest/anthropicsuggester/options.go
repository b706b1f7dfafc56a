/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package anthropicsuggester

import (
	"fmt"
	"strings"

	"chainguard.dev/mendloop/retry"
)

// Option is a functional option for configuring the Completer.
type Option func(*Completer) error

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Completer) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
		}
		c.model = model
		return nil
	}
}

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(tokens int64) Option {
	return func(c *Completer) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		c.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the sampling temperature (0.0 to 1.0).
func WithTemperature(temp float64) Option {
	return func(c *Completer) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		c.temperature = temp
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient API errors,
// particularly 429 rate limit and 529 overloaded responses.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Completer) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.retryConfig = cfg
		return nil
	}
}

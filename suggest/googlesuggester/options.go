/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googlesuggester

import (
	"fmt"

	"chainguard.dev/mendloop/retry"
)

// Option is a functional option for configuring the Completer.
type Option func(*Completer) error

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(c *Completer) error {
		if model == "" {
			return fmt.Errorf("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature (0.0 to 2.0 for Gemini).
func WithTemperature(temp float32) Option {
	return func(c *Completer) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		c.temperature = temp
		return nil
	}
}

// WithMaxOutputTokens sets the maximum tokens for responses.
func WithMaxOutputTokens(tokens int32) Option {
	return func(c *Completer) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		c.maxOutputTokens = tokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for transient API errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Completer) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.retryConfig = cfg
		return nil
	}
}

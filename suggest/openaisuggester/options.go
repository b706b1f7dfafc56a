/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaisuggester

import (
	"fmt"

	"chainguard.dev/mendloop/retry"
)

// Option is a functional option for configuring the Completer.
type Option func(*Completer) error

// WithAPIKey sets the API key. Required.
func WithAPIKey(key string) Option {
	return func(c *Completer) error {
		if key == "" {
			return fmt.Errorf("api key cannot be empty")
		}
		c.apiKey = key
		return nil
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint, e.g.
// https://openrouter.ai/api/v1 for OpenRouter.
func WithBaseURL(url string) Option {
	return func(c *Completer) error {
		c.baseURL = url
		return nil
	}
}

// WithLabel overrides the provider label used in Name, e.g. "openrouter".
func WithLabel(label string) Option {
	return func(c *Completer) error {
		if label == "" {
			return fmt.Errorf("label cannot be empty")
		}
		c.label = label
		return nil
	}
}

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

// WithTemperature sets the sampling temperature (0.0 to 2.0).
func WithTemperature(temp float64) Option {
	return func(c *Completer) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		c.temperature = temp
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

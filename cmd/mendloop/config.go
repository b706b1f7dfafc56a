/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// config is the mendloop CLI configuration. Environment variables win over
// the optional YAML file; the file fills in whatever the environment leaves
// unset.
type config struct {
	BuildCommand string        `env:"BUILD_COMMAND" yaml:"buildCommand"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS,default=3" yaml:"maxAttempts"`
	Workdir      string        `env:"WORKDIR,default=." yaml:"workdir"`
	RevertFile   string        `env:"REVERT_FILE" yaml:"revertFile"`
	BuildTimeout time.Duration `env:"BUILD_TIMEOUT" yaml:"buildTimeout"`

	// Provider selects the patch suggester: anthropic, google, openai, or
	// chain (all configured providers in that order).
	Provider        string        `env:"PROVIDER,default=anthropic" yaml:"provider"`
	ProposalTimeout time.Duration `env:"PROPOSAL_TIMEOUT,default=2m" yaml:"proposalTimeout"`

	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY" yaml:"-"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" yaml:"anthropicModel"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY" yaml:"-"`
	GeminiModel     string `env:"GEMINI_MODEL" yaml:"geminiModel"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY" yaml:"-"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" yaml:"openaiBaseURL"`
	OpenAIModel     string `env:"OPENAI_MODEL" yaml:"openaiModel"`
}

// loadConfig processes the environment and then overlays unset fields from
// the YAML file at path (when non-empty).
func loadConfig(ctx context.Context, path string) (*config, error) {
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var file config
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		cfg.merge(&file)
	}

	if cfg.BuildCommand == "" {
		return nil, errors.New("BUILD_COMMAND (or buildCommand in the config file) is required")
	}
	switch cfg.Provider {
	case "anthropic", "google", "openai", "chain":
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic, google, openai, or chain)", cfg.Provider)
	}
	return &cfg, nil
}

// merge fills cfg's zero-valued fields from file. Credentials never come
// from the file.
func (c *config) merge(file *config) {
	if c.BuildCommand == "" {
		c.BuildCommand = file.BuildCommand
	}
	if file.MaxAttempts > 0 && os.Getenv("MAX_ATTEMPTS") == "" {
		c.MaxAttempts = file.MaxAttempts
	}
	if file.Workdir != "" && os.Getenv("WORKDIR") == "" {
		c.Workdir = file.Workdir
	}
	if c.RevertFile == "" {
		c.RevertFile = file.RevertFile
	}
	if c.BuildTimeout == 0 {
		c.BuildTimeout = file.BuildTimeout
	}
	if file.Provider != "" && os.Getenv("PROVIDER") == "" {
		c.Provider = file.Provider
	}
	if file.ProposalTimeout > 0 && os.Getenv("PROPOSAL_TIMEOUT") == "" {
		c.ProposalTimeout = file.ProposalTimeout
	}
	if c.AnthropicModel == "" {
		c.AnthropicModel = file.AnthropicModel
	}
	if c.GeminiModel == "" {
		c.GeminiModel = file.GeminiModel
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = file.OpenAIBaseURL
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = file.OpenAIModel
	}
}

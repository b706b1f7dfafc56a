/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements the prreview CLI, intended to run inside a GitHub
// Actions job: fetch the pull request's diff, ask an AI provider for a
// review, and post it as an issue comment. Gemini is preferred; OpenRouter
// is the fallback when Gemini is unavailable or unconfigured.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/mendloop/review"
	"chainguard.dev/mendloop/suggest"
	"chainguard.dev/mendloop/suggest/googlesuggester"
	"chainguard.dev/mendloop/suggest/openaisuggester"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
	"google.golang.org/genai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

type config struct {
	Repository string `env:"GITHUB_REPOSITORY,required"`
	Token      string `env:"GITHUB_TOKEN,required"`
	PRNumber   string `env:"PR_NUMBER"`
	EventPath  string `env:"GITHUB_EVENT_PATH"`

	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`

	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL,default=openai/gpt-4o-mini-2024-07-18"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	owner, repo, err := review.SplitRepository(cfg.Repository)
	if err != nil {
		clog.FatalContextf(ctx, "resolving repository: %v", err)
	}
	prNumber, err := review.ResolvePRNumber(cfg.PRNumber, cfg.EventPath)
	if err != nil {
		clog.FatalContextf(ctx, "resolving PR number: %v", err)
	}

	completers, err := buildCompleters(ctx, &cfg)
	if err != nil {
		clog.FatalContextf(ctx, "configuring providers: %v", err)
	}

	gh := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)))

	reviewer, err := review.New(gh, completers)
	if err != nil {
		clog.FatalContextf(ctx, "creating reviewer: %v", err)
	}

	if _, err := reviewer.Run(ctx, owner, repo, prNumber); err != nil {
		clog.FatalContextf(ctx, "reviewing %s/%s#%d: %v", owner, repo, prNumber, err)
	}
}

// buildCompleters assembles the provider chain: Gemini first when a Google
// key is present, then OpenRouter. At least one must be configured.
func buildCompleters(ctx context.Context, cfg *config) ([]suggest.Completer, error) {
	var completers []suggest.Completer

	if cfg.GoogleAPIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GoogleAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, err
		}
		var opts []googlesuggester.Option
		if cfg.GeminiModel != "" {
			opts = append(opts, googlesuggester.WithModel(cfg.GeminiModel))
		}
		c, err := googlesuggester.New(client, opts...)
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
	}

	if cfg.OpenRouterAPIKey != "" {
		c, err := openaisuggester.New(
			openaisuggester.WithAPIKey(cfg.OpenRouterAPIKey),
			openaisuggester.WithBaseURL(openRouterBaseURL),
			openaisuggester.WithLabel("openrouter"),
			openaisuggester.WithModel(cfg.OpenRouterModel),
		)
		if err != nil {
			return nil, err
		}
		completers = append(completers, c)
	}

	if len(completers) == 0 {
		return nil, errors.New("at least one of GOOGLE_API_KEY or OPENROUTER_API_KEY is required")
	}
	return completers, nil
}

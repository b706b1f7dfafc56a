/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements the mendloop CLI: run a build command, and on
// failure ask an AI provider for a patch, apply it, and retry, bounded by a
// retry budget. The most recent patch can be undone with -revert.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/mendloop/loop"
	"chainguard.dev/mendloop/patch"
	"chainguard.dev/mendloop/suggest"
	"chainguard.dev/mendloop/suggest/anthropicsuggester"
	"chainguard.dev/mendloop/suggest/googlesuggester"
	"chainguard.dev/mendloop/suggest/openaisuggester"
	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"google.golang.org/genai"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitFatal   = 2
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file; environment variables take precedence")
	revert := flag.Bool("revert", false, "undo the most recent applied patch and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, *configFile, *revert))
}

func run(ctx context.Context, configFile string, revert bool) int {
	cfg, err := loadConfig(ctx, configFile)
	if err != nil {
		// Revert needs only the working tree, not a full loop config.
		if !revert {
			clog.ErrorContextf(ctx, "loading config: %v", err)
			return exitFatal
		}
		cfg = &config{Workdir: "."}
		if err := envconfig.Process(ctx, cfg); err != nil {
			clog.ErrorContextf(ctx, "processing environment: %v", err)
			return exitFatal
		}
	}

	var treeOpts []patch.Option
	if cfg.RevertFile != "" {
		treeOpts = append(treeOpts, patch.WithRevertFile(cfg.RevertFile))
	}
	tree, err := patch.Open(cfg.Workdir, treeOpts...)
	if err != nil {
		clog.ErrorContextf(ctx, "opening working tree: %v", err)
		return exitFatal
	}

	if revert {
		if err := tree.RevertLast(ctx); err != nil {
			clog.ErrorContextf(ctx, "reverting last patch: %v", err)
			return exitFatal
		}
		clog.InfoContextf(ctx, "Reverted last applied patch in %s", tree.Dir())
		return exitSuccess
	}

	suggester, err := buildSuggester(ctx, cfg)
	if err != nil {
		clog.ErrorContextf(ctx, "configuring provider: %v", err)
		return exitFatal
	}

	controller, err := loop.New(loop.Config{
		BuildCommand:    cfg.BuildCommand,
		MaxAttempts:     cfg.MaxAttempts,
		Suggester:       suggester,
		Tree:            tree,
		BuildTimeout:    cfg.BuildTimeout,
		ProposalTimeout: cfg.ProposalTimeout,
	})
	if err != nil {
		clog.ErrorContextf(ctx, "configuring loop: %v", err)
		return exitFatal
	}

	result, err := controller.Run(ctx)
	if err != nil {
		clog.ErrorContextf(ctx, "repair loop failed: %v", err)
		return exitFatal
	}

	if err := result.WriteReport(os.Stdout); err != nil {
		clog.WarnContextf(ctx, "writing report: %v", err)
	}

	if result.Outcome == loop.OutcomeSucceeded {
		return exitSuccess
	}
	if result.FailureLog != "" {
		fmt.Fprintln(os.Stderr, result.FailureLog)
	}
	return exitFailure
}

// buildSuggester assembles the patch suggester for the configured provider.
// "chain" tries every provider that has credentials, in a fixed order.
func buildSuggester(ctx context.Context, cfg *config) (suggest.Suggester, error) {
	builders := map[string]func(context.Context, *config) (suggest.Suggester, error){
		"anthropic": anthropicSuggester,
		"google":    googleSuggester,
		"openai":    openaiSuggester,
	}

	if b, ok := builders[cfg.Provider]; ok {
		return b(ctx, cfg)
	}

	// Provider "chain": every provider with credentials, Anthropic first.
	var chain []suggest.Suggester
	for _, name := range []string{"anthropic", "google", "openai"} {
		if !hasCredentials(name, cfg) {
			continue
		}
		s, err := builders[name](ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configuring %s: %w", name, err)
		}
		chain = append(chain, s)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("provider chain requires at least one of ANTHROPIC_API_KEY, GOOGLE_API_KEY, or OPENAI_API_KEY")
	}
	return suggest.NewFallback(chain...)
}

func hasCredentials(provider string, cfg *config) bool {
	switch provider {
	case "anthropic":
		return cfg.AnthropicAPIKey != ""
	case "google":
		return cfg.GoogleAPIKey != ""
	case "openai":
		return cfg.OpenAIAPIKey != ""
	}
	return false
}

func anthropicSuggester(_ context.Context, cfg *config) (suggest.Suggester, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
	}
	var opts []anthropicsuggester.Option
	if cfg.AnthropicModel != "" {
		opts = append(opts, anthropicsuggester.WithModel(cfg.AnthropicModel))
	}
	completer, err := anthropicsuggester.New(
		anthropic.NewClient(anthropicoption.WithAPIKey(cfg.AnthropicAPIKey)), opts...)
	if err != nil {
		return nil, err
	}
	return suggest.New(completer, suggest.WithBuildCommand(cfg.BuildCommand))
}

func googleSuggester(ctx context.Context, cfg *config) (suggest.Suggester, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY is required for the google provider")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	var opts []googlesuggester.Option
	if cfg.GeminiModel != "" {
		opts = append(opts, googlesuggester.WithModel(cfg.GeminiModel))
	}
	completer, err := googlesuggester.New(client, opts...)
	if err != nil {
		return nil, err
	}
	return suggest.New(completer, suggest.WithBuildCommand(cfg.BuildCommand))
}

func openaiSuggester(_ context.Context, cfg *config) (suggest.Suggester, error) {
	opts := []openaisuggester.Option{openaisuggester.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, openaisuggester.WithBaseURL(cfg.OpenAIBaseURL))
	}
	if cfg.OpenAIModel != "" {
		opts = append(opts, openaisuggester.WithModel(cfg.OpenAIModel))
	}
	completer, err := openaisuggester.New(opts...)
	if err != nil {
		return nil, err
	}
	return suggest.New(completer, suggest.WithBuildCommand(cfg.BuildCommand))
}

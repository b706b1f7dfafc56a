/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaisuggester provides a suggest.Completer backed by the OpenAI
// chat completions API. With WithBaseURL it also serves OpenAI-compatible
// gateways such as OpenRouter.
package openaisuggester

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/mendloop/metrics"
	"chainguard.dev/mendloop/retry"
	"github.com/chainguard-dev/clog"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer implements suggest.Completer using chat completions.
type Completer struct {
	client       openai.Client
	label        string
	model        string
	temperature  float64
	retryConfig  retry.Config
	genaiMetrics *metrics.GenAI

	apiKey  string
	baseURL string
}

// New creates a Completer. An API key is required; a base URL is optional
// and defaults to the OpenAI platform endpoint.
func New(opts ...Option) (*Completer, error) {
	c := &Completer{
		label:        "openai",
		model:        "gpt-4o-mini",
		temperature:  0.2, // matches the reviewer defaults we ship in CI
		retryConfig:  retry.DefaultConfig(),
		genaiMetrics: metrics.NewGenAI("chainguard.ai.mendloop"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if c.apiKey == "" {
		return nil, errors.New("api key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(c.apiKey)}
	if c.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(c.baseURL))
	}
	c.client = openai.NewClient(reqOpts...)

	return c, nil
}

// Name implements suggest.Completer.
func (c *Completer) Name() string {
	return c.label + "/" + c.model
}

// Complete sends one system+user exchange and returns the text response.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	}

	resp, err := retry.WithBackoff(ctx, c.retryConfig, "chat_completion", isRetryableOpenAIError, func() (*openai.ChatCompletion, error) {
		return c.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}

	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		c.genaiMetrics.RecordTokens(ctx, c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty choices in chat completion")
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", errors.New("empty message content in chat completion")
	}

	log.With("model", c.model).
		With("response_length", len(text)).
		Info("Chat completion finished")
	return text, nil
}

// isRetryableOpenAIError returns true for rate limit and transient server
// errors.
func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

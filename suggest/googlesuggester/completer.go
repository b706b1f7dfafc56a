/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package googlesuggester provides a suggest.Completer backed by Gemini via
// the Google GenAI SDK (Gemini API or Vertex AI backends).
package googlesuggester

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/mendloop/metrics"
	"chainguard.dev/mendloop/retry"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// Completer implements suggest.Completer using Gemini.
type Completer struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	retryConfig     retry.Config
	genaiMetrics    *metrics.GenAI
}

// New creates a Completer with defaults suitable for patch suggestion.
func New(client *genai.Client, opts ...Option) (*Completer, error) {
	if client == nil {
		return nil, errors.New("genai client cannot be nil")
	}
	c := &Completer{
		client:          client,
		model:           "gemini-2.5-flash",
		temperature:     0.1,
		maxOutputTokens: 8192,
		retryConfig:     retry.DefaultConfig(),
		genaiMetrics:    metrics.NewGenAI("chainguard.ai.mendloop"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

// Name implements suggest.Completer.
func (c *Completer) Name() string {
	return "google/" + c.model
}

// Complete sends one system+user exchange and returns the text response.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)

	config := &genai.GenerateContentConfig{
		Temperature:     ptr(c.temperature),
		MaxOutputTokens: c.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}

	response, err := retry.WithBackoff(ctx, c.retryConfig, "generate_content", isRetryableGeminiError, func() (*genai.GenerateContentResponse, error) {
		return c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), config)
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}

	if response.UsageMetadata != nil {
		c.genaiMetrics.RecordTokens(ctx, c.model,
			int64(response.UsageMetadata.PromptTokenCount),
			int64(response.UsageMetadata.CandidatesTokenCount))
	}

	text := response.Text()
	if text == "" {
		return "", errors.New("no content generated - no candidates")
	}

	log.With("model", c.model).
		With("response_length", len(text)).
		Info("Gemini completion finished")
	return text, nil
}

func ptr[T any](v T) *T {
	return &v
}

// isRetryableGeminiError returns true for rate limit, quota exhaustion, and
// transient server errors. The SDK does not expose a stable error type for
// all backends, so this matches on message content.
func isRetryableGeminiError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Resource exhausted") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "Internal error") ||
		strings.Contains(errStr, "server error")
}
